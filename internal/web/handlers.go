package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/logging"
	"github.com/JonMunkholm/paraprep/internal/prepare"
	"github.com/JonMunkholm/paraprep/internal/report"
	"github.com/JonMunkholm/paraprep/internal/store"
)

// RunIDHeader carries the preparation run ID on prepare responses.
const RunIDHeader = "X-Run-ID"

// recipeInfo is the JSON view of a registered recipe.
type recipeInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	RawFile       string   `json:"raw_file"`
	ReferenceFile string   `json:"reference_file"`
	OutputFile    string   `json:"output_file"`
	RawColumns    []string `json:"raw_columns"`
}

// prepareResponse is the JSON form of a prepare run.
type prepareResponse struct {
	*prepare.Result
	Records []map[string]any `json:"records"`
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(prepare.Recipes()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, struct {
		Status string                `json:"status"`
		Runs   prepare.LimiterStatus `json:"runs"`
	}{"ok", s.limiter.Status()})
}

// handleListRecipes lists the registered recipes.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes := prepare.Recipes()
	out := make([]recipeInfo, len(recipes))
	for i, rec := range recipes {
		specs := rec.Plan.RawSpecs()
		cols := make([]string, len(specs))
		for j, spec := range specs {
			cols[j] = spec.Name
		}
		out[i] = recipeInfo{
			Name:          rec.Name,
			Description:   rec.Description,
			RawFile:       rec.RawFile,
			ReferenceFile: rec.ReferenceFile,
			OutputFile:    rec.OutputFile,
			RawColumns:    cols,
		}
	}
	writeJSON(w, r, out)
}

// handlePrepare runs a recipe on an uploaded raw table.
//
// Form parts: "raw" (required), "reference" (optional; the configured
// reference file is used otherwise), "sheet" (optional, for spreadsheets).
// The prepared table is returned as CSV, or as JSON with ?format=json.
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	rec, err := prepare.Lookup(chi.URLParam(r, "recipe"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if !s.parseUpload(w, r) {
		return
	}

	raw, err := readUpload(r, "raw", core.ReadOptions{Sheet: r.FormValue("sheet")})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ref, err := readUpload(r, "reference", rec.Reference)
	if errors.Is(err, errNoFile) {
		ref, err = core.ReadFile(s.cfg.Path(s.cfg.ReferenceFile, rec.ReferenceFile), rec.Reference)
	}
	if err != nil {
		respondError(w, r, fmt.Errorf("reference: %w", err), statusFor(err))
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	var opts []prepare.Option
	if s.metrics != nil {
		opts = append(opts, prepare.WithObserver(s.metrics))
	}
	res, err := prepare.ForRecipe(rec, opts...).Prepare(r.Context(), raw, ref)
	if err != nil {
		if res != nil {
			w.Header().Set(RunIDHeader, res.RunID)
		}
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set(RunIDHeader, res.RunID)
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, r, prepareResponse{Result: res, Records: report.Records(res.Table)})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OutputFile))
	if err := store.CSV(w).Write(r.Context(), res.Table); err != nil {
		logging.FromContext(r.Context()).Error("write prepared csv", "error", err, "run_id", res.RunID)
	}
}

// handleDescribe returns the describe report of an uploaded table.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	t, ok := s.uploadedTable(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.NewRenderer(w, report.ModeJSON).Description(report.Describe(t)); err != nil {
		logging.FromContext(r.Context()).Error("render describe", "error", err)
	}
}

// handleMissing returns the missing-value report of an uploaded table.
func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	t, ok := s.uploadedTable(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.NewRenderer(w, report.ModeJSON).Missing(report.Missing(t)); err != nil {
		logging.FromContext(r.Context()).Error("render missing", "error", err)
	}
}

// handleCategories returns the categorical report of each "column" form value.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t, ok := s.uploadedTable(w, r)
	if !ok {
		return
	}
	columns := r.MultipartForm.Value["column"]
	if len(columns) == 0 {
		respondError(w, r, errors.New("no column provided"), http.StatusBadRequest)
		return
	}

	reports := make([]*report.CategoryReport, 0, len(columns))
	for _, c := range columns {
		cr, err := report.Categories(t, c)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		reports = append(reports, cr)
	}
	writeJSON(w, r, reports)
}

// uploadedTable parses the form and reads its "file" part.
// On failure the error response has been written.
func (s *Server) uploadedTable(w http.ResponseWriter, r *http.Request) (*core.Table, bool) {
	if !s.parseUpload(w, r) {
		return nil, false
	}
	t, err := readUpload(r, "file", core.ReadOptions{
		Sheet:    r.FormValue("sheet"),
		Encoding: r.FormValue("encoding"),
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return t, true
}

// parseUpload bounds the body and parses the multipart form.
// On failure the error response has been written.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	maxSize := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, r, fmt.Errorf("file too large or invalid form: %w", err), status)
		return false
	}
	return true
}

// readUpload reads the table in form part field, choosing the format by
// the uploaded file name.
func readUpload(r *http.Request, field string, opts core.ReadOptions) (*core.Table, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%s: %w", field, errNoFile)
		}
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	defer file.Close()

	var t *core.Table
	if core.IsSpreadsheet(header.Filename) {
		t, err = core.ReadXLSX(file, opts)
	} else {
		t, err = core.ReadCSV(file, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return t, nil
}
