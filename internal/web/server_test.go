package web

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/paraprep/internal/config"
	"github.com/JonMunkholm/paraprep/internal/metrics"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

const testRecipe = "events"

const rawCSV = `type,country,start,end,participants,URL
Summer ,UK,01/09/2000,12/09/2000,3800,http://a
winter,Narnia,1/1/2001,2/1/2001,,http://b
winter,Atlantis,5/3/2002,14/3/2002,12.0,http://c
 summer,Great Britain,,,NA,http://d
`

const refCSV = `Code,Name
GBR,Great Britain
NRN,Narnia
`

const preparedCSV = `type,country,start,end,duration,participants,country_code
summer,Great Britain,2000-09-01,2000-09-12,11,3800,GBR
winter,Atlantis,2002-03-05,2002-03-14,9,12,
summer,Great Britain,,,,,GBR
`

func init() {
	prepare.Register(prepare.Recipe{
		Name:          testRecipe,
		Description:   "Events <test>",
		RawFile:       "events_raw.csv",
		ReferenceFile: "events_ref.csv",
		OutputFile:    "events_prepared.csv",
		Plan: prepare.Plan{
			DropColumns: []string{"URL"},
			DropRows:    []int{1},
			Category: prepare.CategoryRule{
				Column:     "type",
				Rewrites:   map[string]string{"Summer": "summer"},
				Vocabulary: []string{"summer", "winter"},
			},
			IntColumns:  []string{"participants"},
			DateColumns: []string{"start", "end"},
			DateLayout:  "2/1/2006",
			Duration:    prepare.DurationRule{Name: "duration", Start: "start", End: "end"},
			Join: prepare.JoinRule{
				Column:         "country",
				Renames:        map[string]string{"UK": "Great Britain"},
				ReferenceKey:   "Name",
				ReferenceValue: "Code",
				As:             "country_code",
			},
		},
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Recipe:  testRecipe,
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: time.Second,
			RequestTimeout:  5 * time.Second,
			MaxUploadBytes:  1 << 20,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

// upload builds a multipart POST. Keys of files are form field names; the
// file name is the field name plus ".csv".
func upload(t *testing.T, target string, files map[string]string, values map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for field, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(field, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","runs":{"active":0,"available":4,"max_concurrent":4}}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestIndex(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `action="/api/prepare/events"`)
	assert.Contains(t, body, "Events &lt;test&gt;")
	assert.NotContains(t, body, "<test>")
	assert.Contains(t, body, `action="/api/describe"`)
}

func TestListRecipes(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/recipes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []recipeInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	var found *recipeInfo
	for i := range got {
		if got[i].Name == testRecipe {
			found = &got[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "events_prepared.csv", found.OutputFile)
	assert.Contains(t, found.RawColumns, "URL")
	assert.Contains(t, found.RawColumns, "country")
}

func TestPrepare_CSV(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, upload(t, "/api/prepare/events", map[string]string{"raw": rawCSV, "reference": refCSV}, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "events_prepared.csv")
	assert.NotEmpty(t, rec.Header().Get(RunIDHeader))
	assert.Equal(t, preparedCSV, rec.Body.String())
}

func TestPrepare_JSON(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, upload(t, "/api/prepare/events?format=json", map[string]string{"raw": rawCSV, "reference": refCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		RunID      string           `json:"run_id"`
		RowsIn     int              `json:"rows_in"`
		RowsOut    int              `json:"rows_out"`
		JoinMisses []string         `json:"join_misses"`
		Records    []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, rec.Header().Get(RunIDHeader), got.RunID)
	assert.Equal(t, 4, got.RowsIn)
	assert.Equal(t, 3, got.RowsOut)
	assert.Equal(t, []string{"Atlantis"}, got.JoinMisses)
	require.Len(t, got.Records, 3)
	assert.Equal(t, "GBR", got.Records[0]["country_code"])
	assert.Nil(t, got.Records[1]["country_code"])
}

func TestPrepare_ReferenceFromDataDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "events_ref.csv"), []byte(refCSV), 0o644))
	s := NewServer(cfg)

	rec := serve(s, upload(t, "/api/prepare/events", map[string]string{"raw": rawCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, preparedCSV, rec.Body.String())
}

func TestPrepare_Errors(t *testing.T) {
	badDate := strings.Replace(rawCSV, "01/09/2000", "2000-09-01", 1)

	tests := []struct {
		name   string
		target string
		files  map[string]string
		status int
		code   string
	}{
		{
			name:   "unknown recipe",
			target: "/api/prepare/nope",
			files:  map[string]string{"raw": rawCSV},
			status: http.StatusNotFound,
			code:   "RCP001",
		},
		{
			name:   "missing raw part",
			target: "/api/prepare/events",
			files:  map[string]string{"reference": refCSV},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name:   "bad date",
			target: "/api/prepare/events",
			files:  map[string]string{"raw": badDate, "reference": refCSV},
			status: http.StatusUnprocessableEntity,
			code:   "PARSE001",
		},
		{
			name:   "missing column",
			target: "/api/prepare/events",
			files:  map[string]string{"raw": "type,country\nsummer,UK\n", "reference": refCSV},
			status: http.StatusUnprocessableEntity,
			code:   "PRE001",
		},
		{
			name:   "no reference anywhere",
			target: "/api/prepare/events",
			files:  map[string]string{"raw": rawCSV},
			status: http.StatusInternalServerError,
			code:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig(t))
			rec := serve(s, upload(t, tt.target, tt.files, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestPrepare_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 64
	s := NewServer(cfg)

	rec := serve(s, upload(t, "/api/prepare/events", map[string]string{"raw": rawCSV, "reference": refCSV}, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDescribe(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, upload(t, "/api/describe", map[string]string{"file": preparedCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Rows    int `json:"rows"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Stats []struct {
			Column string  `json:"column"`
			Count  int     `json:"count"`
			Mean   float64 `json:"mean"`
		} `json:"stats"`
		Head []map[string]any `json:"head"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Rows)
	assert.Len(t, got.Columns, 7)
	assert.Len(t, got.Head, 3)

	var duration bool
	for _, st := range got.Stats {
		if st.Column == "duration" {
			duration = true
			assert.Equal(t, 2, st.Count)
			assert.InDelta(t, 10.0, st.Mean, 1e-9)
		}
	}
	assert.True(t, duration, "duration stats missing: %+v", got.Stats)
}

func TestDescribe_Infinity(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, upload(t, "/api/describe", map[string]string{"file": "x\n1\nInf\n-Inf\n3\n"}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, json.Valid(rec.Body.Bytes()), rec.Body.String())
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), map[string]float64{"mean": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMissing(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, upload(t, "/api/missing", map[string]string{"file": preparedCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Rows []int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []int{1, 2}, got.Rows)
}

func TestCategories(t *testing.T) {
	s := NewServer(testConfig(t))

	t.Run("counts", func(t *testing.T) {
		rec := serve(s, upload(t, "/api/categories", map[string]string{"file": preparedCSV},
			map[string][]string{"column": {"type", "country"}}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got []struct {
			Column string   `json:"column"`
			Values []string `json:"values"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, []string{"summer", "winter"}, got[0].Values)
		assert.Equal(t, []string{"Great Britain", "Atlantis"}, got[1].Values)
	})

	t.Run("no column", func(t *testing.T) {
		rec := serve(s, upload(t, "/api/categories", map[string]string{"file": preparedCSV}, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown column", func(t *testing.T) {
		rec := serve(s, upload(t, "/api/categories", map[string]string{"file": preparedCSV},
			map[string][]string{"column": {"nope"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "PRE001", decodeError(t, rec).Code)
	})
}

func TestMetrics(t *testing.T) {
	m := metrics.NewManager()
	s := NewServer(testConfig(t), WithMetrics(m))

	rec := serve(s, upload(t, "/api/prepare/events", map[string]string{"raw": rawCSV, "reference": refCSV}, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `paraprep_runs_total{outcome="success",recipe="events"} 1`)
	assert.Contains(t, body, `route="/api/prepare/{recipe}"`)
}

func TestMetrics_DisabledWithoutManager(t *testing.T) {
	s := NewServer(testConfig(t))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit = 1
	s := NewServer(cfg)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "REQ003", decodeError(t, rec).Code)
}

func TestPrepare_Busy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxConcurrentRuns = 1
	cfg.Server.RunWait = 10 * time.Millisecond
	s := NewServer(cfg)

	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := serve(s, upload(t, "/api/prepare/events", map[string]string{"raw": rawCSV, "reference": refCSV}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "REQ004", decodeError(t, rec).Code)
	assert.Equal(t, 1, s.RunStatus().Active)
}

func TestStatusFor(t *testing.T) {
	_, err := prepare.Lookup("missing")
	assert.Equal(t, http.StatusNotFound, statusFor(err))
	assert.Equal(t, http.StatusBadRequest, statusFor(errNoFile))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
