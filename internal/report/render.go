package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// Mode is an output format.
type Mode string

const (
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeCSV      Mode = "csv"
	ModeJSON     Mode = "json"
)

// ParseMode converts a format flag to a Mode. Empty means text.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "text", "table":
		return ModeText, nil
	case "md", "markdown":
		return ModeMarkdown, nil
	case "csv":
		return ModeCSV, nil
	case "json":
		return ModeJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, markdown, csv or json)", s)
}

// Styles holds the text-mode styles.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns the styles used on a terminal.
func DefaultStyles() *Styles {
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{Header1: plain, Header2: plain, Bold: plain, Muted: plain, Warning: plain}
}

// NullText is how a null cell is shown in text and markdown output.
const NullText = "<NA>"

// Renderer writes reports in one output mode.
type Renderer struct {
	out    io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer. Styles are only applied when out is a terminal.
func NewRenderer(out io.Writer, mode Mode) *Renderer {
	styles := PlainStyles()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		styles = DefaultStyles()
	}
	return &Renderer{out: out, mode: mode, styles: styles}
}

// Mode returns the output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the underlying writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the active styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted text.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Heading writes a section title in the current mode. CSV and JSON output
// carry no headings.
func (r *Renderer) Heading(title string) {
	switch r.mode {
	case ModeText:
		r.Println(r.styles.Header1.Render(title))
	case ModeMarkdown:
		r.Println("## " + title)
		r.Println("")
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Grid renders a header and string rows.
func (r *Renderer) Grid(header []string, rows [][]string) error {
	if r.mode == ModeJSON {
		out := make([]map[string]string, len(rows))
		for i, row := range rows {
			m := make(map[string]string, len(header))
			for c, h := range header {
				m[h] = row[c]
			}
			out[i] = m
		}
		return r.JSON(out)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetStyle(table.StyleLight)
	// Column names are case-sensitive.
	tw.Style().Format.Header = text.FormatDefault

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	tw.AppendHeader(headerRow)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		tw.AppendRow(tr)
	}

	switch r.mode {
	case ModeMarkdown:
		tw.RenderMarkdown()
	case ModeCSV:
		tw.RenderCSV()
	default:
		if len(rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		tw.Render()
	}
	return nil
}

// Table renders every row of t.
func (r *Renderer) Table(t *core.Table) error {
	if r.mode == ModeJSON {
		return r.JSON(Records(t))
	}
	null := NullText
	if r.mode == ModeCSV {
		null = ""
	}
	rows := make([][]string, t.Len())
	for i := range rows {
		row := t.Row(i)
		for c, col := range t.Columns() {
			if !col.Valid(i) {
				row[c] = null
			}
		}
		rows[i] = row
	}
	return r.Grid(t.Names(), rows)
}

// Records converts t to one map per row. Nulls are nil, integers and floats
// keep their numeric type and dates are YYYY-MM-DD strings.
func Records(t *core.Table) []map[string]any {
	out := make([]map[string]any, t.Len())
	for i := range out {
		rec := make(map[string]any, t.Width())
		for _, c := range t.Columns() {
			if !c.Valid(i) {
				rec[c.Name()] = nil
				continue
			}
			switch c.Type() {
			case core.FieldInt:
				rec[c.Name()] = c.Int(i).Int64
			case core.FieldFloat:
				rec[c.Name()] = c.Float(i).Float64
			default:
				rec[c.Name()] = c.Format(i)
			}
		}
		out[i] = rec
	}
	return out
}

// Description renders a Describe result.
func (r *Renderer) Description(d *Description) error {
	if r.mode == ModeJSON {
		return r.JSON(struct {
			*Description
			Head []map[string]any `json:"head"`
			Tail []map[string]any `json:"tail"`
		}{d, Records(d.Head), Records(d.Tail)})
	}

	r.Heading("Shape")
	if err := r.Grid([]string{"rows", "columns"}, [][]string{{strconv.Itoa(d.Rows), strconv.Itoa(len(d.Columns))}}); err != nil {
		return err
	}
	r.gap()

	r.Heading(fmt.Sprintf("First %d rows", d.Head.Len()))
	if err := r.Table(d.Head); err != nil {
		return err
	}
	r.gap()

	r.Heading(fmt.Sprintf("Last %d rows", d.Tail.Len()))
	if err := r.Table(d.Tail); err != nil {
		return err
	}
	r.gap()

	r.Heading("Columns")
	cols := make([][]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = []string{c.Name, c.Type, strconv.Itoa(c.Nulls)}
	}
	if err := r.Grid([]string{"column", "type", "nulls"}, cols); err != nil {
		return err
	}
	r.gap()

	r.Heading("Statistics")
	stats := make([][]string, len(d.Stats))
	for i, s := range d.Stats {
		std := NullText
		if s.Std.Valid {
			std = formatFloat(s.Std.Float64)
		}
		stats[i] = []string{
			s.Column, strconv.Itoa(s.Count), formatFloat(s.Mean), std,
			formatFloat(s.Min), formatFloat(s.Q25), formatFloat(s.Q50), formatFloat(s.Q75), formatFloat(s.Max),
		}
	}
	return r.Grid([]string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, stats)
}

// Missing renders a Missing result.
func (r *Renderer) Missing(m *MissingReport) error {
	if r.mode == ModeJSON {
		return r.JSON(struct {
			*MissingReport
			Sample []map[string]any `json:"sample"`
		}{m, Records(m.Sample)})
	}

	r.Heading("Null counts")
	counts := make([][]string, len(m.Counts))
	for i, c := range m.Counts {
		counts[i] = []string{c.Column, strconv.Itoa(c.Nulls)}
	}
	if err := r.Grid([]string{"column", "nulls"}, counts); err != nil {
		return err
	}
	r.gap()

	r.Heading(fmt.Sprintf("Rows with missing values (%d)", len(m.Rows)))
	rows := make([][]string, len(m.Rows))
	for i, pos := range m.Rows {
		rows[i] = append([]string{strconv.Itoa(pos)}, m.Sample.Row(i)...)
		for c, col := range m.Sample.Columns() {
			if !col.Valid(i) && r.mode != ModeCSV {
				rows[i][c+1] = NullText
			}
		}
	}
	return r.Grid(append([]string{"row"}, m.Sample.Names()...), rows)
}

// Categories renders a Categories result.
func (r *Renderer) Categories(c *CategoryReport) error {
	if r.mode == ModeJSON {
		return r.JSON(c)
	}

	r.Heading(fmt.Sprintf("Distinct values of %s (%d)", c.Column, len(c.Values)))
	if r.mode == ModeText {
		r.Println(r.styles.Muted.Render(strings.Join(c.Values, ", ")))
		r.gap()
	}

	counts := make([][]string, len(c.Counts))
	for i, vc := range c.Counts {
		counts[i] = []string{vc.Value, strconv.Itoa(vc.Count)}
	}
	if c.Nulls > 0 {
		counts = append(counts, []string{NullText, strconv.Itoa(c.Nulls)})
	}
	return r.Grid([]string{c.Column, "count"}, counts)
}

// gap separates sections.
func (r *Renderer) gap() {
	r.Println("")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
