package report

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

// StepInspector prints the table state after each preparation step: the
// column list, the types of the affected columns and the first rows.
type StepInspector struct {
	r    *Renderer
	rows int
}

// NewStepInspector creates an inspector writing through r.
func NewStepInspector(r *Renderer) *StepInspector {
	return &StepInspector{r: r, rows: PreviewRows}
}

// Inspect implements prepare.Inspector.
func (s *StepInspector) Inspect(step prepare.StepResult, t *core.Table) {
	st := s.r.Styles()
	s.r.Heading(fmt.Sprintf("After %s: %d rows, %d columns (%s)", step.Name, step.Rows, step.Columns, step.Elapsed))
	if s.r.Mode() == ModeText {
		s.r.Println(st.Muted.Render("columns: " + strings.Join(t.Names(), ", ")))
	}

	var typed [][]string
	for _, name := range step.Affected {
		if c, ok := t.Column(name); ok {
			typed = append(typed, []string{name, c.Type().String(), fmt.Sprint(c.NullCount())})
		}
	}
	if len(typed) > 0 {
		_ = s.r.Grid([]string{"column", "type", "nulls"}, typed)
	}
	_ = s.r.Table(t.Head(s.rows))
	s.r.Println("")
}
