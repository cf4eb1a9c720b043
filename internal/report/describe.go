// Package report summarizes tables for exploration: shape and statistics,
// missing values, categorical distributions and per-step inspection of a
// preparation run.
package report

import (
	"math"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// PreviewRows is the number of rows shown at each end of a table.
const PreviewRows = 5

// ColumnInfo is a column name with its inferred type and null count.
type ColumnInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Nulls int    `json:"nulls"`
}

// Stats holds summary statistics of one numeric column, over non-null cells.
type Stats struct {
	Column string        `json:"column"`
	Count  int           `json:"count"`
	Mean   float64       `json:"mean"`
	Std    pgtype.Float8 `json:"std"` // Sample standard deviation, null below two values
	Min    float64       `json:"min"`
	Q25    float64       `json:"25%"`
	Q50    float64       `json:"50%"`
	Q75    float64       `json:"75%"`
	Max    float64       `json:"max"`
}

// Description summarizes a table.
type Description struct {
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
	Head    *core.Table  `json:"-"`
	Tail    *core.Table  `json:"-"`
	Stats   []Stats      `json:"stats"`
}

// Describe infers numeric columns and summarizes t.
func Describe(t *core.Table) *Description {
	typed := core.InferTypes(t)

	d := &Description{
		Rows: typed.Len(),
		Head: t.Head(PreviewRows),
		Tail: t.Tail(PreviewRows),
	}
	for _, c := range typed.Columns() {
		d.Columns = append(d.Columns, ColumnInfo{Name: c.Name(), Type: c.Type().String(), Nulls: c.NullCount()})
		if c.Type() == core.FieldInt || c.Type() == core.FieldFloat {
			if s, ok := ColumnStats(c); ok {
				d.Stats = append(d.Stats, s)
			}
		}
	}
	return d
}

// ColumnStats computes Stats for a numeric column. It reports false when the
// column has no non-null numeric cells.
func ColumnStats(c *core.Column) (Stats, bool) {
	values := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if f := c.Float(i); f.Valid {
			values = append(values, f.Float64)
		}
	}
	if len(values) == 0 {
		return Stats{}, false
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	n := float64(len(values))
	mean := sum / n

	s := Stats{
		Column: c.Name(),
		Count:  len(values),
		Mean:   mean,
		Min:    values[0],
		Q25:    quantile(values, 0.25),
		Q50:    quantile(values, 0.50),
		Q75:    quantile(values, 0.75),
		Max:    values[len(values)-1],
	}
	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			ss += (v - mean) * (v - mean)
		}
		s.Std = pgtype.Float8{Float64: math.Sqrt(ss / (n - 1)), Valid: true}
	}
	return s, true
}

// quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
