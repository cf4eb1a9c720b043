package report

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// NullCount is the number of null cells in one column.
type NullCount struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// MissingReport lists null counts per column and the rows holding any null.
type MissingReport struct {
	Counts []NullCount `json:"counts"`
	Rows   []int       `json:"rows"`
	Sample *core.Table `json:"-"` // The rows listed in Rows
}

// Missing reports null cells in t.
func Missing(t *core.Table) *MissingReport {
	m := &MissingReport{Rows: t.RowsWithNulls()}
	for _, c := range t.Columns() {
		m.Counts = append(m.Counts, NullCount{Column: c.Name(), Nulls: c.NullCount()})
	}
	m.Sample = t.Take(m.Rows)
	return m
}

// ValueCount is the number of occurrences of one categorical value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoryReport describes the distinct values of a column.
type CategoryReport struct {
	Column string       `json:"column"`
	Values []string     `json:"values"` // Distinct non-null values in first-seen order
	Counts []ValueCount `json:"counts"` // Sorted by count descending, then value
	Nulls  int          `json:"nulls"`
}

// Categories reports the distinct values of a column.
func Categories(t *core.Table, column string) (*CategoryReport, error) {
	c, err := t.Require("categories", column)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	r := &CategoryReport{Column: column}
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if !c.Valid(i) {
			r.Nulls++
			continue
		}
		v := c.Format(i)
		if counts[v] == 0 {
			r.Values = append(r.Values, v)
		}
		counts[v]++
	}

	for _, v := range r.Values {
		r.Counts = append(r.Counts, ValueCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(r.Counts, func(i, j int) bool {
		if r.Counts[i].Count != r.Counts[j].Count {
			return r.Counts[i].Count > r.Counts[j].Count
		}
		return r.Counts[i].Value < r.Counts[j].Value
	})
	return r, nil
}
