package core

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes t as delimited text: one header row with the column names,
// then one row per record. No row-index column is written. Nulls are empty
// cells and dates use DateLayout.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
