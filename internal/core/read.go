package core

// read.go loads tables from delimited text and spreadsheet files.
//
// Inputs are decoded before parsing:
//   - Any WHATWG encoding label is accepted ("utf-8", "windows-1252", "latin1", ...)
//   - A leading byte order mark is stripped and selects the matching Unicode decoding
//   - Undecodable bytes fail the read unless IgnoreInvalid is set, in which case
//     they are dropped from the cell they appear in
//
// Every cell is read as text; missing markers become nulls. Type coercion is
// a separate step (see convert.go).

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned when an input has no header row.
var ErrEmptyFile = errors.New("empty file")

// ReadOptions controls how a table file is read.
type ReadOptions struct {
	Encoding      string   // WHATWG encoding label, default utf-8
	IgnoreInvalid bool     // Drop undecodable bytes instead of failing
	Sheet         string   // Spreadsheet sheet name or 0-based index, default first sheet
	Columns       []string // Keep only these columns, in this order; empty keeps all
	Comma         rune     // Field delimiter for delimited text, default ','
}

// ReadFile reads a table from path, choosing the format by extension.
// .xlsx, .xlsm and .xltx files are read as spreadsheets, anything else as
// delimited text.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var t *Table
	if IsSpreadsheet(path) {
		t, err = ReadXLSX(f, opts)
	} else {
		t, err = ReadCSV(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// IsSpreadsheet reports whether a file name has a spreadsheet extension.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx":
		return true
	default:
		return false
	}
}

// ReadCSV reads a delimited text table. The first record is the header.
// Every record must have the same number of fields as the header.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	dec, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return buildTable(records, opts)
}

// ReadXLSX reads one sheet of a spreadsheet. The first row is the header.
func ReadXLSX(r io.Reader, opts ReadOptions) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return buildTable(rows, opts)
}

// resolveSheet maps a sheet name or 0-based index to a sheet name.
func resolveSheet(f *excelize.File, sheet string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptyFile
	}
	if sheet == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == sheet {
			return s, nil
		}
	}
	if i, err := strconv.Atoi(sheet); err == nil {
		if i < 0 || i >= len(sheets) {
			return "", &PreconditionError{Op: "select sheet", Kind: RowOutOfRange, Row: i, Rows: len(sheets)}
		}
		return sheets[i], nil
	}
	return "", fmt.Errorf("sheet not found: %q (have %s)", sheet, strings.Join(sheets, ", "))
}

// decodeReader wraps r with the decoder for label, stripping any BOM.
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("encoding error: unknown encoding %q: %w", label, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// buildTable turns header + records into a table, applying the invalid-byte
// policy and column selection.
func buildTable(records [][]string, opts ReadOptions) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyFile
	}

	for r, rec := range records {
		for c, cell := range rec {
			if !strings.ContainsRune(cell, utf8.RuneError) {
				continue
			}
			if !opts.IgnoreInvalid {
				return nil, fmt.Errorf("encoding error: invalid byte sequence at line %d, field %d", r+1, c+1)
			}
			rec[c] = strings.ReplaceAll(cell, string(utf8.RuneError), "")
		}
	}

	t, err := FromRecords(records[0], records[1:])
	if err != nil {
		return nil, err
	}
	if len(opts.Columns) > 0 {
		return t.Select(opts.Columns...)
	}
	return t, nil
}
