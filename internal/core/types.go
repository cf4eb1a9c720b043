package core

import "strings"

// FieldType represents the data type held by a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldFloat
	FieldDate
)

// String returns a human-readable name for a field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	case FieldDate:
		return "date"
	default:
		return "value"
	}
}

// DateLayout is the layout used when writing date cells.
const DateLayout = "2006-01-02"

// FieldSpec describes a column a table is expected to carry.
type FieldSpec struct {
	Name     string    // Column header name (must match exactly)
	Type     FieldType // Expected data type after preparation
	Required bool      // Column must exist in the header
}

// MissingMarkers are the cell values treated as null when reading a table.
// Matching is exact after trimming surrounding whitespace.
var MissingMarkers = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "<NA>",
}

// IsMissing reports whether a raw cell value represents a missing value.
func IsMissing(s string) bool {
	s = strings.TrimSpace(s)
	for _, m := range MissingMarkers {
		if s == m {
			return true
		}
	}
	return false
}

// HeaderIndex maps column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Names are cleaned with CleanCell but keep their case, since column names
// in prepared output are case-sensitive.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[CleanCell(h)] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a header value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
