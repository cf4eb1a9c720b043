package core

// JoinResult describes the outcome of a left join.
type JoinResult struct {
	Table      *Table
	Misses     []string // Distinct left keys with no match, in first-seen order
	Duplicates []string // Right keys that appeared more than once
}

// LeftJoin joins right onto left where left[leftKey] equals right[rightKey].
//
// Every left row is kept in its original order, unmatched rows get null
// cells in every right column, and null left keys never match. The output
// holds all left columns followed by all right columns, the right key
// included. When right holds a key more than once the first occurrence is
// used, so the output always has exactly left.Len() rows.
//
// Keys are compared as formatted text. A right column whose name collides
// with a left column is a precondition violation.
func LeftJoin(left, right *Table, leftKey, rightKey string) (*JoinResult, error) {
	lk, err := left.Require("join", leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.Require("join", rightKey)
	if err != nil {
		return nil, err
	}
	for _, name := range right.Names() {
		if left.Index(name) >= 0 {
			return nil, &PreconditionError{Op: "join", Kind: DuplicateColumn, Name: name}
		}
	}

	lookup := make(map[string]int, right.Len())
	dupSeen := make(map[string]bool)
	res := &JoinResult{}
	for i := 0; i < right.Len(); i++ {
		if !rk.Valid(i) {
			continue
		}
		key := rk.Format(i)
		if _, exists := lookup[key]; exists {
			if !dupSeen[key] {
				dupSeen[key] = true
				res.Duplicates = append(res.Duplicates, key)
			}
			continue
		}
		lookup[key] = i
	}

	matches := make([]int, left.Len())
	missSeen := make(map[string]bool)
	for i := range matches {
		matches[i] = -1
		if !lk.Valid(i) {
			continue
		}
		key := lk.Format(i)
		if r, ok := lookup[key]; ok {
			matches[i] = r
			continue
		}
		if !missSeen[key] {
			missSeen[key] = true
			res.Misses = append(res.Misses, key)
		}
	}

	cols := append([]*Column(nil), left.Columns()...)
	for _, c := range right.Columns() {
		cols = append(cols, c.Take(matches))
	}
	res.Table, err = NewTable(cols...)
	if err != nil {
		return nil, err
	}
	return res, nil
}
