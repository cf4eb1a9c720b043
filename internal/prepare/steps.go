package prepare

import (
	"context"
	"strings"

	"github.com/JonMunkholm/paraprep/internal/core"
)

func (p *Preparer) dropColumns(_ context.Context, r *run) ([]string, error) {
	t, err := r.table.Drop(p.plan.DropColumns...)
	if err != nil {
		return nil, err
	}
	r.table = t
	return p.plan.DropColumns, nil
}

func (p *Preparer) dropRows(_ context.Context, r *run) ([]string, error) {
	t, err := r.table.DropRows(p.plan.DropRows...)
	if err != nil {
		return nil, err
	}
	r.table = t
	return nil, nil
}

// normalizeCategory trims every value and then applies the rewrites, so a
// padded bad spelling is still corrected. Values outside the vocabulary are
// kept as they are and reported.
func (p *Preparer) normalizeCategory(_ context.Context, r *run) ([]string, error) {
	rule := p.plan.Category
	c, err := r.table.Require("normalize category", rule.Column)
	if err != nil {
		return nil, err
	}
	c, err = c.MapText(func(s string) string {
		s = strings.TrimSpace(s)
		if canon, ok := rule.Rewrites[s]; ok {
			return canon
		}
		return s
	})
	if err != nil {
		return nil, &core.PreconditionError{Op: "normalize category", Kind: core.WrongType, Name: rule.Column}
	}
	if unknown := core.UnknownValues(c, rule.Vocabulary); len(unknown) > 0 {
		r.logger.Warn("category values without a rewrite",
			"column", rule.Column,
			"values", unknown,
		)
		r.unknown = unknown
	}
	if r.table, err = r.table.Replace(c); err != nil {
		return nil, err
	}
	return []string{rule.Column}, nil
}

func (p *Preparer) coerceIntegers(_ context.Context, r *run) ([]string, error) {
	for _, name := range p.plan.IntColumns {
		c, err := r.table.Require("coerce integers", name)
		if err != nil {
			return nil, err
		}
		if c, err = core.ToInt(c); err != nil {
			return nil, err
		}
		if r.table, err = r.table.Replace(c); err != nil {
			return nil, err
		}
	}
	return p.plan.IntColumns, nil
}

func (p *Preparer) coerceDates(_ context.Context, r *run) ([]string, error) {
	for _, name := range p.plan.DateColumns {
		c, err := r.table.Require("coerce dates", name)
		if err != nil {
			return nil, err
		}
		if c, err = core.ToDate(c, p.plan.DateLayout); err != nil {
			return nil, err
		}
		if r.table, err = r.table.Replace(c); err != nil {
			return nil, err
		}
	}
	return p.plan.DateColumns, nil
}

func (p *Preparer) deriveDuration(_ context.Context, r *run) ([]string, error) {
	rule := p.plan.Duration
	start, err := r.table.Require("derive duration", rule.Start)
	if err != nil {
		return nil, err
	}
	end, err := r.table.Require("derive duration", rule.End)
	if err != nil {
		return nil, err
	}
	d, err := core.DaysBetween(rule.Name, start, end)
	if err != nil {
		return nil, err
	}
	if r.table, err = r.table.InsertAfter(rule.End, d); err != nil {
		return nil, err
	}
	return []string{rule.Name}, nil
}

// joinReference rewrites the key column, left joins the reference value and
// drops the reference key.
func (p *Preparer) joinReference(_ context.Context, r *run) ([]string, error) {
	rule := p.plan.Join

	key, err := r.table.Require("join", rule.Column)
	if err != nil {
		return nil, err
	}
	if len(rule.Renames) > 0 {
		key, err = key.MapText(func(s string) string {
			if to, ok := rule.Renames[s]; ok {
				return to
			}
			return s
		})
		if err != nil {
			return nil, &core.PreconditionError{Op: "join", Kind: core.WrongType, Name: rule.Column}
		}
		if r.table, err = r.table.Replace(key); err != nil {
			return nil, err
		}
	}

	ref, err := r.ref.Select(rule.ReferenceKey, rule.ReferenceValue)
	if err != nil {
		return nil, err
	}
	joined, err := core.LeftJoin(r.table, ref, rule.Column, rule.ReferenceKey)
	if err != nil {
		return nil, err
	}
	if len(joined.Duplicates) > 0 {
		r.logger.Warn("duplicate reference keys, first occurrence used",
			"column", rule.ReferenceKey,
			"keys", joined.Duplicates,
		)
	}
	if len(joined.Misses) > 0 {
		r.logger.Info("join keys without reference entry",
			"column", rule.Column,
			"keys", joined.Misses,
		)
	}

	t, err := joined.Table.Drop(rule.ReferenceKey)
	if err != nil {
		return nil, err
	}
	out := rule.OutputName()
	if out != rule.ReferenceValue {
		if t, err = t.Rename(rule.ReferenceValue, out); err != nil {
			return nil, err
		}
	}

	r.table = t
	r.misses = joined.Misses
	return []string{rule.Column, out}, nil
}
