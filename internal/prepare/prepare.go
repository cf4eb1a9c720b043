package prepare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/logging"
)

// Sink persists a prepared table.
type Sink interface {
	Name() string
	Write(ctx context.Context, t *core.Table) error
}

// Inspector receives the table state after every step.
type Inspector interface {
	Inspect(step StepResult, t *core.Table)
}

// Observer records run and step outcomes, typically as metrics.
type Observer interface {
	ObserveStep(recipe string, step StepResult)
	ObserveRun(recipe string, res *Result, err error)
}

// StepResult summarizes one completed step.
type StepResult struct {
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Affected []string      `json:"affected,omitempty"` // Columns the step added, removed or rewrote
	Elapsed  time.Duration `json:"elapsed"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string        `json:"run_id"`
	Recipe     string        `json:"recipe"`
	Table      *core.Table   `json:"-"`
	RowsIn     int           `json:"rows_in"`
	RowsOut    int           `json:"rows_out"`
	Steps      []StepResult  `json:"steps"`
	JoinMisses []string      `json:"join_misses"`                  // Join keys with no reference entry
	Unknown    []string      `json:"unknown_categories,omitempty"` // Category values outside the vocabulary
	Persisted  []string      `json:"persisted"`                    // Names of the sinks written
	Elapsed    time.Duration `json:"elapsed"`
}

// Step names, in execution order.
const (
	StepDropColumns       = "drop_columns"
	StepDropRows          = "drop_rows"
	StepNormalizeCategory = "normalize_category"
	StepCoerceIntegers    = "coerce_integers"
	StepCoerceDates       = "coerce_dates"
	StepDeriveDuration    = "derive_duration"
	StepJoinReference     = "join_reference"
	StepPersist           = "persist"
)

// Preparer runs a Plan against raw and reference tables.
// A Preparer holds no per-run state and may be shared between goroutines.
type Preparer struct {
	name      string
	plan      Plan
	sinks     []Sink
	logger    *slog.Logger
	inspector Inspector
	observer  Observer
	newID     func() string
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithSinks sets the sinks the prepared table is written to, in order.
func WithSinks(sinks ...Sink) Option {
	return func(p *Preparer) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Preparer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInspector sets an inspector called after every step.
func WithInspector(i Inspector) Option {
	return func(p *Preparer) {
		p.inspector = i
	}
}

// WithObserver sets an observer for step and run outcomes.
func WithObserver(o Observer) Option {
	return func(p *Preparer) {
		p.observer = o
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(fn func() string) Option {
	return func(p *Preparer) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a Preparer for the named plan.
func New(name string, plan Plan, opts ...Option) *Preparer {
	p := &Preparer{
		name:   name,
		plan:   plan,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ForRecipe creates a Preparer for a registered recipe.
func ForRecipe(r Recipe, opts ...Option) *Preparer {
	return New(r.Name, r.Plan, opts...)
}

// Plan returns the plan the Preparer runs.
func (p *Preparer) Plan() Plan { return p.plan }

// run is the state threaded through the steps of one invocation.
type run struct {
	table   *core.Table
	ref     *core.Table
	misses  []string
	unknown []string
	logger  *slog.Logger
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) ([]string, error)
}

func (p *Preparer) steps() []step {
	return []step{
		{StepDropColumns, p.dropColumns},
		{StepDropRows, p.dropRows},
		{StepNormalizeCategory, p.normalizeCategory},
		{StepCoerceIntegers, p.coerceIntegers},
		{StepCoerceDates, p.coerceDates},
		{StepDeriveDuration, p.deriveDuration},
		{StepJoinReference, p.joinReference},
	}
}

// Prepare runs every step in order and writes the result to each sink.
//
// The first failing step aborts the run; nothing is persisted in that case.
// Join misses and category values outside the vocabulary are not errors;
// they are listed in Result.JoinMisses and Result.Unknown.
func (p *Preparer) Prepare(ctx context.Context, raw, ref *core.Table) (res *Result, err error) {
	start := time.Now()
	res = &Result{
		RunID:  p.newID(),
		Recipe: p.name,
		RowsIn: raw.Len(),
	}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.Enrich(ctx, p.logger).With("recipe", p.name)

	defer func() {
		if p.observer != nil {
			p.observer.ObserveRun(p.name, res, err)
		}
		if err != nil {
			logger.Error("preparation failed", "error", err, "code", core.MapError(err).Code)
		}
	}()

	if err := core.ValidateHeaders(raw, p.plan.RawSpecs()); err != nil {
		return res, fmt.Errorf("raw table: %w", err)
	}
	if err := core.ValidateHeaders(ref, p.plan.ReferenceSpecs()); err != nil {
		return res, fmt.Errorf("reference table: %w", err)
	}

	logger.Info("preparation started", "rows", raw.Len(), "columns", raw.Width())

	r := &run{table: raw, ref: ref, logger: logger}
	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %w", s.name, err)
		}
		stepStart := time.Now()
		affected, err := s.fn(ctx, r)
		if err != nil {
			return res, fmt.Errorf("%s: %w", s.name, err)
		}
		p.record(res, logger, StepResult{
			Name:     s.name,
			Rows:     r.table.Len(),
			Columns:  r.table.Width(),
			Affected: affected,
			Elapsed:  time.Since(stepStart),
		}, r.table)
	}

	if err := core.ValidateTypes(r.table, p.plan.OutputSpecs()); err != nil {
		return res, fmt.Errorf("prepared table: %w", err)
	}

	res.Table = r.table
	res.RowsOut = r.table.Len()
	res.JoinMisses = r.misses
	res.Unknown = r.unknown

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%s: %w", StepPersist, err)
	}
	persistStart := time.Now()
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, r.table); err != nil {
			return res, fmt.Errorf("%s: %s: %w", StepPersist, sink.Name(), err)
		}
		res.Persisted = append(res.Persisted, sink.Name())
	}
	p.record(res, logger, StepResult{
		Name:     StepPersist,
		Rows:     r.table.Len(),
		Columns:  r.table.Width(),
		Affected: res.Persisted,
		Elapsed:  time.Since(persistStart),
	}, r.table)

	res.Elapsed = time.Since(start)
	logger.Info("preparation completed",
		"rows_in", res.RowsIn,
		"rows_out", res.RowsOut,
		"join_misses", len(res.JoinMisses),
		"sinks", len(res.Persisted),
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (p *Preparer) record(res *Result, logger *slog.Logger, sr StepResult, t *core.Table) {
	res.Steps = append(res.Steps, sr)
	logger.Debug("step completed",
		"step", sr.Name,
		"rows", sr.Rows,
		"columns", sr.Columns,
		"affected", sr.Affected,
		"elapsed", sr.Elapsed,
	)
	if p.inspector != nil {
		p.inspector.Inspect(sr, t)
	}
	if p.observer != nil {
		p.observer.ObserveStep(p.name, sr)
	}
}
