package engine

import (
	"context"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
)

// Config bundles every tunable parameter a solve run needs.
type Config struct {
	MaxGroupCapacity      int
	ExcludedLectureSpaces map[string]struct{}
	Weights               Weights
	Annealing             AnnealingConfig
	Seed                  int64
}

// DefaultConfig returns the default parameterization end to end.
func DefaultConfig() Config {
	return Config{
		MaxGroupCapacity:      catalog.DefaultMaxGroupCapacity,
		ExcludedLectureSpaces: catalog.DefaultExcludedLectureSpaces(),
		Weights:               DefaultWeights(),
		Annealing:             DefaultAnnealingConfig(),
		Seed:                  1,
	}
}

// Phase1Result is the outcome of running the Variable Builder, Domain
// Builder and Backtracking Solver to produce a first feasible assignment.
type Phase1Result struct {
	Sessions      []*Session
	Warnings      []Warning
	State         *State
	Assignments   []Assignment
	NodesExplored int
	InitialCost   float64
}

// ValidateConfig rejects a malformed Config before any solving work begins
// (negative weight, non-positive iterations,
// cooling_rate outside (0,1)). Both SolvePhase1 and Optimize enforce this
// again at their own point of construction, but callers that want to fail a
// request before running the (potentially expensive) backtracking phase
// should call this first.
func ValidateConfig(cfg Config) error {
	if err := validateWeights(cfg.Weights); err != nil {
		return err
	}
	return validateAnnealingConfig(cfg.Annealing)
}

// SolvePhase1 runs the synchronous portion of a solve: building sessions,
// computing domains, and backtracking to a first feasible assignment. It
// never blocks on I/O and is safe to run on the caller's goroutine.
func SolvePhase1(cat *catalog.Catalog, cfg Config) (*Phase1Result, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	builder := NewVariableBuilder(cfg.MaxGroupCapacity)
	sessions, warnings, err := builder.Build(cat)
	if err != nil {
		return nil, err
	}

	domainBuilder := NewDomainBuilder(cfg.ExcludedLectureSpaces)
	if err := domainBuilder.BuildAll(cat, sessions); err != nil {
		return nil, err
	}

	solver := NewBacktrackingSolver(notPreferredIndex(cat))
	state, assignments, err := solver.Solve(sessions)
	if err != nil {
		return nil, err
	}

	evaluator, err := NewCostEvaluator(cat, cfg.Weights)
	if err != nil {
		return nil, err
	}
	return &Phase1Result{
		Sessions:      sessions,
		Warnings:      warnings,
		State:         state,
		Assignments:   assignments,
		NodesExplored: solver.NodesExplored,
		InitialCost:   evaluator.Total(assignments),
	}, nil
}

// OptimizeResult is the outcome of running the annealing optimizer.
type OptimizeResult struct {
	Assignments []Assignment
	Cost        float64
}

// Optimize runs the asynchronous, cancellable annealing phase against an
// already-feasible Phase1Result. Callers typically run this on a background
// worker (see pkg/jobs) rather than the request goroutine. It returns an
// InvalidConfiguration error without running a single iteration if cfg's
// weights or annealing parameters are malformed; the optimizer never
// fails mid-run once started, but construction can.
func Optimize(ctx context.Context, cat *catalog.Catalog, cfg Config, phase1 *Phase1Result, progress ProgressFunc) (OptimizeResult, error) {
	evaluator, err := NewCostEvaluator(cat, cfg.Weights)
	if err != nil {
		return OptimizeResult{}, err
	}
	optimizer, err := NewAnnealingOptimizer(cfg.Annealing, evaluator, cfg.Seed, notPreferredIndex(cat))
	if err != nil {
		return OptimizeResult{}, err
	}
	best, bestCost := optimizer.Optimize(ctx, phase1.State, phase1.Assignments, progress)
	return OptimizeResult{Assignments: best, Cost: bestCost}, nil
}

func notPreferredIndex(cat *catalog.Catalog) map[string]map[int]struct{} {
	index := make(map[string]map[int]struct{}, len(cat.Instructors))
	for id, inst := range cat.Instructors {
		index[id] = inst.NotPreferredSlots
	}
	return index
}
