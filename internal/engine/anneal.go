package engine

import (
	"context"
	"math"
	"math/rand"

	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// AnnealingConfig parameterizes the simulated annealing optimizer. Defaults
// are 10000 iterations, an initial temperature of 20.0, and a cooling rate
// of 0.9995.
type AnnealingConfig struct {
	Iterations         int
	InitialTemperature float64
	CoolingRate        float64
}

// DefaultAnnealingConfig returns the default parameterization.
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{Iterations: 10000, InitialTemperature: 20.0, CoolingRate: 0.9995}
}

// ProgressFunc is invoked every 100 iterations with the iteration index, the
// total iteration count, and the best cost found so far. It must not mutate
// solver state.
type ProgressFunc func(iteration, total int, bestCost float64)

// AnnealingOptimizer searches the neighborhood of a feasible solution for a
// lower-cost one via move/swap neighbors and Metropolis acceptance.
type AnnealingOptimizer struct {
	cfg               AnnealingConfig
	evaluator         *CostEvaluator
	rng               *rand.Rand
	notPreferredSlots map[string]map[int]struct{}
}

// NewAnnealingOptimizer builds an optimizer with a seeded RNG so runs are
// reproducible given the same seed and inputs. It rejects a malformed
// AnnealingConfig (non-positive iterations, non-positive initial
// temperature, or a cooling rate outside (0,1)) with InvalidConfiguration
// rather than constructing an optimizer that would silently misbehave;
// e.g. a zero cooling rate collapses the temperature to zero from the first
// iteration on (cooling is applied before a temperature is used), after
// which Metropolis acceptance of any worsening move is impossible.
func NewAnnealingOptimizer(cfg AnnealingConfig, evaluator *CostEvaluator, seed int64, notPreferredSlots map[string]map[int]struct{}) (*AnnealingOptimizer, error) {
	if err := validateAnnealingConfig(cfg); err != nil {
		return nil, err
	}
	return &AnnealingOptimizer{
		cfg:               cfg,
		evaluator:         evaluator,
		rng:               rand.New(rand.NewSource(seed)),
		notPreferredSlots: notPreferredSlots,
	}, nil
}

// validateAnnealingConfig rejects non-positive iterations, a non-positive
// initial temperature, and a cooling rate outside (0,1). Weight
// validation lives with CostEvaluator since weights aren't part of
// AnnealingConfig; this covers the annealing-specific parameters.
func validateAnnealingConfig(cfg AnnealingConfig) error {
	if cfg.Iterations <= 0 {
		return apperrors.NewInvalidConfiguration("annealing iterations must be positive")
	}
	if cfg.InitialTemperature <= 0 {
		return apperrors.NewInvalidConfiguration("annealing initial temperature must be positive")
	}
	if cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1 {
		return apperrors.NewInvalidConfiguration("annealing cooling rate must lie strictly between 0 and 1")
	}
	return nil
}

// acceptanceProbability implements the Metropolis acceptance law:
// an improving or neutral move (delta <= 0) is always accepted; a worsening
// move is accepted with probability exp(-delta/temp) at the current
// temperature.
func acceptanceProbability(delta, temp float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	return math.Exp(-delta / temp)
}

// Optimize runs up to cfg.Iterations annealing steps starting from state and
// assignments (both treated as already-feasible). It returns the best
// assignment set found and its cost. Cancelling ctx returns the best
// solution found up to that point rather than an error.
func (o *AnnealingOptimizer) Optimize(ctx context.Context, state *State, assignments []Assignment, progress ProgressFunc) ([]Assignment, float64) {
	current := cloneAssignments(assignments)
	currentState := state.Clone()
	currentCost := o.evaluator.Total(current)

	best := cloneAssignments(current)
	bestCost := currentCost

	temp := o.cfg.InitialTemperature

	for i := 0; i < o.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return best, bestCost
		default:
		}

		// Cooling is applied before this iteration's neighbor is generated,
		// so the nominal initial temperature is never itself used.
		temp *= o.cfg.CoolingRate

		var candidate []Assignment
		var candidateState *State
		var ok bool
		if o.rng.Float64() < 0.5 {
			candidate, candidateState, ok = o.swapNeighbor(currentState, current)
		} else {
			candidate, candidateState, ok = o.moveNeighbor(currentState, current)
		}
		if !ok {
			if progress != nil && i%100 == 0 {
				progress(i, o.cfg.Iterations, bestCost)
			}
			continue
		}

		newCost := o.evaluator.Total(candidate)
		delta := newCost - currentCost
		if o.rng.Float64() < acceptanceProbability(delta, temp) {
			current = candidate
			currentState = candidateState
			currentCost = newCost
			if newCost < bestCost {
				best = cloneAssignments(candidate)
				bestCost = newCost
			}
		}

		if progress != nil && i%100 == 0 {
			progress(i, o.cfg.Iterations, bestCost)
		}
	}

	return best, bestCost
}

func cloneAssignments(in []Assignment) []Assignment {
	out := make([]Assignment, len(in))
	copy(out, in)
	return out
}

// swapNeighbor picks two distinct assignments of equal duration, swaps their
// (time sequence, room, instructor) values, and validates the result against
// each assignment's own session domain and not-preferred slots before
// checking consistency on a cloned, progressively-mutated state.
func (o *AnnealingOptimizer) swapNeighbor(state *State, assignments []Assignment) ([]Assignment, *State, bool) {
	if len(assignments) < 2 {
		return nil, nil, false
	}
	i, j := o.distinctPair(len(assignments))
	a1, a2 := assignments[i], assignments[j]
	if len(a1.TimeSequence) != len(a2.TimeSequence) {
		return nil, nil, false
	}

	clone := state.Clone()
	clone.Remove(a1)
	clone.Remove(a2)

	newA1 := Assignment{Session: a1.Session, TimeSequence: a2.TimeSequence, Room: a2.Room, Instructor: a2.Instructor}
	newA2 := Assignment{Session: a2.Session, TimeSequence: a1.TimeSequence, Room: a1.Room, Instructor: a1.Instructor}

	if !o.valueInDomain(newA1) || !o.valueInDomain(newA2) {
		return nil, nil, false
	}
	if o.avoids(newA1.Instructor, newA1.TimeSequence) || o.avoids(newA2.Instructor, newA2.TimeSequence) {
		return nil, nil, false
	}
	if !clone.IsConsistent(newA1.Session, newA1.TimeSequence, newA1.Room, newA1.Instructor) {
		return nil, nil, false
	}
	clone.Add(newA1)
	if !clone.IsConsistent(newA2.Session, newA2.TimeSequence, newA2.Room, newA2.Instructor) {
		return nil, nil, false
	}
	clone.Add(newA2)

	out := cloneAssignments(assignments)
	out[i] = newA1
	out[j] = newA2
	return out, clone, true
}

// moveNeighbor picks one assignment at random and relocates it to the first
// (time sequence, room) pair from its session's domain, visited in shuffled
// order, that keeps the state consistent. The instructor is unchanged.
func (o *AnnealingOptimizer) moveNeighbor(state *State, assignments []Assignment) ([]Assignment, *State, bool) {
	if len(assignments) == 0 {
		return nil, nil, false
	}
	idx := o.rng.Intn(len(assignments))
	a := assignments[idx]

	clone := state.Clone()
	clone.Remove(a)

	type pair struct {
		ts   TimeSequence
		room string
	}
	var candidates []pair
	for _, ts := range a.Session.Domain.TimeSequences {
		if o.avoids(a.Instructor, ts) {
			continue
		}
		for _, room := range a.Session.Domain.Rooms {
			candidates = append(candidates, pair{ts: ts, room: room})
		}
	}
	o.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	for _, c := range candidates {
		if clone.IsConsistent(a.Session, c.ts, c.room, a.Instructor) {
			moved := Assignment{Session: a.Session, TimeSequence: c.ts, Room: c.room, Instructor: a.Instructor}
			clone.Add(moved)
			out := cloneAssignments(assignments)
			out[idx] = moved
			return out, clone, true
		}
	}
	return nil, nil, false
}

func (o *AnnealingOptimizer) distinctPair(n int) (int, int) {
	i := o.rng.Intn(n)
	j := o.rng.Intn(n)
	for j == i {
		j = o.rng.Intn(n)
	}
	return i, j
}

func (o *AnnealingOptimizer) avoids(instructorID string, ts TimeSequence) bool {
	avoid, ok := o.notPreferredSlots[instructorID]
	if !ok {
		return false
	}
	for _, slot := range ts {
		if _, bad := avoid[slot]; bad {
			return true
		}
	}
	return false
}

// valueInDomain confirms a's instructor, room and time sequence are all
// members of a.Session's own precomputed domain; a swap must never move a
// session outside the admissible candidates the domain builder computed for
// it.
func (o *AnnealingOptimizer) valueInDomain(a Assignment) bool {
	d := a.Session.Domain
	instOK, roomOK, tsOK := false, false, false
	for _, id := range d.Instructors {
		if id == a.Instructor {
			instOK = true
			break
		}
	}
	for _, id := range d.Rooms {
		if id == a.Room {
			roomOK = true
			break
		}
	}
	for _, seq := range d.TimeSequences {
		if timeSequenceEqual(seq, a.TimeSequence) {
			tsOK = true
			break
		}
	}
	return instOK && roomOK && tsOK
}

func timeSequenceEqual(a, b TimeSequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
