package engine

import (
	"fmt"
	"sort"

	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// candidateValue is one (time sequence, instructor, room) combination
// considered for a session during value ordering.
type candidateValue struct {
	ts    TimeSequence
	inst  string
	room  string
	score int
}

// BacktrackingSolver constructs a first feasible assignment for every
// session via static-MRV depth-first search.
type BacktrackingSolver struct {
	NodesExplored int

	notPreferredSlots map[string]map[int]struct{}
}

// NewBacktrackingSolver returns a ready-to-use solver. notPreferredSlots maps
// instructor id to the set of slot ids that instructor has declared it will
// not teach; it is used to filter value ordering, never to narrow a domain.
func NewBacktrackingSolver(notPreferredSlots map[string]map[int]struct{}) *BacktrackingSolver {
	return &BacktrackingSolver{notPreferredSlots: notPreferredSlots}
}

// Solve orders sessions once by ascending domain size (MRV) and performs a
// depth-first search, returning the completed State and the Assignment for
// every session, in the order of the sessions argument. It fails with
// Infeasible if the search space is exhausted.
func (b *BacktrackingSolver) Solve(sessions []*Session) (*State, []Assignment, error) {
	ordered := make([]*Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return domainSize(ordered[i]) < domainSize(ordered[j])
	})

	state := NewState()
	assignments := make(map[int]Assignment, len(ordered))

	b.NodesExplored = 0
	if !b.recurse(ordered, state, assignments) {
		return nil, nil, apperrors.NewInfeasible(fmt.Sprintf("no feasible assignment found after exploring %d nodes", b.NodesExplored))
	}

	out := make([]Assignment, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, assignments[s.ID])
	}
	return state, out, nil
}

func domainSize(s *Session) int {
	d := s.Domain
	return len(d.TimeSequences) * len(d.Rooms) * len(d.Instructors)
}

// recurse pops the front session off unassigned, tries its ordered values,
// and backtracks on failure. It mutates state and assignments in place; on
// returning false it has fully undone any partial progress it made.
func (b *BacktrackingSolver) recurse(unassigned []*Session, state *State, assignments map[int]Assignment) bool {
	if len(unassigned) == 0 {
		return true
	}
	session := unassigned[0]
	rest := unassigned[1:]

	for _, v := range b.orderedValues(session) {
		b.NodesExplored++
		if !state.IsConsistent(session, v.ts, v.room, v.inst) {
			continue
		}
		assignment := Assignment{Session: session, TimeSequence: v.ts, Room: v.room, Instructor: v.inst}
		state.Add(assignment)
		assignments[session.ID] = assignment

		if b.recurse(rest, state, assignments) {
			return true
		}

		state.Remove(assignment)
		delete(assignments, session.ID)
	}
	return false
}

// orderedValues enumerates the Cartesian product of a session's domain,
// first dropping any time sequence that overlaps an instructor's declared
// not-preferred slots, then sorting by heuristic score: preferred
// instructors (score -10) sort before all others (score 0).
func (b *BacktrackingSolver) orderedValues(s *Session) []candidateValue {
	var values []candidateValue
	for _, ts := range s.Domain.TimeSequences {
		for _, inst := range s.Domain.Instructors {
			if b.instructorAvoids(inst, ts) {
				continue
			}
			score := 0
			if _, preferred := s.PreferredInstructors[inst]; preferred {
				score = -10
			}
			for _, room := range s.Domain.Rooms {
				values = append(values, candidateValue{ts: ts, inst: inst, room: room, score: score})
			}
		}
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].score < values[j].score
	})
	return values
}

func (b *BacktrackingSolver) instructorAvoids(instructorID string, ts TimeSequence) bool {
	avoid, ok := b.notPreferredSlots[instructorID]
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
