package engine

// Assignment binds one Session to a concrete time sequence, room and
// instructor. Assignments are treated as immutable value records; a solver
// replaces one by removing then adding, never by mutating fields in place.
type Assignment struct {
	Session      *Session
	TimeSequence TimeSequence
	Room         string
	Instructor   string
}

// State tracks slot occupancy for every instructor, room and section. It is
// owned exclusively by whichever solver is actively mutating it; callers
// must Clone before handing a copy to a concurrent neighbor evaluation.
type State struct {
	instructorSlots map[string]map[int]struct{}
	roomSlots       map[string]map[int]struct{}
	sectionSlots    map[string]map[int]struct{}
}

// NewState returns an empty occupancy state.
func NewState() *State {
	return &State{
		instructorSlots: map[string]map[int]struct{}{},
		roomSlots:       map[string]map[int]struct{}{},
		sectionSlots:    map[string]map[int]struct{}{},
	}
}

// IsConsistent reports whether assigning ts/room/instructor to session would
// not collide with any slot already occupied by that instructor, that room,
// or any of the session's sections.
func (s *State) IsConsistent(session *Session, ts TimeSequence, room, instructor string) bool {
	instSlots := s.instructorSlots[instructor]
	roomSlotSet := s.roomSlots[room]
	for _, slot := range ts {
		if _, ok := instSlots[slot]; ok {
			return false
		}
		if _, ok := roomSlotSet[slot]; ok {
			return false
		}
		for _, sectionID := range session.Sections {
			if _, ok := s.sectionSlots[sectionID][slot]; ok {
				return false
			}
		}
	}
	return true
}

// Add records the occupancy of an assignment across all three maps. The
// caller is responsible for having checked IsConsistent beforehand.
func (s *State) Add(a Assignment) {
	s.ensure(s.instructorSlots, a.Instructor)
	s.ensure(s.roomSlots, a.Room)
	for _, slot := range a.TimeSequence {
		s.instructorSlots[a.Instructor][slot] = struct{}{}
		s.roomSlots[a.Room][slot] = struct{}{}
		for _, sectionID := range a.Session.Sections {
			s.ensure(s.sectionSlots, sectionID)
			s.sectionSlots[sectionID][slot] = struct{}{}
		}
	}
}

// Remove undoes exactly what Add(a) did; it is the exact inverse.
func (s *State) Remove(a Assignment) {
	for _, slot := range a.TimeSequence {
		delete(s.instructorSlots[a.Instructor], slot)
		delete(s.roomSlots[a.Room], slot)
		for _, sectionID := range a.Session.Sections {
			delete(s.sectionSlots[sectionID], slot)
		}
	}
}

func (s *State) ensure(m map[string]map[int]struct{}, key string) {
	if _, ok := m[key]; !ok {
		m[key] = map[int]struct{}{}
	}
}

// Clone deep-copies the state for neighbor generation in the annealing
// optimizer, which must never mutate the solver's authoritative state while
// speculatively evaluating a candidate move.
func (s *State) Clone() *State {
	clone := NewState()
	clone.instructorSlots = cloneSlotMap(s.instructorSlots)
	clone.roomSlots = cloneSlotMap(s.roomSlots)
	clone.sectionSlots = cloneSlotMap(s.sectionSlots)
	return clone
}

func cloneSlotMap(m map[string]map[int]struct{}) map[string]map[int]struct{} {
	out := make(map[string]map[int]struct{}, len(m))
	for k, v := range m {
		inner := make(map[int]struct{}, len(v))
		for slot := range v {
			inner[slot] = struct{}{}
		}
		out[k] = inner
	}
	return out
}
