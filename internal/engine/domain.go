package engine

import (
	"fmt"
	"sort"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// TimeSequence is a contiguous run of slot ids of a fixed length, never
// crossing a day boundary.
type TimeSequence []int

// Domain is the set of admissible (time sequence, room, instructor) choices
// for one Session, computed once per solve by the Domain Builder.
type Domain struct {
	TimeSequences []TimeSequence
	Rooms         []string
	Instructors   []string
}

// Empty reports whether any of the three coordinates has no candidates,
// which makes the owning session unsatisfiable.
func (d *Domain) Empty() bool {
	return len(d.TimeSequences) == 0 || len(d.Rooms) == 0 || len(d.Instructors) == 0
}

// DomainBuilder computes Domains for every Session against a Catalog.
type DomainBuilder struct {
	ExcludedLectureSpaces map[string]struct{}
}

// NewDomainBuilder constructs a builder; a nil excluded set falls back to
// the default {"Drawing Studio", "Computer"}.
func NewDomainBuilder(excludedLectureSpaces map[string]struct{}) *DomainBuilder {
	if excludedLectureSpaces == nil {
		excludedLectureSpaces = catalog.DefaultExcludedLectureSpaces()
	}
	return &DomainBuilder{ExcludedLectureSpaces: excludedLectureSpaces}
}

// BuildAll fills in Domain for every session. It returns an EmptyDomain error
// naming every unsatisfiable session rather than failing on the first one,
// so a caller can see the full scope of the problem at once.
func (b *DomainBuilder) BuildAll(cat *catalog.Catalog, sessions []*Session) error {
	sequencesByDuration := map[int][]TimeSequence{}

	var unsatisfiable []int
	for _, s := range sessions {
		seqs, ok := sequencesByDuration[s.DurationSlots]
		if !ok {
			seqs = b.consecutiveSequences(cat, s.DurationSlots)
			sequencesByDuration[s.DurationSlots] = seqs
		}

		course := cat.Courses[s.CourseID]
		domain := &Domain{
			TimeSequences: seqs,
			Rooms:         b.filterRooms(cat, s, course),
			Instructors:   b.filterInstructors(cat, s, course),
		}
		s.Domain = domain
		if domain.Empty() {
			unsatisfiable = append(unsatisfiable, s.ID)
		}
	}

	if len(unsatisfiable) > 0 {
		return apperrors.NewEmptyDomain(fmt.Sprintf("sessions with empty domain: %v", unsatisfiable))
	}
	return nil
}

// consecutiveSequences slides a window of the given length across each
// day's slots (sorted ascending by id) and keeps windows whose consecutive
// ids differ by exactly one. A sequence never spans two days. The result is
// ordered by the first slot id of each sequence.
func (b *DomainBuilder) consecutiveSequences(cat *catalog.Catalog, duration int) []TimeSequence {
	if duration <= 0 {
		return nil
	}
	var out []TimeSequence
	for _, daySlots := range cat.SlotsByDay {
		if len(daySlots) < duration {
			continue
		}
		for start := 0; start+duration <= len(daySlots); start++ {
			window := daySlots[start : start+duration]
			consecutive := true
			for i := 1; i < len(window); i++ {
				if window[i].ID != window[i-1].ID+1 {
					consecutive = false
					break
				}
			}
			if !consecutive {
				continue
			}
			seq := make(TimeSequence, duration)
			for i, slot := range window {
				seq[i] = slot.ID
			}
			out = append(out, seq)
		}
	}
	// SlotsByDay is a map, so order the result by first slot id to keep
	// value ordering reproducible across runs.
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (b *DomainBuilder) filterRooms(cat *catalog.Catalog, s *Session, course catalog.Course) []string {
	var out []string
	for id, room := range cat.Rooms {
		if room.Capacity < s.TotalStudents {
			continue
		}
		if s.Kind == SessionKindLab {
			if room.SpaceType != course.LabSpaceType {
				continue
			}
		} else {
			if _, excluded := b.ExcludedLectureSpaces[room.SpaceType]; excluded {
				continue
			}
			if !s.IsSmallGroup && room.Kind != catalog.RoomKindLecture {
				continue
			}
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// filterInstructors prefers the intersection of preferred instructors with
// the catalog; if that intersection is empty (including when no preference
// was declared at all), it falls back to every instructor qualified for the
// course.
func (b *DomainBuilder) filterInstructors(cat *catalog.Catalog, s *Session, course catalog.Course) []string {
	var preferredInCatalog []string
	for id := range s.PreferredInstructors {
		if _, ok := cat.Instructors[id]; ok {
			preferredInCatalog = append(preferredInCatalog, id)
		}
	}
	if len(preferredInCatalog) > 0 {
		sort.Strings(preferredInCatalog)
		return preferredInCatalog
	}

	var qualified []string
	for id, inst := range cat.Instructors {
		if inst.IsQualifiedFor(course.ID) {
			qualified = append(qualified, id)
		}
	}
	sort.Strings(qualified)
	return qualified
}
