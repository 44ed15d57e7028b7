package engine

import (
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
)

// SessionKind distinguishes the two modalities a course can require.
type SessionKind string

const (
	SessionKindLecture SessionKind = "Lecture"
	SessionKindLab     SessionKind = "Lab"
)

// Session is the atomic unit the solver assigns a time sequence, room and
// instructor to. It is synthesized from a CourseOffering by the Variable
// Builder and never mutated once built; only its Domain field is filled
// in later, by the Domain Builder.
type Session struct {
	ID                   int
	CourseID             string
	Kind                 SessionKind
	DurationSlots        int
	Sections             []string
	TotalStudents        int
	IsSmallGroup         bool
	PreferredInstructors map[string]struct{}
	Domain               *Domain
}

// VariableBuilder expands a Catalog's course offerings into Sessions.
// The session id counter (nextSessionID) is local to each Builder and reset
// per Build call, never a
// package-level singleton, so repeated solves in the same process never
// leak session ids across runs.
type VariableBuilder struct {
	MaxGroupCapacity int
	nextSessionID    int
}

// NewVariableBuilder constructs a builder with the given grouping cap.
func NewVariableBuilder(maxGroupCapacity int) *VariableBuilder {
	if maxGroupCapacity <= 0 {
		maxGroupCapacity = catalog.DefaultMaxGroupCapacity
	}
	return &VariableBuilder{MaxGroupCapacity: maxGroupCapacity}
}

// Warning reports a course offering that was skipped rather than failing the
// whole build.
type Warning struct {
	Offering catalog.CourseOffering
	Reason   string
}

// Build expands every CourseOffering in cat into Sessions, returning any
// offerings it had to skip (unknown course, or no matching sections).
func (b *VariableBuilder) Build(cat *catalog.Catalog) ([]*Session, []Warning, error) {
	b.nextSessionID = 0
	var sessions []*Session
	var warnings []Warning

	sortedSectionIDs := cat.SortedSectionIDs()

	for _, offering := range cat.CourseOfferings {
		course, ok := cat.Courses[offering.CourseID]
		if !ok {
			warnings = append(warnings, Warning{Offering: offering, Reason: "unknown course id"})
			continue
		}

		var matched []catalog.Section
		for _, id := range sortedSectionIDs {
			sec := cat.Sections[id]
			if offering.Matches(sec) {
				matched = append(matched, sec)
			}
		}
		if len(matched) == 0 {
			warnings = append(warnings, Warning{Offering: offering, Reason: "no matching sections"})
			continue
		}

		if course.LectureDurationSlots > 0 {
			sessions = append(sessions, b.buildLectureSessions(course, offering, matched)...)
		}
		if course.LabDurationSlots > 0 {
			sessions = append(sessions, b.buildLabSessions(course, offering, matched)...)
		}
	}

	return sessions, warnings, nil
}

func (b *VariableBuilder) buildLectureSessions(course catalog.Course, offering catalog.CourseOffering, sections []catalog.Section) []*Session {
	preferred := map[string]struct{}{}
	if offering.PreferredProfessor != "" {
		preferred[offering.PreferredProfessor] = struct{}{}
	}

	var out []*Session
	var group []catalog.Section
	total := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		ids := make([]string, len(group))
		for i, s := range group {
			ids[i] = s.ID
		}
		out = append(out, &Session{
			ID:                   b.allocateID(),
			CourseID:             course.ID,
			Kind:                 SessionKindLecture,
			DurationSlots:        course.LectureDurationSlots,
			Sections:             ids,
			TotalStudents:        total,
			IsSmallGroup:         total < b.MaxGroupCapacity,
			PreferredInstructors: preferred,
		})
		group = nil
		total = 0
	}

	for _, sec := range sections {
		if total+sec.StudentCount > b.MaxGroupCapacity && len(group) > 0 {
			flush()
		}
		group = append(group, sec)
		total += sec.StudentCount
	}
	flush()

	return out
}

func (b *VariableBuilder) buildLabSessions(course catalog.Course, offering catalog.CourseOffering, sections []catalog.Section) []*Session {
	preferred := map[string]struct{}{}
	for _, id := range offering.PreferredAssistants {
		preferred[id] = struct{}{}
	}

	out := make([]*Session, 0, len(sections))
	for _, sec := range sections {
		out = append(out, &Session{
			ID:                   b.allocateID(),
			CourseID:             course.ID,
			Kind:                 SessionKindLab,
			DurationSlots:        course.LabDurationSlots,
			Sections:             []string{sec.ID},
			TotalStudents:        sec.StudentCount,
			IsSmallGroup:         sec.StudentCount < b.MaxGroupCapacity,
			PreferredInstructors: preferred,
		})
	}
	return out
}

func (b *VariableBuilder) allocateID() int {
	b.nextSessionID++
	return b.nextSessionID
}
