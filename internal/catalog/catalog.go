package catalog

import (
	"fmt"
	"sort"

	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// Catalog is the read-only, already-validated reference data one solve runs
// against. Build it once via New and never mutate it afterwards; every
// downstream component (session builder, domain builder, cost evaluator)
// holds shared references into it.
type Catalog struct {
	Courses         map[string]Course
	Rooms           map[string]Room
	Instructors     map[string]Instructor
	TimeSlots       map[int]TimeSlot
	Sections        map[string]Section
	CourseOfferings []CourseOffering

	// SlotsByDay groups TimeSlots by day, each list sorted by ascending ID.
	// Precomputed once because both the domain builder and the cost
	// evaluator need it.
	SlotsByDay map[string][]TimeSlot
}

// New validates and assembles a Catalog from its six relations. It never
// performs I/O; callers (e.g. CatalogRepository) are responsible for parsing
// rows into these slices first.
func New(courses []Course, rooms []Room, instructors []Instructor, slots []TimeSlot, sections []Section, offerings []CourseOffering) (*Catalog, error) {
	if len(courses) == 0 {
		return nil, apperrors.NewCatalogValidation("catalog has no courses")
	}
	if len(slots) == 0 {
		return nil, apperrors.NewCatalogValidation("catalog has no time slots")
	}

	c := &Catalog{
		Courses:         make(map[string]Course, len(courses)),
		Rooms:           make(map[string]Room, len(rooms)),
		Instructors:     make(map[string]Instructor, len(instructors)),
		TimeSlots:       make(map[int]TimeSlot, len(slots)),
		Sections:        make(map[string]Section, len(sections)),
		CourseOfferings: offerings,
		SlotsByDay:      make(map[string][]TimeSlot),
	}

	for _, course := range courses {
		if course.ID == "" {
			return nil, apperrors.NewCatalogValidation("course with empty id")
		}
		if course.LectureDurationSlots < 0 || course.LabDurationSlots < 0 {
			return nil, apperrors.NewCatalogValidation(fmt.Sprintf("course %s has a negative duration", course.ID))
		}
		c.Courses[course.ID] = course
	}

	for _, room := range rooms {
		if room.ID == "" {
			return nil, apperrors.NewCatalogValidation("room with empty id")
		}
		if room.Capacity < 1 {
			return nil, apperrors.NewCatalogValidation(fmt.Sprintf("room %s has non-positive capacity", room.ID))
		}
		c.Rooms[room.ID] = room
	}

	for _, inst := range instructors {
		if inst.ID == "" {
			return nil, apperrors.NewCatalogValidation("instructor with empty id")
		}
		if inst.QualifiedCourseIDs == nil {
			inst.QualifiedCourseIDs = map[string]struct{}{}
		}
		if inst.NotPreferredSlots == nil {
			inst.NotPreferredSlots = map[int]struct{}{}
		}
		c.Instructors[inst.ID] = inst
	}

	for _, s := range slots {
		if _, exists := c.TimeSlots[s.ID]; exists {
			return nil, apperrors.NewCatalogValidation(fmt.Sprintf("duplicate time slot id %d", s.ID))
		}
		c.TimeSlots[s.ID] = s
		c.SlotsByDay[s.Day] = append(c.SlotsByDay[s.Day], s)
	}
	for day := range c.SlotsByDay {
		day := day
		sort.Slice(c.SlotsByDay[day], func(i, j int) bool {
			return c.SlotsByDay[day][i].ID < c.SlotsByDay[day][j].ID
		})
	}

	for _, sec := range sections {
		if sec.ID == "" {
			return nil, apperrors.NewCatalogValidation("section with empty id")
		}
		if sec.StudentCount < 1 {
			return nil, apperrors.NewCatalogValidation(fmt.Sprintf("section %s has non-positive student count", sec.ID))
		}
		c.Sections[sec.ID] = sec
	}

	return c, nil
}

// DefaultExcludedLectureSpaces is the default set of room space types that
// can never host a lecture regardless of group size.
func DefaultExcludedLectureSpaces() map[string]struct{} {
	return map[string]struct{}{
		"Drawing Studio": {},
		"Computer":       {},
	}
}

// DefaultMaxGroupCapacity is the default cap on combined lecture section
// enrollment before a new lecture group is started.
const DefaultMaxGroupCapacity = 75

// SortedSectionIDs returns every known section id in ascending order, used
// by the variable builder's deterministic lecture-grouping pass.
func (c *Catalog) SortedSectionIDs() []string {
	ids := make([]string, 0, len(c.Sections))
	for id := range c.Sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
