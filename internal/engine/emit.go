package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
)

// ResultRow is one row of the stable output schema: Day, StartTime,
// EndTime, CourseID, CourseName, Type, Instructor, Room, Sections,
// StudentCount.
type ResultRow struct {
	Day          string
	StartTime    string
	EndTime      string
	CourseID     string
	CourseName   string
	Type         string
	Instructor   string
	Room         string
	Sections     string
	StudentCount int
}

// dayOrder is the academic week used to sort emitted rows (Sunday..Thursday).
var dayOrder = map[string]int{
	"Sunday":    0,
	"Monday":    1,
	"Tuesday":   2,
	"Wednesday": 3,
	"Thursday":  4,
}

// Emit projects a solved assignment set into rows, sorted by (Day,
// StartTime) using the Sun-Thu academic week order.
func Emit(cat *catalog.Catalog, assignments []Assignment) []ResultRow {
	rows := make([]ResultRow, 0, len(assignments))
	for _, a := range assignments {
		first := cat.TimeSlots[a.TimeSequence[0]]
		last := cat.TimeSlots[a.TimeSequence[len(a.TimeSequence)-1]]
		course := cat.Courses[a.Session.CourseID]
		instructor := cat.Instructors[a.Instructor]

		rows = append(rows, ResultRow{
			Day:          first.Day,
			StartTime:    first.StartTime,
			EndTime:      last.EndTime,
			CourseID:     course.ID,
			CourseName:   course.Name,
			Type:         string(a.Session.Kind),
			Instructor:   instructor.Name,
			Room:         a.Room,
			Sections:     strings.Join(a.Session.Sections, ", "),
			StudentCount: a.Session.TotalStudents,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return dayOrder[rows[i].Day] < dayOrder[rows[j].Day]
		}
		return startMinutes(rows[i].StartTime) < startMinutes(rows[j].StartTime)
	})
	return rows
}

func startMinutes(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

// Header returns the stable output column order.
func Header() []string {
	return []string{"Day", "StartTime", "EndTime", "CourseID", "CourseName", "Type", "Instructor", "Room", "Sections", "StudentCount"}
}

// AsMap renders a row into the header-keyed map pkg/export's Dataset expects.
func (r ResultRow) AsMap() map[string]string {
	return map[string]string{
		"Day":          r.Day,
		"StartTime":    r.StartTime,
		"EndTime":      r.EndTime,
		"CourseID":     r.CourseID,
		"CourseName":   r.CourseName,
		"Type":         r.Type,
		"Instructor":   r.Instructor,
		"Room":         r.Room,
		"Sections":     r.Sections,
		"StudentCount": strconv.Itoa(r.StudentCount),
	}
}
