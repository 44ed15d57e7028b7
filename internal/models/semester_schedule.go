package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SemesterScheduleStatus represents lifecycle phases for a generated
// timetable.
type SemesterScheduleStatus string

const (
	SemesterScheduleStatusDraft     SemesterScheduleStatus = "DRAFT"
	SemesterScheduleStatusPublished SemesterScheduleStatus = "PUBLISHED"
	SemesterScheduleStatusArchived  SemesterScheduleStatus = "ARCHIVED"
)

// SemesterSchedule captures a versioned, solved timetable for a term. Meta
// carries solver diagnostics (best cost, nodes explored, iterations
// completed) as free-form JSON.
type SemesterSchedule struct {
	ID        string                 `db:"id" json:"id"`
	TermID    string                 `db:"term_id" json:"term_id"`
	Version   int                    `db:"version" json:"version"`
	Status    SemesterScheduleStatus `db:"status" json:"status"`
	Meta      types.JSONText         `db:"meta" json:"meta"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt time.Time              `db:"updated_at" json:"updated_at"`
}

// SemesterScheduleSlot is one emitted row of a solved timetable:
// one row per Assignment.
type SemesterScheduleSlot struct {
	ID                 string `db:"id" json:"id"`
	SemesterScheduleID string `db:"semester_schedule_id" json:"semester_schedule_id"`
	// SortOrder preserves the emitter's (Day, StartTime) ordering, Sunday
	// through Thursday, since Day is stored as a name and does not sort
	// chronologically on its own.
	SortOrder      int       `db:"sort_order" json:"-"`
	Day            string    `db:"day" json:"day"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	CourseID       string    `db:"course_id" json:"course_id"`
	CourseName     string    `db:"course_name" json:"course_name"`
	Type           string    `db:"type" json:"type"`
	InstructorName string    `db:"instructor_name" json:"instructor_name"`
	Room           string    `db:"room" json:"room"`
	Sections       string    `db:"sections" json:"sections"`
	StudentCount   int       `db:"student_count" json:"student_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SemesterScheduleSummary aggregates versions available for a term.
type SemesterScheduleSummary struct {
	TermID    string                 `json:"term_id"`
	ActiveID  *string                `json:"active_id,omitempty"`
	Versions  []SemesterScheduleMeta `json:"versions"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SemesterScheduleMeta represents lightweight metadata for list views.
type SemesterScheduleMeta struct {
	ID        string                 `json:"id"`
	Version   int                    `json:"version"`
	Status    SemesterScheduleStatus `json:"status"`
	Score     float64                `json:"score"`
	CreatedAt time.Time              `json:"created_at"`
}
