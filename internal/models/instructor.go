package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Instructor is a teacher or teaching assistant eligible for one or more
// courses. QualifiedCourseIDs and NotPreferredSlots are stored as JSON
// arrays, a course id list and a time slot id list respectively.
type Instructor struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	QualifiedCourseIDs types.JSONText `db:"qualified_course_ids" json:"qualified_course_ids"`
	NotPreferredSlots  types.JSONText `db:"not_preferred_slots" json:"not_preferred_slots"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures supported filters for listing instructors.
type InstructorFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
