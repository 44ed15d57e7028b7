package models

import "time"

// Section is a group of students sharing a department, level and
// specialization for a given term.
type Section struct {
	ID             string    `db:"id" json:"id"`
	TermID         string    `db:"term_id" json:"term_id"`
	Department     string    `db:"department" json:"department"`
	Level          string    `db:"level" json:"level"`
	Specialization string    `db:"specialization" json:"specialization"`
	StudentCount   int       `db:"student_count" json:"student_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter captures supported filters for listing sections.
type SectionFilter struct {
	TermID     string
	Department string
	Level      string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
