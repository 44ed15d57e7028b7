package models

import "time"

// CourseOffering requires a course to be taught to every section matching a
// department/level/specialization (or every section at that department and
// level, when Specialization is "Core").
type CourseOffering struct {
	ID                   string    `db:"id" json:"id"`
	TermID               string    `db:"term_id" json:"term_id"`
	Department           string    `db:"department" json:"department"`
	Level                string    `db:"level" json:"level"`
	Specialization       string    `db:"specialization" json:"specialization"`
	CourseID             string    `db:"course_id" json:"course_id"`
	PreferredProfessorID *string   `db:"preferred_professor_id" json:"preferred_professor_id,omitempty"`
	PreferredAssistants  string    `db:"preferred_assistants" json:"preferred_assistants"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// CourseOfferingDetail enriches an offering with descriptive fields for
// read views.
type CourseOfferingDetail struct {
	CourseOffering
	CourseName string `db:"course_name" json:"course_name"`
	TermName   string `db:"term_name" json:"term_name"`
}
