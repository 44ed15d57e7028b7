package models

import "time"

// Course is a teachable subject, persisted per academic catalog snapshot.
type Course struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	LectureDurationSlots int       `db:"lecture_duration_slots" json:"lecture_duration_slots"`
	LabDurationSlots     int       `db:"lab_duration_slots" json:"lab_duration_slots"`
	LabSpaceType         string    `db:"lab_space_type" json:"lab_space_type"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
