package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/models"
	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
)

// Warning is a skipped-offering diagnostic, surfaced as a
// structured value rather than a log line so callers can return it.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CatalogRepository loads the six relations a solve runs against from
// Postgres and assembles them into an in-memory catalog.Catalog. It performs
// no solving itself; the core package never touches SQL.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository builds a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Load reads courses, rooms, instructors and time slots globally, plus
// sections and course offerings scoped by termID, and assembles a
// catalog.Catalog.
func (r *CatalogRepository) Load(ctx context.Context, termID string) (*catalog.Catalog, []Warning, error) {
	var courseRows []models.Course
	if err := r.db.SelectContext(ctx, &courseRows,
		`SELECT id, name, lecture_duration_slots, lab_duration_slots, lab_space_type, created_at, updated_at FROM courses`,
	); err != nil {
		return nil, nil, fmt.Errorf("load courses: %w", err)
	}

	var roomRows []models.Room
	if err := r.db.SelectContext(ctx, &roomRows,
		`SELECT id, capacity, kind, space_type, created_at, updated_at FROM rooms`,
	); err != nil {
		return nil, nil, fmt.Errorf("load rooms: %w", err)
	}

	var instructorRows []models.Instructor
	if err := r.db.SelectContext(ctx, &instructorRows,
		`SELECT id, name, qualified_course_ids, not_preferred_slots, created_at, updated_at FROM instructors`,
	); err != nil {
		return nil, nil, fmt.Errorf("load instructors: %w", err)
	}

	var slotRows []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slotRows,
		`SELECT id, day, start_time, end_time FROM time_slots ORDER BY id ASC`,
	); err != nil {
		return nil, nil, fmt.Errorf("load time slots: %w", err)
	}

	var sectionRows []models.Section
	if err := r.db.SelectContext(ctx, &sectionRows,
		`SELECT id, term_id, department, level, specialization, student_count, created_at, updated_at FROM sections WHERE term_id = $1`,
		termID,
	); err != nil {
		return nil, nil, fmt.Errorf("load sections: %w", err)
	}

	var offeringRows []models.CourseOffering
	if err := r.db.SelectContext(ctx, &offeringRows,
		`SELECT id, term_id, department, level, specialization, course_id, preferred_professor_id, preferred_assistants, created_at
FROM course_offerings WHERE term_id = $1`,
		termID,
	); err != nil {
		return nil, nil, fmt.Errorf("load course offerings: %w", err)
	}

	var warnings []Warning

	courses := make([]catalog.Course, 0, len(courseRows))
	for _, row := range courseRows {
		courses = append(courses, catalog.Course{
			ID:                   row.ID,
			Name:                 row.Name,
			LectureDurationSlots: row.LectureDurationSlots,
			LabDurationSlots:     row.LabDurationSlots,
			LabSpaceType:         row.LabSpaceType,
		})
	}

	rooms := make([]catalog.Room, 0, len(roomRows))
	for _, row := range roomRows {
		rooms = append(rooms, catalog.Room{
			ID:        row.ID,
			Capacity:  row.Capacity,
			Kind:      catalog.RoomKind(row.Kind),
			SpaceType: row.SpaceType,
		})
	}

	instructors := make([]catalog.Instructor, 0, len(instructorRows))
	for _, row := range instructorRows {
		qualified, err := decodeStringSet(row.QualifiedCourseIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("decode qualified_course_ids for instructor %s: %w", row.ID, err)
		}
		notPreferred, err := decodeIntSet(row.NotPreferredSlots)
		if err != nil {
			return nil, nil, fmt.Errorf("decode not_preferred_slots for instructor %s: %w", row.ID, err)
		}
		instructors = append(instructors, catalog.Instructor{
			ID:                 row.ID,
			Name:               row.Name,
			QualifiedCourseIDs: qualified,
			NotPreferredSlots:  notPreferred,
		})
	}

	slots := make([]catalog.TimeSlot, 0, len(slotRows))
	for _, row := range slotRows {
		slots = append(slots, catalog.TimeSlot{
			ID:        row.ID,
			Day:       row.Day,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
		})
	}

	sections := make([]catalog.Section, 0, len(sectionRows))
	for _, row := range sectionRows {
		sections = append(sections, catalog.Section{
			ID:             row.ID,
			Department:     row.Department,
			Level:          row.Level,
			Specialization: row.Specialization,
			StudentCount:   row.StudentCount,
		})
	}

	offerings := make([]catalog.CourseOffering, 0, len(offeringRows))
	for _, row := range offeringRows {
		assistants, err := decodeStringSlice(types.JSONText(row.PreferredAssistants))
		if err != nil {
			return nil, nil, fmt.Errorf("decode preferred_assistants for offering %s/%s: %w", row.Department, row.CourseID, err)
		}
		preferredProfessor := ""
		if row.PreferredProfessorID != nil {
			preferredProfessor = *row.PreferredProfessorID
		}
		matched := false
		for _, section := range sectionRows {
			if row.Department == section.Department && row.Level == section.Level &&
				(row.Specialization == catalog.CoreSpecialization || row.Specialization == section.Specialization) {
				matched = true
				break
			}
		}
		if !matched {
			warnings = append(warnings, Warning{
				Code: "offering_unmatched",
				Message: fmt.Sprintf("course offering %s has no matching section for %s/%s/%s",
					row.CourseID, row.Department, row.Level, row.Specialization),
			})
			continue
		}
		offerings = append(offerings, catalog.CourseOffering{
			Department:          row.Department,
			Level:               row.Level,
			Specialization:      row.Specialization,
			CourseID:            row.CourseID,
			PreferredProfessor:  preferredProfessor,
			PreferredAssistants: assistants,
		})
	}

	cat, err := catalog.New(courses, rooms, instructors, slots, sections, offerings)
	if err != nil {
		return nil, warnings, err
	}

	return cat, warnings, nil
}

func decodeStringSet(raw types.JSONText) (map[string]struct{}, error) {
	if len(raw) == 0 {
		return map[string]struct{}{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogValidation, http.StatusBadRequest, "malformed JSON string array")
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, nil
}

func decodeIntSet(raw types.JSONText) (map[int]struct{}, error) {
	if len(raw) == 0 {
		return map[int]struct{}{}, nil
	}
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogValidation, http.StatusBadRequest, "malformed JSON int array")
	}
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, nil
}

func decodeStringSlice(raw types.JSONText) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogValidation, http.StatusBadRequest, "malformed JSON string array")
	}
	return values, nil
}
