package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/models"
)

// SemesterScheduleSlotRepository persists the rows emitted by the Result
// Emitter for one solved timetable.
type SemesterScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewSemesterScheduleSlotRepository builds repository.
func NewSemesterScheduleSlotRepository(db *sqlx.DB) *SemesterScheduleSlotRepository {
	return &SemesterScheduleSlotRepository{db: db}
}

func (r *SemesterScheduleSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores one row per Assignment for a newly persisted schedule.
func (r *SemesterScheduleSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO semester_schedule_slots
	(id, semester_schedule_id, sort_order, day, start_time, end_time, course_id, course_name, type, instructor_name, room, sections, student_count, created_at)
VALUES
	(:id, :semester_schedule_id, :sort_order, :day, :start_time, :end_time, :course_id, :course_name, :type, :instructor_name, :room, :sections, :student_count, :created_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.SortOrder = i
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert semester schedule slot: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns slots in emitted output order: (Day, StartTime).
func (r *SemesterScheduleSlotRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	const query = `SELECT id, semester_schedule_id, sort_order, day, start_time, end_time, course_id, course_name, type, instructor_name, room, sections, student_count, created_at
FROM semester_schedule_slots WHERE semester_schedule_id = $1 ORDER BY sort_order ASC`
	var slots []models.SemesterScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list semester schedule slots: %w", err)
	}
	return slots, nil
}

// DeleteBySchedule removes all slots belonging to a schedule, used when a
// draft timetable is deleted.
func (r *SemesterScheduleSlotRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM semester_schedule_slots WHERE semester_schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("delete semester schedule slots: %w", err)
	}
	return nil
}
