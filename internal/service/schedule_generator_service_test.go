package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/dto"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/engine"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/models"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/repository"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/jobs"
)

func fixtureCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	courses := []catalog.Course{
		{ID: "C1", Name: "Algorithms", LectureDurationSlots: 1, LabDurationSlots: 0},
	}
	rooms := []catalog.Room{
		{ID: "Bldg1 101", Capacity: 50, Kind: catalog.RoomKindLecture, SpaceType: "Normal"},
	}
	instructors := []catalog.Instructor{
		{ID: "I1", Name: "Dr. Ada", QualifiedCourseIDs: map[string]struct{}{"C1": {}}, NotPreferredSlots: map[int]struct{}{}},
	}
	slots := []catalog.TimeSlot{
		{ID: 1, Day: "Sunday", StartTime: "09:00", EndTime: "10:00"},
		{ID: 2, Day: "Sunday", StartTime: "10:00", EndTime: "11:00"},
	}
	sections := []catalog.Section{
		{ID: "S1", Department: "CS", Level: "L1", Specialization: "A", StudentCount: 10},
	}
	offerings := []catalog.CourseOffering{
		{Department: "CS", Level: "L1", Specialization: catalog.CoreSpecialization, CourseID: "C1"},
	}
	cat, err := catalog.New(courses, rooms, instructors, slots, sections, offerings)
	require.NoError(t, err)
	return cat
}

type stubCatalogLoader struct {
	cat *catalog.Catalog
}

func (s stubCatalogLoader) Load(ctx context.Context, termID string) (*catalog.Catalog, []repository.Warning, error) {
	return s.cat, nil, nil
}

type stubScheduleRepo struct {
	mu    sync.Mutex
	items []models.SemesterSchedule
}

func (s *stubScheduleRepo) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule.ID = "sched-1"
	schedule.Version = len(s.items) + 1
	s.items = append(s.items, *schedule)
	return nil
}

func (s *stubScheduleRepo) ListByTerm(ctx context.Context, termID string) ([]models.SemesterSchedule, error) {
	return s.items, nil
}

func (s *stubScheduleRepo) FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubScheduleRepo) Delete(ctx context.Context, id string) error {
	for idx, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *stubScheduleRepo) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error {
	return nil
}

type stubSlotRepo struct {
	mu    sync.Mutex
	items map[string][]models.SemesterScheduleSlot
}

func (s *stubSlotRepo) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string][]models.SemesterScheduleSlot)
	}
	for _, slot := range slots {
		s.items[slot.SemesterScheduleID] = append(s.items[slot.SemesterScheduleID], slot)
	}
	return nil
}

func (s *stubSlotRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error) {
	return s.items[scheduleID], nil
}

func (s *stubSlotRepo) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	delete(s.items, scheduleID)
	return nil
}

func newServiceFixture(t *testing.T) (*ScheduleGeneratorService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	svc := NewScheduleGeneratorService(
		stubCatalogLoader{cat: fixtureCatalog(t)},
		&stubScheduleRepo{},
		&stubSlotRepo{},
		sqlxdb,
		nil,
		NewMetricsService(),
		validator.New(),
		zap.NewNop(),
	)

	queue := jobs.NewQueue("test-anneal", svc.RunAnnealJob, jobs.QueueConfig{Workers: 1})
	svc.AttachQueue(queue)
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	return svc, mock
}

func TestScheduleGeneratorServiceGenerateEnqueuesAnnealJob(t *testing.T) {
	svc, _ := newServiceFixture(t)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.JobID)
	assert.GreaterOrEqual(t, resp.NodesExplored, 0)

	require.Eventually(t, func() bool {
		status, err := svc.JobStatus(context.Background(), resp.JobID)
		return err == nil && (status.Status == string(models.SolveJobStatusSucceeded) || status.Status == string(models.SolveJobStatusCancelled))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleGeneratorServiceGenerateRejectsMissingTermID(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
}

func TestScheduleGeneratorServiceSavePersistsRows(t *testing.T) {
	svc, mock := newServiceFixture(t)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := svc.JobStatus(context.Background(), resp.JobID)
		return err == nil && status.Status == string(models.SolveJobStatusSucceeded)
	}, 2*time.Second, 10*time.Millisecond)

	mock.ExpectBegin()
	mock.ExpectCommit()

	saved, err := svc.Save(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "term-1", saved.TermID)
	assert.NoError(t, mock.ExpectationsWereMet())

	rows, err := svc.Rows(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestScheduleGeneratorServiceSetSolverDefaults(t *testing.T) {
	svc, _ := newServiceFixture(t)

	bad := engine.DefaultConfig()
	bad.Annealing.CoolingRate = 1.5
	require.Error(t, svc.SetSolverDefaults(bad))

	good := engine.DefaultConfig()
	good.Annealing.Iterations = 50
	require.NoError(t, svc.SetSolverDefaults(good))

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)

	status, err := svc.JobStatus(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, 50, status.IterationsTotal)
}

func TestScheduleGeneratorServiceJobStatusNotFound(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, err := svc.JobStatus(context.Background(), "unknown")
	require.Error(t, err)
}

func TestScheduleGeneratorServiceDeleteRejectsPublished(t *testing.T) {
	svc, _ := newServiceFixture(t)
	repo := &stubScheduleRepo{items: []models.SemesterSchedule{{ID: "sched-1", TermID: "term-1", Status: models.SemesterScheduleStatusPublished}}}
	svc.schedules = repo

	err := svc.Delete(context.Background(), "sched-1")
	require.Error(t, err)
}
