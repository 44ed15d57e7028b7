package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/catalog"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/dto"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/engine"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/models"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/repository"
	apperrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/export"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/jobs"
)

// catalogLoader is the subset of CatalogRepository the service depends on.
type catalogLoader interface {
	Load(ctx context.Context, termID string) (*catalog.Catalog, []repository.Warning, error)
}

type semesterScheduleRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.SemesterSchedule) error
	ListByTerm(ctx context.Context, termID string) ([]models.SemesterSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SemesterSchedule, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.SemesterScheduleStatus, meta types.JSONText) error
}

type semesterScheduleSlotRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.SemesterScheduleSlot) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SemesterScheduleSlot, error)
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error
}

// solveRun is the in-memory record of one generate->optimize run, keyed by
// job id, holding what Save needs once annealing has progressed.
type solveRun struct {
	mu          sync.Mutex
	job         models.SolveJob
	cat         *catalog.Catalog
	cfg         engine.Config
	state       *engine.State
	assignments []engine.Assignment
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

func (r *solveRun) finish() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *solveRun) snapshot() models.SolveJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job
}

// ScheduleGeneratorService orchestrates catalog ingestion, the synchronous
// backtracking phase, the background annealing phase, and persistence of
// the resulting timetable.
type ScheduleGeneratorService struct {
	catalogs  catalogLoader
	schedules semesterScheduleRepository
	slots     semesterScheduleSlotRepository
	db        *sqlx.DB
	queue     *jobs.Queue
	cache     *redis.Client
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	defaults  engine.Config

	mu   sync.RWMutex
	runs map[string]*solveRun
}

// NewScheduleGeneratorService constructs the service. AttachQueue must be
// called once a jobs.Queue bound to RunAnnealJob has been started.
func NewScheduleGeneratorService(
	catalogs catalogLoader,
	schedules semesterScheduleRepository,
	slots semesterScheduleSlotRepository,
	db *sqlx.DB,
	cache *redis.Client,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGeneratorService{
		catalogs:  catalogs,
		schedules: schedules,
		slots:     slots,
		db:        db,
		cache:     cache,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		defaults:  engine.DefaultConfig(),
		runs:      make(map[string]*solveRun),
	}
}

// SetSolverDefaults replaces the baseline solver configuration that
// per-request overrides are applied on top of. It rejects a malformed
// baseline rather than letting every future Generate call fail.
func (s *ScheduleGeneratorService) SetSolverDefaults(cfg engine.Config) error {
	if err := engine.ValidateConfig(cfg); err != nil {
		return err
	}
	s.defaults = cfg
	return nil
}

// AttachQueue binds the background annealing worker pool. Must be called
// before Generate is used, with the queue already started.
func (s *ScheduleGeneratorService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

func (s *ScheduleGeneratorService) buildConfig(req dto.GenerateTimetableRequest) (engine.Config, error) {
	cfg := s.defaults

	if req.MaxGroupCapacity > 0 {
		cfg.MaxGroupCapacity = req.MaxGroupCapacity
	}
	if len(req.ExcludedLectureSpaces) > 0 {
		excluded := make(map[string]struct{}, len(req.ExcludedLectureSpaces))
		for _, space := range req.ExcludedLectureSpaces {
			excluded[space] = struct{}{}
		}
		cfg.ExcludedLectureSpaces = excluded
	}
	if req.Weights != nil {
		w := *req.Weights
		if w.Gap > 0 {
			cfg.Weights.Gap = w.Gap
		}
		if w.BadTime > 0 {
			cfg.Weights.BadTime = w.BadTime
		}
		if w.Building > 0 {
			cfg.Weights.Building = w.Building
		}
		if w.Imbalance > 0 {
			cfg.Weights.Imbalance = w.Imbalance
		}
	}
	if req.Annealing != nil {
		a := *req.Annealing
		if a.Iterations > 0 {
			cfg.Annealing.Iterations = a.Iterations
		}
		if a.InitialTemperature > 0 {
			cfg.Annealing.InitialTemperature = a.InitialTemperature
		}
		if a.CoolingRate > 0 {
			cfg.Annealing.CoolingRate = a.CoolingRate
		}
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg, nil
}

// Generate loads the Catalog for the term, runs the synchronous
// backtracking phase, and enqueues the annealing phase as a background
// SolveJob.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid generate payload")
	}
	if s.queue == nil {
		return nil, apperrors.NewInternalInvariant("schedule generator service has no attached job queue")
	}

	cfg, err := s.buildConfig(req)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	cat, warnings, err := s.catalogs.Load(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	phase1, err := engine.SolvePhase1(cat, cfg)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBacktracking(phase1.NodesExplored, phase1.InitialCost)

	jobID := uuid.NewString()
	now := time.Now().UTC()
	run := &solveRun{
		job: models.SolveJob{
			ID:              jobID,
			TermID:          req.TermID,
			Status:          models.SolveJobStatusQueued,
			NodesExplored:   phase1.NodesExplored,
			InitialCost:     phase1.InitialCost,
			BestCost:        phase1.InitialCost,
			IterationsTotal: cfg.Annealing.Iterations,
			StartedAt:       now,
		},
		cat:         cat,
		cfg:         cfg,
		state:       phase1.State,
		assignments: phase1.Assignments,
		done:        make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[jobID] = run
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: "anneal"}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to enqueue annealing job")
	}

	warningMessages := make([]string, 0, len(warnings)+len(phase1.Warnings))
	for _, w := range warnings {
		warningMessages = append(warningMessages, w.Message)
	}
	for _, w := range phase1.Warnings {
		warningMessages = append(warningMessages, w.Reason)
	}

	return &dto.GenerateTimetableResponse{
		JobID:         jobID,
		InitialCost:   phase1.InitialCost,
		NodesExplored: phase1.NodesExplored,
		Warnings:      warningMessages,
	}, nil
}

// RunAnnealJob is the jobs.Handler bound to the background queue (wired in
// main.go). It runs the annealing phase against the run recorded by
// Generate and updates the in-memory job record as it progresses.
func (s *ScheduleGeneratorService) RunAnnealJob(ctx context.Context, job jobs.Job) error {
	s.mu.RLock()
	run, ok := s.runs[job.ID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown solve job %s", job.ID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	run.mu.Lock()
	if run.job.Status != models.SolveJobStatusQueued {
		// A retried or duplicate delivery of a job that already ran, or a
		// job cancelled while still queued.
		run.mu.Unlock()
		cancel()
		return nil
	}
	run.cancel = cancel
	run.job.Status = models.SolveJobStatusRunning
	run.mu.Unlock()
	defer run.finish()

	progress := func(iteration, total int, bestCost float64) {
		run.mu.Lock()
		run.job.IterationsCompleted = iteration
		run.job.IterationsTotal = total
		run.job.BestCost = bestCost
		run.mu.Unlock()
		s.metrics.ObserveAnnealingProgress(bestCost, iteration)
		s.mirrorJobProgress(ctx, run.snapshot())
	}

	result, err := engine.Optimize(runCtx, run.cat, run.cfg, &engine.Phase1Result{
		State:       run.state,
		Assignments: run.assignments,
	}, progress)

	run.mu.Lock()
	finished := time.Now().UTC()
	run.job.FinishedAt = &finished
	if err != nil {
		run.job.Status = models.SolveJobStatusFailed
		run.job.Error = err.Error()
		snapshot := run.job
		run.mu.Unlock()
		s.metrics.RecordSolveJobTerminal(string(snapshot.Status))
		s.mirrorJobProgress(ctx, snapshot)
		return err
	}

	run.assignments = result.Assignments
	run.job.BestCost = result.Cost
	cancelled := runCtx.Err() != nil
	if cancelled {
		run.job.Status = models.SolveJobStatusCancelled
	} else {
		run.job.Status = models.SolveJobStatusSucceeded
	}
	snapshot := run.job
	run.mu.Unlock()

	s.metrics.RecordSolveJobTerminal(string(snapshot.Status))
	s.mirrorJobProgress(ctx, snapshot)
	return nil
}

func (s *ScheduleGeneratorService) mirrorJobProgress(ctx context.Context, job models.SolveJob) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	start := time.Now()
	err = s.cache.Set(ctx, "solve-job:"+job.ID, payload, time.Hour).Err()
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("failed to mirror solve job progress to cache", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// JobStatus returns the current status of a background annealing run.
func (s *ScheduleGeneratorService) JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	run, err := s.findRun(jobID)
	if err != nil {
		return nil, err
	}
	return jobToStatusResponse(run.snapshot()), nil
}

// CancelJob requests cooperative cancellation of a queued or running
// annealing job, waits for it to reach a terminal status, and returns that
// status, including the best cost found so far. A job that is still queued
// is marked cancelled without running.
func (s *ScheduleGeneratorService) CancelJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	run, err := s.findRun(jobID)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	status := run.job.Status
	cancel := run.cancel
	if status == models.SolveJobStatusQueued {
		// No worker holds it yet; RunAnnealJob skips any non-queued run.
		finished := time.Now().UTC()
		run.job.Status = models.SolveJobStatusCancelled
		run.job.FinishedAt = &finished
	}
	run.mu.Unlock()
	if status == models.SolveJobStatusQueued {
		s.metrics.RecordSolveJobTerminal(string(models.SolveJobStatusCancelled))
		run.finish()
	}

	if status == models.SolveJobStatusQueued || status == models.SolveJobStatusRunning {
		if cancel != nil {
			cancel()
		}
		select {
		case <-run.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return jobToStatusResponse(run.snapshot()), nil
}

func (s *ScheduleGeneratorService) findRun(jobID string) (*solveRun, error) {
	s.mu.RLock()
	run, ok := s.runs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "solve job not found")
	}
	return run, nil
}

func jobToStatusResponse(job models.SolveJob) *dto.JobStatusResponse {
	return &dto.JobStatusResponse{
		JobID:               job.ID,
		Status:              string(job.Status),
		BestCost:            job.BestCost,
		IterationsCompleted: job.IterationsCompleted,
		IterationsTotal:     job.IterationsTotal,
		NodesExplored:       job.NodesExplored,
		Error:               job.Error,
	}
}

// Save persists a job's best-known solution as a new SemesterSchedule
// version plus its rows.
func (s *ScheduleGeneratorService) Save(ctx context.Context, jobID string) (*dto.SaveTimetableResponse, error) {
	run, err := s.findRun(jobID)
	if err != nil {
		return nil, err
	}
	run.mu.Lock()
	cat := run.cat
	assignments := append([]engine.Assignment(nil), run.assignments...)
	termID := run.job.TermID
	bestCost := run.job.BestCost
	nodesExplored := run.job.NodesExplored
	run.mu.Unlock()

	rows := engine.Emit(cat, assignments)
	slots := make([]models.SemesterScheduleSlot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, models.SemesterScheduleSlot{
			Day:            row.Day,
			StartTime:      row.StartTime,
			EndTime:        row.EndTime,
			CourseID:       row.CourseID,
			CourseName:     row.CourseName,
			Type:           row.Type,
			InstructorName: row.Instructor,
			Room:           row.Room,
			Sections:       row.Sections,
			StudentCount:   row.StudentCount,
		})
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"best_cost":      bestCost,
		"nodes_explored": nodesExplored,
		"job_id":         jobID,
	})

	schedule := &models.SemesterSchedule{
		TermID: termID,
		Status: models.SemesterScheduleStatusDraft,
		Meta:   types.JSONText(meta),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin save transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.schedules.CreateVersioned(ctx, tx, schedule); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist schedule")
	}
	for i := range slots {
		slots[i].SemesterScheduleID = schedule.ID
	}
	if err := s.slots.InsertBatch(ctx, tx, slots); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist schedule rows")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit save transaction")
	}
	committed = true

	return &dto.SaveTimetableResponse{ID: schedule.ID, TermID: schedule.TermID, Version: schedule.Version}, nil
}

// List returns persisted timetable versions for a term.
func (s *ScheduleGeneratorService) List(ctx context.Context, termID string) ([]dto.TimetableSummary, error) {
	schedules, err := s.schedules.ListByTerm(ctx, termID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to list schedules")
	}
	summaries := make([]dto.TimetableSummary, 0, len(schedules))
	for _, sched := range schedules {
		var meta struct {
			BestCost float64 `json:"best_cost"`
		}
		_ = json.Unmarshal(sched.Meta, &meta)
		summaries = append(summaries, dto.TimetableSummary{
			ID:        sched.ID,
			TermID:    sched.TermID,
			Version:   sched.Version,
			Status:    string(sched.Status),
			BestCost:  meta.BestCost,
			CreatedAt: sched.CreatedAt.Format(time.RFC3339),
		})
	}
	return summaries, nil
}

// Rows returns the persisted rows for one timetable.
func (s *ScheduleGeneratorService) Rows(ctx context.Context, id string) ([]dto.TimetableRow, error) {
	slots, err := s.slots.ListBySchedule(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load schedule rows")
	}
	rows := make([]dto.TimetableRow, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, dto.TimetableRow{
			Day:          slot.Day,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
			CourseID:     slot.CourseID,
			CourseName:   slot.CourseName,
			Type:         slot.Type,
			Instructor:   slot.InstructorName,
			Room:         slot.Room,
			Sections:     slot.Sections,
			StudentCount: slot.StudentCount,
		})
	}
	return rows, nil
}

// Delete removes a DRAFT timetable and its rows.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, id string) error {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return apperrors.Clone(apperrors.ErrNotFound, "schedule not found")
	}
	if schedule.Status != models.SemesterScheduleStatusDraft {
		return apperrors.Clone(apperrors.ErrPreconditionFailed, "only draft timetables can be deleted")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin delete transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.slots.DeleteBySchedule(ctx, tx, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to delete schedule rows")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to delete schedule")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit delete transaction")
	}
	committed = true
	return nil
}

// ExportCSV renders a persisted timetable's rows as CSV.
func (s *ScheduleGeneratorService) ExportCSV(ctx context.Context, id string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to render csv export")
	}
	return data, nil
}

// ExportPDF renders a persisted timetable's rows as PDF.
func (s *ScheduleGeneratorService) ExportPDF(ctx context.Context, id, title string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := export.NewPDFExporter().Render(dataset, title)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to render pdf export")
	}
	return data, nil
}

func (s *ScheduleGeneratorService) exportDataset(ctx context.Context, id string) (export.Dataset, error) {
	slots, err := s.slots.ListBySchedule(ctx, id)
	if err != nil {
		return export.Dataset{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load schedule rows")
	}
	rows := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		row := engine.ResultRow{
			Day:          slot.Day,
			StartTime:    slot.StartTime,
			EndTime:      slot.EndTime,
			CourseID:     slot.CourseID,
			CourseName:   slot.CourseName,
			Type:         slot.Type,
			Instructor:   slot.InstructorName,
			Room:         slot.Room,
			Sections:     slot.Sections,
			StudentCount: slot.StudentCount,
		}
		rows = append(rows, row.AsMap())
	}
	return export.Dataset{Headers: engine.Header(), Rows: rows}, nil
}
