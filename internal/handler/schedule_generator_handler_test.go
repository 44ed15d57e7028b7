package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/dto"
)

type scheduleGeneratorMock struct {
	captured dto.GenerateTimetableRequest
	genResp  *dto.GenerateTimetableResponse
	genErr   error
	rowsResp []dto.TimetableRow
}

func (m *scheduleGeneratorMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	if m.genErr != nil {
		return nil, m.genErr
	}
	if m.genResp != nil {
		return m.genResp, nil
	}
	return &dto.GenerateTimetableResponse{JobID: "job-1", InitialCost: 4.5, NodesExplored: 12}, nil
}

func (m *scheduleGeneratorMock) JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	return &dto.JobStatusResponse{JobID: jobID, Status: "running"}, nil
}

func (m *scheduleGeneratorMock) CancelJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	return &dto.JobStatusResponse{JobID: jobID, Status: "cancelled"}, nil
}

func (m *scheduleGeneratorMock) Save(ctx context.Context, jobID string) (*dto.SaveTimetableResponse, error) {
	return &dto.SaveTimetableResponse{ID: "sched-1", Version: 1}, nil
}

func (m *scheduleGeneratorMock) List(ctx context.Context, termID string) ([]dto.TimetableSummary, error) {
	return []dto.TimetableSummary{{ID: "sched-1", TermID: termID}}, nil
}

func (m *scheduleGeneratorMock) Rows(ctx context.Context, id string) ([]dto.TimetableRow, error) {
	return m.rowsResp, nil
}

func (m *scheduleGeneratorMock) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *scheduleGeneratorMock) ExportCSV(ctx context.Context, id string) ([]byte, error) {
	return []byte("day,start\n"), nil
}

func (m *scheduleGeneratorMock) ExportPDF(ctx context.Context, id, title string) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func TestScheduleGeneratorHandlerGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleGeneratorMock{}
	handler := &ScheduleGeneratorHandler{service: mockSvc}

	payload := []byte(`{"termId":"term-2025"}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "term-2025", mockSvc.captured.TermID)
}

func TestScheduleGeneratorHandlerGenerateValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleGeneratorHandler{service: &scheduleGeneratorMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"termId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleGeneratorHandlerListRequiresTermID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleGeneratorHandler{service: &scheduleGeneratorMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/timetables", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleGeneratorHandlerListSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleGeneratorMock{}
	handler := &ScheduleGeneratorHandler{service: mockSvc}

	req, _ := http.NewRequest(http.MethodGet, "/timetables?termId=term-2025", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleGeneratorHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleGeneratorHandler{service: &scheduleGeneratorMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/timetables/sched-1/export.csv", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "attachment; filename=timetable.csv", w.Header().Get("Content-Disposition"))
}
