package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GamalAsraan/Timetable-generator-ATG/internal/dto"
	"github.com/GamalAsraan/Timetable-generator-ATG/internal/service"
	appErrors "github.com/GamalAsraan/Timetable-generator-ATG/pkg/errors"
	"github.com/GamalAsraan/Timetable-generator-ATG/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error)
	CancelJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error)
	Save(ctx context.Context, jobID string) (*dto.SaveTimetableResponse, error)
	List(ctx context.Context, termID string) ([]dto.TimetableSummary, error)
	Rows(ctx context.Context, id string) ([]dto.TimetableRow, error)
	Delete(ctx context.Context, id string) error
	ExportCSV(ctx context.Context, id string) ([]byte, error)
	ExportPDF(ctx context.Context, id, title string) ([]byte, error)
}

// ScheduleGeneratorHandler exposes the /api/v1/timetables endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc *service.ScheduleGeneratorService) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Start a timetable generation run
// @Description Runs the backtracking phase synchronously and enqueues the annealing phase as a background job
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// JobStatus godoc
// @Summary Get the status of a solve job
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *ScheduleGeneratorHandler) JobStatus(c *gin.Context) {
	result, err := h.service.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CancelJob godoc
// @Summary Cancel a running solve job
// @Description Blocks until the job reaches a terminal status, then returns that status with the best cost found so far
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [delete]
func (h *ScheduleGeneratorHandler) CancelJob(c *gin.Context) {
	result, err := h.service.CancelJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a solve job's best-known solution
// @Tags Timetables
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 201 {object} response.Envelope
// @Router /timetables/{jobId}/save [post]
func (h *ScheduleGeneratorHandler) Save(c *gin.Context) {
	result, err := h.service.Save(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List persisted timetable versions for a term
// @Tags Timetables
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *ScheduleGeneratorHandler) List(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId query parameter is required"))
		return
	}
	result, err := h.service.List(c.Request.Context(), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Rows godoc
// @Summary Get rows for a persisted timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/rows [get]
func (h *ScheduleGeneratorHandler) Rows(c *gin.Context) {
	rows, err := h.service.Rows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Delete godoc
// @Summary Delete a draft timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export a persisted timetable as CSV
// @Tags Timetables
// @Produce text/csv
// @Param id path string true "Timetable ID"
// @Success 200 {file} file
// @Router /timetables/{id}/export.csv [get]
func (h *ScheduleGeneratorHandler) ExportCSV(c *gin.Context) {
	data, err := h.service.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=timetable.csv")
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export a persisted timetable as PDF
// @Tags Timetables
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Success 200 {file} file
// @Router /timetables/{id}/export.pdf [get]
func (h *ScheduleGeneratorHandler) ExportPDF(c *gin.Context) {
	data, err := h.service.ExportPDF(c.Request.Context(), c.Param("id"), "Timetable")
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=timetable.pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}
