package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/response"
)

type recordService interface {
	SubmitMarks(ctx context.Context, req service.SubmitMarksRequest) (*models.StudentAssessmentRecord, error)
	SubmitEndTerm(ctx context.Context, req service.SubmitEndTermRequest) (*models.StudentAssessmentRecord, error)
	BulkSubmit(ctx context.Context, req service.BulkSubmitRequest) (*service.BulkSubmitResult, error)
	ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error)
}

// RecordHandler exposes mark submission endpoints.
type RecordHandler struct {
	records recordService
}

// NewRecordHandler constructs handler.
func NewRecordHandler(records recordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// Submit godoc
// @Summary Submit marks for a non End-Term assessment
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body service.SubmitMarksRequest true "Marks payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /records [post]
func (h *RecordHandler) Submit(c *gin.Context) {
	var req service.SubmitMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.SubmitMarks(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// SubmitEndTerm godoc
// @Summary Submit an End-Term answer grid
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body service.SubmitEndTermRequest true "Answer grid payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /records/end-term [post]
func (h *RecordHandler) SubmitEndTerm(c *gin.Context) {
	var req service.SubmitEndTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.SubmitEndTerm(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Bulk godoc
// @Summary Bulk submit marks for one assessment
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body service.BulkSubmitRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /records/bulk [post]
func (h *RecordHandler) Bulk(c *gin.Context) {
	var req service.BulkSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.records.BulkSubmit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List student assessment records
// @Tags Records
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param studentId query []string false "Filter by student"
// @Param assessmentId query []string false "Filter by assessment"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	filter := models.RecordFilter{
		CourseID:      c.Query("courseId"),
		StudentIDs:    queryList(c, "studentId"),
		AssessmentIDs: queryList(c, "assessmentId"),
	}
	records, err := h.records.ListRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}
