package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/response"
)

type attainmentReportService interface {
	StudentReport(ctx context.Context, studentID string, filter models.ReportFilter) (*models.StudentAttainment, error)
	CohortReport(ctx context.Context, filter models.ReportFilter) (*models.CohortAttainment, error)
}

type reportExporter interface {
	Export(ctx context.Context, filter models.ReportFilter, format models.ReportFormat) (*service.ExportFile, error)
}

// AttainmentReportHandler exposes student and cohort attainment reports.
type AttainmentReportHandler struct {
	reports  attainmentReportService
	exporter reportExporter
}

// NewAttainmentReportHandler constructs handler. exporter may be nil when exports are
// disabled.
func NewAttainmentReportHandler(reports attainmentReportService, exporter reportExporter) *AttainmentReportHandler {
	return &AttainmentReportHandler{reports: reports, exporter: exporter}
}

func reportFilter(c *gin.Context) models.ReportFilter {
	return models.ReportFilter{
		CourseID:      c.Query("courseId"),
		StudentIDs:    queryList(c, "studentId"),
		AssessmentIDs: queryList(c, "assessmentId"),
	}
}

// StudentReport godoc
// @Summary Student attainment per outcome
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId query string false "Course scope"
// @Param assessmentId query []string false "Assessment scope"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{studentId} [get]
func (h *AttainmentReportHandler) StudentReport(c *gin.Context) {
	report, err := h.reports.StudentReport(c.Request.Context(), c.Param("studentId"), reportFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{"skipped": len(report.Skipped)})
}

// CohortReport godoc
// @Summary Cohort attainment summary per outcome
// @Tags Reports
// @Produce json
// @Param courseId query string false "Course scope"
// @Param studentId query []string false "Student scope"
// @Param assessmentId query []string false "Assessment scope"
// @Param students query bool false "Include per-student reports"
// @Success 200 {object} response.Envelope
// @Router /reports/cohort [get]
func (h *AttainmentReportHandler) CohortReport(c *gin.Context) {
	cohort, err := h.reports.CohortReport(c.Request.Context(), reportFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := *cohort
	if c.Query("students") != "true" {
		payload.Students = nil
	}
	response.JSON(c, http.StatusOK, payload, map[string]interface{}{"skipped": len(cohort.Skipped)})
}

// Export godoc
// @Summary Export cohort attainment as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param courseId query string false "Course scope"
// @Param studentId query []string false "Student scope"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /reports/cohort/export [get]
func (h *AttainmentReportHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report exports are disabled"))
		return
	}
	format := models.ReportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ReportFormatCSV))))
	file, err := h.exporter.Export(c.Request.Context(), reportFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
