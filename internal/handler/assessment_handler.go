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

type assessmentService interface {
	Create(ctx context.Context, req service.CreateAssessmentRequest) (*models.Assessment, error)
	Get(ctx context.Context, id string) (*models.Assessment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error)
	Mappings(ctx context.Context, id string) (models.MappingSet, error)
	UpdateMappings(ctx context.Context, id string, req service.UpdateMappingsRequest) (*models.Assessment, error)
	InitEndTermGrid(ctx context.Context, id string) ([]models.QuestionSlot, error)
}

// AssessmentHandler exposes assessment and mapping endpoints.
type AssessmentHandler struct {
	assessments assessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(assessments assessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// Create godoc
// @Summary Create assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req service.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	a, err := h.assessments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Get godoc
// @Summary Get assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	a, err := h.assessments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, a)
}

// ListByCourse godoc
// @Summary List assessments of a course
// @Tags Assessments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assessments [get]
func (h *AssessmentHandler) ListByCourse(c *gin.Context) {
	items, err := h.assessments.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}

// Mappings godoc
// @Summary Get assessment outcome mappings
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id}/mappings [get]
func (h *AssessmentHandler) Mappings(c *gin.Context) {
	set, err := h.assessments.Mappings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set)
}

// UpdateMappings godoc
// @Summary Replace assessment outcome mappings
// @Description Stored records of the assessment are rescored in the background.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body service.UpdateMappingsRequest true "Mappings payload"
// @Success 202 {object} response.Envelope
// @Router /assessments/{id}/mappings [put]
func (h *AssessmentHandler) UpdateMappings(c *gin.Context) {
	var req service.UpdateMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	a, err := h.assessments.UpdateMappings(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, a, map[string]interface{}{"rescore": "scheduled"})
}

// EndTermGrid godoc
// @Summary Initialise an End-Term answer grid
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/{id}/end-term-grid [get]
func (h *AssessmentHandler) EndTermGrid(c *gin.Context) {
	grid, err := h.assessments.InitEndTermGrid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid)
}
