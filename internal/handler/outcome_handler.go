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

type outcomeService interface {
	List(ctx context.Context, filter models.OutcomeFilter) ([]models.OutcomeDefinition, error)
	Get(ctx context.Context, code string) (*models.OutcomeDefinition, error)
	Upsert(ctx context.Context, req service.UpsertOutcomeRequest) (*models.OutcomeDefinition, error)
}

// OutcomeHandler exposes the GA, CO and PO catalog.
type OutcomeHandler struct {
	outcomes outcomeService
}

// NewOutcomeHandler constructs handler.
func NewOutcomeHandler(outcomes outcomeService) *OutcomeHandler {
	return &OutcomeHandler{outcomes: outcomes}
}

// List godoc
// @Summary List outcome definitions
// @Tags Outcomes
// @Produce json
// @Param kind query string false "GA, CO or PO"
// @Param code query []string false "Filter by code"
// @Success 200 {object} response.Envelope
// @Router /outcomes [get]
func (h *OutcomeHandler) List(c *gin.Context) {
	filter := models.OutcomeFilter{Kind: models.OutcomeKind(c.Query("kind")), Codes: queryList(c, "code")}
	defs, err := h.outcomes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defs)
}

// Get godoc
// @Summary Get outcome definition
// @Tags Outcomes
// @Produce json
// @Param code path string true "Outcome code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /outcomes/{code} [get]
func (h *OutcomeHandler) Get(c *gin.Context) {
	def, err := h.outcomes.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, def)
}

// Upsert godoc
// @Summary Create or replace an outcome definition
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param payload body service.UpsertOutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /outcomes [put]
func (h *OutcomeHandler) Upsert(c *gin.Context) {
	var req service.UpsertOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	def, err := h.outcomes.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, def)
}
