package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/internal/service"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
	"github.com/noah-isme/academy-scheduling/pkg/response"
)

type conflictChecker interface {
	CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResult, error)
}

type extraClassAdder interface {
	AddExtraClass(ctx context.Context, req dto.AddExtraClassRequest) (*models.AthleteExtraClass, error)
}

// ConflictHandler exposes double-booking checks and the commitments guarded by them.
type ConflictHandler struct {
	conflicts conflictChecker
	extras    extraClassAdder
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(conflicts *service.ConflictService, commitments *service.CommitmentService) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts, extras: commitments}
}

// Check godoc
// @Summary Check a proposed slot against an athlete's or coach's commitments
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Proposed slot"
// @Success 200 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	req.TenantID = tenantFromContext(c)
	result, err := h.conflicts.CheckConflict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// AddExtraClass godoc
// @Summary Link an athlete to one occurrence of a class outside their groups
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Athlete ID"
// @Param payload body dto.AddExtraClassRequest true "Extra class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /athletes/{id}/extra-classes [post]
func (h *ConflictHandler) AddExtraClass(c *gin.Context) {
	var req dto.AddExtraClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extra class payload"))
		return
	}
	req.AthleteID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	extra, err := h.extras.AddExtraClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, extra)
}
