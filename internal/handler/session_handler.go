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

type sessionMaterializer interface {
	Materialize(ctx context.Context, req dto.MaterializeSessionsRequest) (*dto.MaterializeResult, error)
	MaterializeAcademy(ctx context.Context, req dto.MaterializeAcademyRequest) (*dto.MaterializeAcademyResult, error)
}

type sessionCreator interface {
	CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.ClassSession, error)
}

type exceptionCreator interface {
	Create(ctx context.Context, req dto.CreateClassExceptionRequest) (*models.ClassException, error)
}

// SessionHandler exposes session materialization and ad-hoc session endpoints.
type SessionHandler struct {
	materializer sessionMaterializer
	sessions     sessionCreator
	exceptions   exceptionCreator
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(materializer *service.SessionMaterializerService, commitments *service.CommitmentService, exceptions *service.ClassExceptionService) *SessionHandler {
	return &SessionHandler{materializer: materializer, sessions: commitments, exceptions: exceptions}
}

// MaterializeClass godoc
// @Summary Materialize sessions of a class
// @Description Inserts the missing sessions of a class over an explicit range or the next weeksAhead weeks. Re-running is a no-op.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.MaterializeSessionsRequest false "Materialization window"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{id}/sessions/materialize [post]
func (h *SessionHandler) MaterializeClass(c *gin.Context) {
	var req dto.MaterializeSessionsRequest
	if err := bindOptionalJSON(c, &req, "invalid materialization payload"); err != nil {
		response.Error(c, err)
		return
	}
	req.ClassID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	result, err := h.materializer.Materialize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// MaterializeAcademy godoc
// @Summary Materialize sessions of every auto-generating class of an academy
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Academy ID"
// @Param payload body dto.MaterializeAcademyRequest false "Weeks ahead"
// @Success 200 {object} response.Envelope
// @Router /academies/{id}/sessions/materialize [post]
func (h *SessionHandler) MaterializeAcademy(c *gin.Context) {
	var req dto.MaterializeAcademyRequest
	if err := bindOptionalJSON(c, &req, "invalid materialization payload"); err != nil {
		response.Error(c, err)
		return
	}
	req.AcademyID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	result, err := h.materializer.MaterializeAcademy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"classes": len(result.Classes)})
}

// CreateSession godoc
// @Summary Create an ad-hoc session of a class
// @Description The assigned coach is checked for double booking before the session is stored.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	req.ClassID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	session, err := h.sessions.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// CreateException godoc
// @Summary Exclude a date from a class's recurrence
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.CreateClassExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/exceptions [post]
func (h *SessionHandler) CreateException(c *gin.Context) {
	var req dto.CreateClassExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exception payload"))
		return
	}
	req.ClassID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	exception, err := h.exceptions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exception)
}
