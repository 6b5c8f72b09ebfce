package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
	"github.com/noah-isme/academy-scheduling/pkg/response"
)

type statementArchive interface {
	Archive(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.StatementLink, error)
	Open(token string) (*dto.ExportFile, error)
}

// StatementHandler archives billing statements and serves them through signed links.
type StatementHandler struct {
	archive statementArchive
}

// NewStatementHandler constructs the handler.
func NewStatementHandler(archive statementArchive) *StatementHandler {
	return &StatementHandler{archive: archive}
}

// Archive godoc
// @Summary Archive a period's statement and return a signed download link
// @Tags Billing
// @Produce json
// @Param id path string true "Academy ID"
// @Param period query string true "Billing period (YYYY-MM)"
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /academies/{id}/charges/statements [post]
func (h *StatementHandler) Archive(c *gin.Context) {
	var req dto.ChargeExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statement query"))
		return
	}
	req.AcademyID = c.Param("id")

	link, err := h.archive.Archive(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download an archived statement
// @Tags Billing
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed statement token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /statements/{token} [get]
func (h *StatementHandler) Download(c *gin.Context) {
	file, err := h.archive.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
