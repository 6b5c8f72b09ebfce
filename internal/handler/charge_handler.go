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

type chargeGenerator interface {
	GenerateMonthlyCharges(ctx context.Context, req dto.GenerateChargesRequest) (*dto.ChargeGenerationResult, error)
}

type chargeExporter interface {
	Export(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.ExportFile, error)
}

type chargeStatusUpdater interface {
	ApplyPaymentStatus(ctx context.Context, tenantID, chargeID string, req dto.ChargeStatusRequest) (*models.Charge, error)
}

// ChargeHandler exposes monthly billing endpoints.
type ChargeHandler struct {
	generator chargeGenerator
	exporter  chargeExporter
	status    chargeStatusUpdater
}

// NewChargeHandler constructs the handler.
func NewChargeHandler(generator *service.ChargeGeneratorService, exporter *service.ChargeExportService, status *service.ChargeStatusService) *ChargeHandler {
	return &ChargeHandler{generator: generator, exporter: exporter, status: status}
}

// Generate godoc
// @Summary Generate monthly charges for an academy
// @Description Creates one pending charge per billable athlete. Re-running for the same period creates nothing new.
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Academy ID"
// @Param payload body dto.GenerateChargesRequest true "Period and scope"
// @Success 200 {object} response.Envelope
// @Router /academies/{id}/charges/generate [post]
func (h *ChargeHandler) Generate(c *gin.Context) {
	var req dto.GenerateChargesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid charge generation payload"))
		return
	}
	req.AcademyID = c.Param("id")
	req.TenantID = tenantFromContext(c)

	result, err := h.generator.GenerateMonthlyCharges(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Export a period's charges
// @Tags Billing
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Academy ID"
// @Param period query string true "Billing period (YYYY-MM)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /academies/{id}/charges/export [get]
func (h *ChargeHandler) Export(c *gin.Context) {
	var req dto.ChargeExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	req.AcademyID = c.Param("id")

	file, err := h.exporter.Export(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// UpdateStatus godoc
// @Summary Record a payment outcome for a charge
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Charge ID"
// @Param payload body dto.ChargeStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /charges/{id}/status [patch]
func (h *ChargeHandler) UpdateStatus(c *gin.Context) {
	var req dto.ChargeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid charge status payload"))
		return
	}
	charge, err := h.status.ApplyPaymentStatus(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, charge)
}
