package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/pkg/export"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type chargeLister interface {
	ListByPeriod(ctx context.Context, academyID, period string) ([]models.ChargeDetail, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

var statementHeaders = []string{"athlete", "description", "amount", "currency", "due_date", "status"}

// ChargeExportService renders a period's charges as a CSV or PDF statement.
type ChargeExportService struct {
	charges   chargeLister
	academies academyReader
	renderers map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChargeExportService constructs the export service with CSV and PDF renderers.
func NewChargeExportService(charges chargeLister, academies academyReader, validate *validator.Validate, logger *zap.Logger) *ChargeExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChargeExportService{
		charges:   charges,
		academies: academies,
		renderers: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
	}
}

// Export lists the charges of an academy for a period and renders them in format.
func (s *ChargeExportService) Export(ctx context.Context, tenantID string, req dto.ChargeExportRequest) (*dto.ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	format := req.Format
	if format == "" {
		format = "csv"
	}
	renderer := s.renderers[format]

	academy, err := s.academies.FindByID(ctx, req.AcademyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academy not found")
		}
		return nil, appErrors.Persistence(err, "failed to load academy")
	}
	if tenantID != "" && academy.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academy not found")
	}

	charges, err := s.charges.ListByPeriod(ctx, academy.ID, period.String())
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list charges")
	}

	data := export.Dataset{
		Title:    fmt.Sprintf("%s - charges", academy.Name),
		Subtitle: period.Label(),
		Headers:  statementHeaders,
		Rows:     make([]map[string]string, 0, len(charges)),
	}
	var total int64
	for _, c := range charges {
		if c.Status != models.ChargeCancelled {
			total += c.AmountCents
		}
		data.Rows = append(data.Rows, map[string]string{
			"athlete":     c.AthleteName,
			"description": c.Description,
			"amount":      formatCents(c.AmountCents),
			"currency":    c.Currency,
			"due_date":    models.DateKey(c.DueDate),
			"status":      string(c.Status),
		})
	}
	data.Totals = map[string]string{"athlete": "TOTAL", "amount": formatCents(total)}

	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	s.logger.Debug("charge statement rendered", zap.String("academy_id", academy.ID), zap.String("period", period.String()), zap.String("format", format), zap.Int("rows", len(charges)))
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("charges_%s_%s.%s", academy.ID, period.String(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
