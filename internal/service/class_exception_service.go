package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.ClassTemplate, error)
}

type exceptionWriter interface {
	Create(ctx context.Context, exception *models.ClassException) error
}

// ClassExceptionService records dates on which a class does not run.
type ClassExceptionService struct {
	classes    classFinder
	exceptions exceptionWriter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassExceptionService constructs the service.
func NewClassExceptionService(classes classFinder, exceptions exceptionWriter, validate *validator.Validate, logger *zap.Logger) *ClassExceptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassExceptionService{classes: classes, exceptions: exceptions, validator: validate, logger: logger}
}

// Create stores an exception. Only one exception may exist per class and date.
func (s *ClassExceptionService) Create(ctx context.Context, req dto.CreateClassExceptionRequest) (*models.ClassException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := loadClass(ctx, s.classes, req.TenantID, req.ClassID); err != nil {
		return nil, err
	}

	kind := models.ExceptionKind(req.Kind)
	if kind == "" {
		kind = models.ExceptionOther
	}
	exception := &models.ClassException{ClassID: req.ClassID, Date: date, Reason: req.Reason, Kind: kind}
	if err := s.exceptions.Create(ctx, exception); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an exception already exists for this class and date")
		}
		return nil, appErrors.Persistence(err, "failed to create class exception")
	}
	s.logger.Info("class exception created", zap.String("class_id", req.ClassID), zap.String("date", req.Date), zap.String("kind", string(kind)))
	return exception, nil
}

// loadClass fetches a class visible to tenantID, mapping absence to NOT_FOUND.
func loadClass(ctx context.Context, classes classFinder, tenantID, classID string) (*models.ClassTemplate, error) {
	class, err := classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Persistence(err, "failed to load class")
	}
	if tenantID != "" && class.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return class, nil
}
