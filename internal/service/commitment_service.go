package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	"github.com/noah-isme/academy-scheduling/pkg/database"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type availabilityChecker interface {
	EnsureAvailable(ctx context.Context, proposal SlotProposal) error
	EnsureOwned(ctx context.Context, tenantID string, kind models.ResourceKind, resourceID string) error
}

type extraClassWriter interface {
	CreateExtraClass(ctx context.Context, extra *models.AthleteExtraClass) error
}

type sessionCreator interface {
	Create(ctx context.Context, session *models.ClassSession) error
}

// CommitmentService creates commitments only after the conflict detector clears them.
type CommitmentService struct {
	classes   classFinder
	extras    extraClassWriter
	sessions  sessionCreator
	conflicts availabilityChecker
	locks     runLocker
	lockTTL   time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommitmentService wires commitment dependencies.
func NewCommitmentService(
	classes classFinder,
	extras extraClassWriter,
	sessions sessionCreator,
	conflicts availabilityChecker,
	locks runLocker,
	lockTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *CommitmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &CommitmentService{
		classes:   classes,
		extras:    extras,
		sessions:  sessions,
		conflicts: conflicts,
		locks:     locks,
		lockTTL:   lockTTL,
		validator: validate,
		logger:    logger,
	}
}

// AddExtraClass links an athlete to one occurrence of a class. The athlete must belong to the class's
// tenant. Timed classes are checked against the
// athlete's existing commitments first; untimed classes cannot conflict.
func (s *CommitmentService) AddExtraClass(ctx context.Context, req dto.AddExtraClassRequest) (*models.AthleteExtraClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extra class payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	class, err := loadClass(ctx, s.classes, req.TenantID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.conflicts.EnsureOwned(ctx, class.TenantID, models.ResourceAthlete, req.AthleteID); err != nil {
		return nil, err
	}

	lock, err := acquireRunLock(ctx, s.locks, "lock:commitment:athlete:"+req.AthleteID, s.lockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	if class.Timed() {
		if err := s.conflicts.EnsureAvailable(ctx, SlotProposal{
			TenantID:  class.TenantID,
			Date:      date,
			Start:     *class.StartTime,
			End:       *class.EndTime,
			AthleteID: req.AthleteID,
		}); err != nil {
			return nil, err
		}
	}

	extra := &models.AthleteExtraClass{
		AthleteID: req.AthleteID,
		ClassID:   class.ID,
		Date:      date,
		StartTime: class.StartTime,
		EndTime:   class.EndTime,
	}
	if err := s.extras.CreateExtraClass(ctx, extra); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "athlete is already linked to this class on that date")
		}
		return nil, appErrors.Persistence(err, "failed to create extra class")
	}
	s.logger.Info("extra class added",
		zap.String("athlete_id", req.AthleteID),
		zap.String("class_id", class.ID),
		zap.String("date", req.Date),
	)
	return extra, nil
}

// CreateSession records an ad-hoc session of a class. The assigned coach is checked against their
// other commitments; a second session of the same class on the same date is rejected by storage.
func (s *CommitmentService) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	class, err := loadClass(ctx, s.classes, req.TenantID, req.ClassID)
	if err != nil {
		return nil, err
	}

	start, end := class.StartTime, class.EndTime
	if req.StartTime != "" || req.EndTime != "" {
		if start, end, err = parseSessionTimes(req.StartTime, req.EndTime); err != nil {
			return nil, err
		}
	}
	coachID := class.CoachID
	if req.CoachID != nil && *req.CoachID != "" {
		if err := s.conflicts.EnsureOwned(ctx, class.TenantID, models.ResourceCoach, *req.CoachID); err != nil {
			return nil, err
		}
		coachID = req.CoachID
	}

	lockKey := "lock:commitment:class:" + class.ID
	if coachID != nil {
		lockKey = "lock:commitment:coach:" + *coachID
	}
	lock, err := acquireRunLock(ctx, s.locks, lockKey, s.lockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	if coachID != nil && start != nil && end != nil {
		if err := s.conflicts.EnsureAvailable(ctx, SlotProposal{
			TenantID:      class.TenantID,
			Date:          date,
			Start:         *start,
			End:           *end,
			CoachID:       *coachID,
			IgnoreClassID: class.ID,
		}); err != nil {
			return nil, err
		}
	}

	session := &models.ClassSession{
		TenantID:  class.TenantID,
		ClassID:   class.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    models.SessionScheduled,
		CoachID:   coachID,
		Origin:    models.SessionOriginManual,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a session already exists for this class on that date")
		}
		return nil, appErrors.Persistence(err, "failed to create session")
	}
	s.logger.Info("session created", zap.String("class_id", class.ID), zap.String("date", req.Date))
	return session, nil
}

func parseSessionTimes(rawStart, rawEnd string) (*models.Clock, *models.Clock, error) {
	if rawStart == "" || rawEnd == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "startTime and endTime must be provided together")
	}
	start, err := models.ParseClock(rawStart)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := models.ParseClock(rawEnd)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if end <= start {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}
	return &start, &end, nil
}
