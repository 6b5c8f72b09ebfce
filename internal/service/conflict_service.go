package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduling/internal/dto"
	"github.com/noah-isme/academy-scheduling/internal/models"
	appErrors "github.com/noah-isme/academy-scheduling/pkg/errors"
)

type commitmentReader interface {
	ListAthleteBase(ctx context.Context, tenantID, athleteID string) ([]models.Commitment, error)
	ListCoachBase(ctx context.Context, tenantID, coachID string) ([]models.Commitment, error)
	ListAthleteExtra(ctx context.Context, tenantID, athleteID string, date time.Time) ([]models.Commitment, error)
	ListCoachExtra(ctx context.Context, tenantID, coachID string, date time.Time) ([]models.Commitment, error)
	ResourceTenant(ctx context.Context, kind models.ResourceKind, id string) (string, error)
}

// SlotProposal is a timed slot about to be committed for an athlete, a coach, or both.
// Commitments of IgnoreClassID are not considered, so a class never conflicts with itself.
// Only commitments inside TenantID are read; an empty TenantID reads across tenants.
type SlotProposal struct {
	TenantID      string
	Date          time.Time
	Start         models.Clock
	End           models.Clock
	AthleteID     string
	CoachID       string
	IgnoreClassID string
}

// ConflictService detects double booking of athletes and coaches.
type ConflictService struct {
	commitments commitmentReader
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	location    *time.Location
}

// NewConflictService constructs the detector. Proposed instants are read in loc.
func NewConflictService(commitments commitmentReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, loc *time.Location) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ConflictService{commitments: commitments, validator: validate, logger: logger, metrics: metrics, location: loc}
}

// CheckConflict reports the first commitment of the resource overlapping the proposed interval.
func (s *ConflictService) CheckConflict(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	date, start, end, err := s.splitInterval(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	kind := models.ResourceKind(req.ResourceKind)
	if err := s.EnsureOwned(ctx, req.TenantID, kind, req.ResourceID); err != nil {
		return nil, err
	}
	conflict, err := s.findConflict(ctx, req.TenantID, kind, req.ResourceID, date, start, end, "")
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return &dto.ConflictCheckResult{HasConflict: false}, nil
	}
	return &dto.ConflictCheckResult{HasConflict: true, Conflict: conflictDTO(*conflict)}, nil
}

// EnsureAvailable checks the athlete and then the coach of a proposal, failing with SCHEDULE_CONFLICT
// on the first overlap found.
func (s *ConflictService) EnsureAvailable(ctx context.Context, proposal SlotProposal) error {
	if proposal.End <= proposal.Start {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	checks := []struct {
		kind models.ResourceKind
		id   string
	}{
		{models.ResourceAthlete, proposal.AthleteID},
		{models.ResourceCoach, proposal.CoachID},
	}
	for _, check := range checks {
		if check.id == "" {
			continue
		}
		conflict, err := s.findConflict(ctx, proposal.TenantID, check.kind, check.id, proposal.Date, proposal.Start, proposal.End, proposal.IgnoreClassID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return scheduleConflict(*conflict)
		}
	}
	return nil
}

// EnsureIntervalAvailable is EnsureAvailable for absolute instants.
func (s *ConflictService) EnsureIntervalAvailable(ctx context.Context, tenantID string, start, end time.Time, athleteID, coachID string) error {
	date, from, to, err := s.splitInterval(start, end)
	if err != nil {
		return err
	}
	return s.EnsureAvailable(ctx, SlotProposal{TenantID: tenantID, Date: date, Start: from, End: to, AthleteID: athleteID, CoachID: coachID})
}

// EnsureOwned fails with NOT_FOUND unless the athlete or coach belongs to tenantID.
// An empty tenantID skips the check.
func (s *ConflictService) EnsureOwned(ctx context.Context, tenantID string, kind models.ResourceKind, resourceID string) error {
	if tenantID == "" {
		return nil
	}
	switch kind {
	case models.ResourceAthlete, models.ResourceCoach:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "resourceKind must be athlete or coach")
	}
	owner, err := s.commitments.ResourceTenant(ctx, kind, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
		}
		return appErrors.Persistence(err, "failed to load "+string(kind))
	}
	if owner != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
	}
	return nil
}

func (s *ConflictService) findConflict(ctx context.Context, tenantID string, kind models.ResourceKind, resourceID string, date time.Time, start, end models.Clock, ignoreClassID string) (*models.CommitmentConflict, error) {
	var (
		base, extra []models.Commitment
		err         error
	)
	switch kind {
	case models.ResourceAthlete:
		if base, err = s.commitments.ListAthleteBase(ctx, tenantID, resourceID); err != nil {
			return nil, appErrors.Persistence(err, "failed to load athlete commitments")
		}
		if extra, err = s.commitments.ListAthleteExtra(ctx, tenantID, resourceID, date); err != nil {
			return nil, appErrors.Persistence(err, "failed to load athlete commitments")
		}
	case models.ResourceCoach:
		if base, err = s.commitments.ListCoachBase(ctx, tenantID, resourceID); err != nil {
			return nil, appErrors.Persistence(err, "failed to load coach commitments")
		}
		if extra, err = s.commitments.ListCoachExtra(ctx, tenantID, resourceID, date); err != nil {
			return nil, appErrors.Persistence(err, "failed to load coach commitments")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "resourceKind must be athlete or coach")
	}

	for _, group := range [][]models.Commitment{base, extra} {
		for _, window := range windowsOn(group, date, ignoreClassID) {
			if window.Overlaps(start, end) {
				conflict := models.NewCommitmentConflict(kind, resourceID, window)
				s.metrics.RecordConflict(string(kind), string(window.Kind))
				s.logger.Debug("schedule conflict detected",
					zap.String("resource_kind", string(kind)),
					zap.String("resource_id", resourceID),
					zap.String("class_id", window.ClassID),
					zap.String("date", conflict.Date),
				)
				return &conflict, nil
			}
		}
	}
	return nil, nil
}

// windowsOn resolves commitments occurring on date, ordered by start time.
func windowsOn(commitments []models.Commitment, date time.Time, ignoreClassID string) []models.CommitmentWindow {
	windows := make([]models.CommitmentWindow, 0, len(commitments))
	for _, c := range commitments {
		if ignoreClassID != "" && c.ClassID == ignoreClassID {
			continue
		}
		if w, ok := c.WindowOn(date); ok {
			windows = append(windows, w)
		}
	}
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Start != windows[j].Start {
			return windows[i].Start < windows[j].Start
		}
		return windows[i].ClassID < windows[j].ClassID
	})
	return windows
}

// splitInterval maps an instant pair onto one civil date in the scheduling timezone. The end may fall
// exactly on the following midnight.
func (s *ConflictService) splitInterval(start, end time.Time) (time.Time, models.Clock, models.Clock, error) {
	if !end.After(start) {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	localStart, localEnd := start.In(s.location), end.In(s.location)
	date := models.DateOf(localStart)
	endDate := models.DateOf(localEnd)
	endClock := models.ClockOf(localEnd)
	switch {
	case endDate.Equal(date):
	case endDate.Equal(date.AddDate(0, 0, 1)) && endClock == 0:
		endClock = models.NewClock(24, 0)
	default:
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "proposed interval must stay within a single day")
	}
	return date, models.ClockOf(localStart), endClock, nil
}

func scheduleConflict(conflict models.CommitmentConflict) error {
	cause := models.NewScheduleConflictError(conflict)
	appErr := appErrors.Wrap(cause, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, cause.Message)
	appErr.Details = conflictDTO(conflict)
	return appErr
}

func conflictDTO(conflict models.CommitmentConflict) *dto.CommitmentConflict {
	return &dto.CommitmentConflict{
		ResourceKind: string(conflict.ResourceKind),
		ResourceID:   conflict.ResourceID,
		Kind:         string(conflict.Kind),
		ClassID:      conflict.ClassID,
		ClassName:    conflict.ClassName,
		Date:         conflict.Date,
		StartTime:    conflict.StartTime,
		EndTime:      conflict.EndTime,
		Message:      models.NewScheduleConflictError(conflict).Message,
	}
}
