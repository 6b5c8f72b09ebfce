package dto

import "time"

// MaterializeSessionsRequest asks for the sessions of one class to be materialized.
// An explicit From/To range wins over WeeksAhead when both bounds are present.
type MaterializeSessionsRequest struct {
	TenantID   string `json:"-"`
	ClassID    string `json:"classId" validate:"required"`
	WeeksAhead int    `json:"weeksAhead" validate:"omitempty,min=1,max=52"`
	From       string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// MaterializeResult summarises one materialization run.
type MaterializeResult struct {
	ClassID    string   `json:"classId"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Generated  int      `json:"generated"`
	Skipped    int      `json:"skipped"`
	SkipReason string   `json:"skipReason,omitempty"`
	Errors     []string `json:"errors"`
}

// MaterializeAcademyRequest materializes every auto-generating class of an academy.
type MaterializeAcademyRequest struct {
	TenantID   string `json:"-"`
	AcademyID  string `json:"academyId" validate:"required"`
	WeeksAhead int    `json:"weeksAhead" validate:"omitempty,min=1,max=52"`
}

// MaterializeAcademyResult aggregates per-class results.
type MaterializeAcademyResult struct {
	AcademyID string              `json:"academyId"`
	Classes   []MaterializeResult `json:"classes"`
	Generated int                 `json:"generated"`
	Skipped   int                 `json:"skipped"`
	Errors    []string            `json:"errors"`
}

// ConflictCheckRequest proposes a slot for a single resource.
type ConflictCheckRequest struct {
	TenantID     string    `json:"-"`
	ResourceKind string    `json:"resourceKind" validate:"required,oneof=athlete coach"`
	ResourceID   string    `json:"resourceId" validate:"required"`
	Start        time.Time `json:"start" validate:"required"`
	End          time.Time `json:"end" validate:"required,gtfield=Start"`
}

// ConflictCheckResult reports the first blocking commitment, if any.
type ConflictCheckResult struct {
	HasConflict bool                `json:"hasConflict"`
	Conflict    *CommitmentConflict `json:"conflictingCommitment,omitempty"`
}

// CommitmentConflict is the wire shape of a blocking commitment.
type CommitmentConflict struct {
	ResourceKind string `json:"resourceKind"`
	ResourceID   string `json:"resourceId"`
	Kind         string `json:"kind"`
	ClassID      string `json:"classId"`
	ClassName    string `json:"className"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Message      string `json:"message"`
}

// AddExtraClassRequest links an athlete to one occurrence of a class outside their groups.
type AddExtraClassRequest struct {
	TenantID  string `json:"-"`
	AthleteID string `json:"athleteId" validate:"required"`
	ClassID   string `json:"classId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
}

// CreateSessionRequest creates an ad-hoc session of a class.
type CreateSessionRequest struct {
	TenantID  string  `json:"-"`
	ClassID   string  `json:"classId" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string  `json:"startTime" validate:"omitempty"`
	EndTime   string  `json:"endTime" validate:"omitempty"`
	CoachID   *string `json:"coachId"`
}

// CreateClassExceptionRequest excludes a single date from a class's recurrence.
type CreateClassExceptionRequest struct {
	TenantID string `json:"-"`
	ClassID  string `json:"classId" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason   string `json:"reason" validate:"required,max=255"`
	Kind     string `json:"kind" validate:"omitempty,oneof=holiday cancellation other"`
}
