package models

import (
	"fmt"
	"time"
)

// ResourceKind identifies who a commitment belongs to.
type ResourceKind string

// Resource kinds checked for double booking.
const (
	ResourceAthlete ResourceKind = "athlete"
	ResourceCoach   ResourceKind = "coach"
)

// Valid reports whether the resource kind is known.
func (k ResourceKind) Valid() bool {
	return k == ResourceAthlete || k == ResourceCoach
}

// CommitmentKind distinguishes recurring from one-off commitments.
type CommitmentKind string

// Commitment kinds. Base commitments recur weekly; extra commitments occur on one date.
const (
	CommitmentBase  CommitmentKind = "base"
	CommitmentExtra CommitmentKind = "extra"
)

// Commitment is a resource's claim on a time slot. Exactly one of Weekdays (base) or Date (extra)
// is meaningful, selected by Kind.
type Commitment struct {
	Kind      CommitmentKind
	ClassID   string
	ClassName string
	Weekdays  []Weekday
	Date      time.Time
	Start     *Clock
	End       *Clock
}

// BaseCommitment builds a recurring commitment.
func BaseCommitment(classID, className string, weekdays []Weekday, start, end *Clock) Commitment {
	return Commitment{Kind: CommitmentBase, ClassID: classID, ClassName: className, Weekdays: weekdays, Start: start, End: end}
}

// ExtraCommitment builds a single-date commitment.
func ExtraCommitment(classID, className string, date time.Time, start, end *Clock) Commitment {
	return Commitment{Kind: CommitmentExtra, ClassID: classID, ClassName: className, Date: DateOf(date), Start: start, End: end}
}

// WindowOn resolves the commitment to a concrete window on date. Untimed commitments and
// commitments that do not occur on date yield false.
func (c Commitment) WindowOn(date time.Time) (CommitmentWindow, bool) {
	if c.Start == nil || c.End == nil {
		return CommitmentWindow{}, false
	}
	day := DateOf(date)
	switch c.Kind {
	case CommitmentBase:
		weekday := WeekdayOf(day)
		occurs := false
		for _, w := range c.Weekdays {
			if w == weekday {
				occurs = true
				break
			}
		}
		if !occurs {
			return CommitmentWindow{}, false
		}
	case CommitmentExtra:
		if !DateOf(c.Date).Equal(day) {
			return CommitmentWindow{}, false
		}
	default:
		return CommitmentWindow{}, false
	}
	return CommitmentWindow{
		Kind:      c.Kind,
		ClassID:   c.ClassID,
		ClassName: c.ClassName,
		Date:      day,
		Start:     *c.Start,
		End:       *c.End,
	}, true
}

// CommitmentWindow is the uniform dated shape every commitment resolves to.
type CommitmentWindow struct {
	Kind      CommitmentKind
	ClassID   string
	ClassName string
	Date      time.Time
	Start     Clock
	End       Clock
}

// Overlaps applies half-open interval overlap; touching endpoints do not overlap.
func (w CommitmentWindow) Overlaps(start, end Clock) bool {
	return start < w.End && end > w.Start
}

// CommitmentConflict describes the commitment that blocks a proposed slot.
type CommitmentConflict struct {
	ResourceKind ResourceKind   `json:"resource_kind"`
	ResourceID   string         `json:"resource_id"`
	Kind         CommitmentKind `json:"kind"`
	ClassID      string         `json:"class_id"`
	ClassName    string         `json:"class_name"`
	Date         string         `json:"date"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
}

// NewCommitmentConflict renders a window into a conflict description.
func NewCommitmentConflict(kind ResourceKind, resourceID string, w CommitmentWindow) CommitmentConflict {
	return CommitmentConflict{
		ResourceKind: kind,
		ResourceID:   resourceID,
		Kind:         w.Kind,
		ClassID:      w.ClassID,
		ClassName:    w.ClassName,
		Date:         DateKey(w.Date),
		StartTime:    w.Start.String(),
		EndTime:      w.End.String(),
	}
}

// ScheduleConflictError is returned when a proposed slot collides with an existing commitment.
type ScheduleConflictError struct {
	Message  string             `json:"message"`
	Conflict CommitmentConflict `json:"conflict"`
}

// NewScheduleConflictError builds an actionable conflict error.
func NewScheduleConflictError(conflict CommitmentConflict) *ScheduleConflictError {
	return &ScheduleConflictError{
		Message: fmt.Sprintf("%s %s already attends %s (%s class) on %s from %s to %s",
			conflict.ResourceKind, conflict.ResourceID, conflict.ClassName, conflict.Kind,
			conflict.Date, conflict.StartTime, conflict.EndTime),
		Conflict: conflict,
	}
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
