package models

import "time"

// ClassTemplate is the declarative weekly definition of a recurring class.
type ClassTemplate struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	AcademyID    string    `db:"academy_id" json:"academy_id"`
	Name         string    `db:"name" json:"name"`
	CoachID      *string   `db:"coach_id" json:"coach_id,omitempty"`
	StartTime    *Clock    `db:"start_time" json:"start_time,omitempty"`
	EndTime      *Clock    `db:"end_time" json:"end_time,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	AutoGenerate bool      `db:"auto_generate" json:"auto_generate"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Timed reports whether the class has both a start and an end time.
func (c ClassTemplate) Timed() bool {
	return c.StartTime != nil && c.EndTime != nil
}

// ExceptionKind classifies why a date is excluded from recurrence.
type ExceptionKind string

// Exception kinds.
const (
	ExceptionHoliday      ExceptionKind = "holiday"
	ExceptionCancellation ExceptionKind = "cancellation"
	ExceptionOther        ExceptionKind = "other"
)

// ClassException suppresses a single date of a class's recurrence.
type ClassException struct {
	ID        string        `db:"id" json:"id"`
	ClassID   string        `db:"class_id" json:"class_id"`
	Date      time.Time     `db:"exception_date" json:"date"`
	Reason    string        `db:"reason" json:"reason"`
	Kind      ExceptionKind `db:"kind" json:"kind"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// SessionStatus is the lifecycle state of a materialized session.
type SessionStatus string

// Session statuses. Transitions past scheduled are driven by attendance.
const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// SessionOrigin records how a session row came to exist.
type SessionOrigin string

// Session origins.
const (
	SessionOriginGenerated SessionOrigin = "generated"
	SessionOriginManual    SessionOrigin = "manual"
)

// ClassSession is a concrete dated occurrence of a class.
type ClassSession struct {
	ID        string        `db:"id" json:"id"`
	TenantID  string        `db:"tenant_id" json:"tenant_id"`
	ClassID   string        `db:"class_id" json:"class_id"`
	Date      time.Time     `db:"session_date" json:"date"`
	StartTime *Clock        `db:"start_time" json:"start_time,omitempty"`
	EndTime   *Clock        `db:"end_time" json:"end_time,omitempty"`
	Status    SessionStatus `db:"status" json:"status"`
	CoachID   *string       `db:"coach_id" json:"coach_id,omitempty"`
	Origin    SessionOrigin `db:"origin" json:"origin"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// AthleteExtraClass links an athlete to a class occurrence outside their groups.
type AthleteExtraClass struct {
	ID        string    `db:"id" json:"id"`
	AthleteID string    `db:"athlete_id" json:"athlete_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Date      time.Time `db:"session_date" json:"date"`
	StartTime *Clock    `db:"start_time" json:"start_time,omitempty"`
	EndTime   *Clock    `db:"end_time" json:"end_time,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
