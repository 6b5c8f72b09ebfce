package models

import (
	"fmt"
	"time"
)

// PeriodLayout is the canonical billing period format.
const PeriodLayout = "2006-01"

// Period is a billing calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a strict "YYYY-MM" period.
func ParsePeriod(raw string) (Period, error) {
	if len(raw) != len(PeriodLayout) {
		return Period{}, fmt.Errorf("invalid period %q, expected YYYY-MM", raw)
	}
	t, err := time.Parse(PeriodLayout, raw)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q, expected YYYY-MM", raw)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// DueDate is the last calendar day of the period.
func (p Period) DueDate() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Label renders the human month name, e.g. "March 2025".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Month.String(), p.Year)
}

// ChargeStatus is the payment state of a charge.
type ChargeStatus string

// Charge statuses.
const (
	ChargePending   ChargeStatus = "pending"
	ChargePaid      ChargeStatus = "paid"
	ChargeOverdue   ChargeStatus = "overdue"
	ChargeCancelled ChargeStatus = "cancelled"
	ChargePartial   ChargeStatus = "partial"
)

// ActiveChargeStatuses are the statuses that block a second generated charge.
var ActiveChargeStatuses = []ChargeStatus{ChargePending, ChargePaid, ChargeOverdue}

// Active reports whether the status counts toward duplicate suppression.
func (s ChargeStatus) Active() bool {
	for _, active := range ActiveChargeStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Valid reports whether the status is known.
func (s ChargeStatus) Valid() bool {
	switch s {
	case ChargePending, ChargePaid, ChargeOverdue, ChargeCancelled, ChargePartial:
		return true
	}
	return false
}

var chargeTransitions = map[ChargeStatus][]ChargeStatus{
	ChargePending: {ChargePaid, ChargePartial, ChargeCancelled, ChargeOverdue},
	ChargeOverdue: {ChargePaid, ChargePartial, ChargeCancelled},
	ChargePartial: {ChargePaid, ChargeCancelled},
}

// CanTransitionTo reports whether moving to next is allowed.
func (s ChargeStatus) CanTransitionTo(next ChargeStatus) bool {
	for _, allowed := range chargeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ChargeSource records what created a charge.
type ChargeSource string

// Charge sources. Duplicate suppression applies to generator-created charges.
const (
	ChargeSourceMonthly ChargeSource = "monthly_generator"
	ChargeSourceManual  ChargeSource = "manual"
)

// Charge is a receivable for an athlete in a billing period.
type Charge struct {
	ID            string       `db:"id" json:"id"`
	TenantID      string       `db:"tenant_id" json:"tenant_id"`
	AcademyID     string       `db:"academy_id" json:"academy_id"`
	AthleteID     string       `db:"athlete_id" json:"athlete_id"`
	Period        string       `db:"period" json:"period"`
	AmountCents   int64        `db:"amount_cents" json:"amount_cents"`
	Currency      string       `db:"currency" json:"currency"`
	Description   string       `db:"description" json:"description"`
	DueDate       time.Time    `db:"due_date" json:"due_date"`
	Status        ChargeStatus `db:"status" json:"status"`
	Source        ChargeSource `db:"source" json:"source"`
	GroupID       *string      `db:"group_id" json:"group_id,omitempty"`
	ClassID       *string      `db:"class_id" json:"class_id,omitempty"`
	BillingItemID *string      `db:"billing_item_id" json:"billing_item_id,omitempty"`
	PaidAt        *time.Time   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ChargeDetail enriches a charge with the athlete name for statements.
type ChargeDetail struct {
	Charge
	AthleteName string `db:"athlete_name" json:"athlete_name"`
}

// Academy carries the billing conventions of a tenant's academy.
type Academy struct {
	ID       string `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Currency string `db:"currency" json:"currency"`
}

// BillingTarget is an active athlete with the group that bills them, if any.
type BillingTarget struct {
	AthleteID   string  `db:"athlete_id" json:"athlete_id"`
	AthleteName string  `db:"athlete_name" json:"athlete_name"`
	GroupID     *string `db:"group_id" json:"group_id,omitempty"`
}

// GroupFee is the monthly fee attached to a group.
type GroupFee struct {
	GroupID         string `db:"group_id" json:"group_id"`
	GroupName       string `db:"group_name" json:"group_name"`
	MonthlyFeeCents int64  `db:"monthly_fee_cents" json:"monthly_fee_cents"`
}
