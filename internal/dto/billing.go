package dto

import "time"

// GenerateChargesRequest triggers monthly charge generation for an academy.
type GenerateChargesRequest struct {
	TenantID       string  `json:"-"`
	AcademyID      string  `json:"academyId" validate:"required"`
	Period         string  `json:"period" validate:"required,datetime=2006-01"`
	GroupID        *string `json:"groupId"`
	SkipDuplicates *bool   `json:"skipDuplicates"`
}

// ShouldSkipDuplicates defaults to true when the caller omitted the flag.
func (r GenerateChargesRequest) ShouldSkipDuplicates() bool {
	return r.SkipDuplicates == nil || *r.SkipDuplicates
}

// Skip reasons reported by the charge generator.
const (
	SkipReasonNoGroup   = "no_group"
	SkipReasonZeroFee   = "zero_fee"
	SkipReasonFeeError  = "fee_error"
	SkipReasonDuplicate = "duplicate"
)

// ChargeGenerationResult summarises one generator run.
type ChargeGenerationResult struct {
	AcademyID   string         `json:"academyId"`
	Period      string         `json:"period"`
	Created     int            `json:"created"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skipReasons"`
	Errors      []string       `json:"errors"`
}

// ChargeStatusRequest records an externally confirmed payment status.
type ChargeStatusRequest struct {
	Status string     `json:"status" validate:"required,oneof=paid partial cancelled overdue"`
	PaidAt *time.Time `json:"paidAt"`
}

// ChargeExportRequest selects the charges rendered into a statement.
type ChargeExportRequest struct {
	AcademyID string `form:"-" validate:"required"`
	Period    string `form:"period" validate:"required,datetime=2006-01"`
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// OverdueSweepResult reports how many charges were moved to overdue.
type OverdueSweepResult struct {
	AsOf    string `json:"asOf"`
	Updated int64  `json:"updated"`
}

// ExportFile is a rendered statement ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StatementLink points at an archived statement through a signed, expiring token.
type StatementLink struct {
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StatementPruneResult reports archived statements removed by retention.
type StatementPruneResult struct {
	Removed []string `json:"removed"`
}
