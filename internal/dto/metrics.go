package dto

import "time"

// MetricsSnapshot is a lightweight view over the Prometheus collectors.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	SessionsGenerated        uint64    `json:"sessionsGenerated"`
	SessionsSkipped          uint64    `json:"sessionsSkipped"`
	ChargesCreated           uint64    `json:"chargesCreated"`
	ChargesSkipped           uint64    `json:"chargesSkipped"`
	ConflictsDetected        uint64    `json:"conflictsDetected"`
	FeeCacheHitRatio         float64   `json:"feeCacheHitRatio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
