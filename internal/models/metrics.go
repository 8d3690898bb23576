package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot for the admin dashboard.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	LoginSuccessTotal        uint64    `json:"login_success_total"`
	LoginFailureTotal        uint64    `json:"login_failure_total"`
	LockoutsArmedTotal       uint64    `json:"lockouts_armed_total"`
	ComplaintsFiledTotal     uint64    `json:"complaints_filed_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
