package models

import "time"

// BookingStatusCount is one slice of the status breakdown.
type BookingStatusCount struct {
	Status BookingStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// TopProfessor is a leaderboard entry for the admin dashboard.
type TopProfessor struct {
	ProfessorID string  `db:"professor_id" json:"professor_id"`
	FullName    string  `db:"full_name" json:"full_name"`
	Rating      float64 `db:"rating" json:"rating"`
	ReviewCount int     `db:"review_count" json:"review_count"`
	Bookings    int     `db:"bookings" json:"bookings"`
}

// DashboardSummary is the cached admin overview payload.
type DashboardSummary struct {
	BookingsByStatus []BookingStatusCount `json:"bookings_by_status"`
	PaidRevenue      float64              `json:"paid_revenue"`
	PendingReviews   int                  `json:"pending_reviews"`
	TopProfessors    []TopProfessor       `json:"top_professors"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// SystemMetrics is a lightweight runtime snapshot exposed alongside the
// Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
