package models

import "time"

// Professor is the public tutoring profile attached to a PROFESSOR user.
type Professor struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Bio             string    `db:"bio" json:"bio"`
	Specializations string    `db:"specializations" json:"specializations"`
	HourlyRate      float64   `db:"hourly_rate" json:"hourly_rate"`
	Rating          float64   `db:"rating" json:"rating"`
	ReviewCount     int       `db:"review_count" json:"review_count"`
	CityID          *string   `db:"city_id" json:"city_id,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ProfessorSortField is the closed set of sortable search columns.
type ProfessorSortField string

const (
	ProfessorSortRating ProfessorSortField = "rating"
	ProfessorSortPrice  ProfessorSortField = "price"
	ProfessorSortName   ProfessorSortField = "name"
)

// ProfessorFilter encapsulates allowed search parameters for listing
// professors. Sort fields outside the allow-list fall back to rating.
type ProfessorFilter struct {
	SubjectID     string
	LevelID       string
	CityID        string
	MinRating     *float64
	MaxHourlyRate *float64
	Search        string
	SortBy        ProfessorSortField
	SortOrder     string
	Page          int
	PageSize      int
}
