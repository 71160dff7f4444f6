package models

import "time"

// ModerationStatus is the admin-side review state.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Valid reports whether the moderation status is known.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// Review is a rating tied to a professor, unique per (professor, student).
type Review struct {
	ID             string           `db:"id" json:"id"`
	ProfessorID    string           `db:"professor_id" json:"professor_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	Rating         int              `db:"rating" json:"rating"`
	Title          string           `db:"title" json:"title"`
	Comment        string           `db:"comment" json:"comment"`
	WouldRecommend bool             `db:"would_recommend" json:"would_recommend"`
	Status         ModerationStatus `db:"status" json:"status"`
	Verified       bool             `db:"verified" json:"verified"`
	Featured       bool             `db:"featured" json:"featured"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ReviewFilter captures admin moderation list criteria.
type ReviewFilter struct {
	ProfessorID string
	Status      *ModerationStatus
	Featured    *bool
	Page        int
	PageSize    int
}
