package models

import "time"

// Feedback is a post-completion rating tied 1:1 to a booking.
type Feedback struct {
	ID             string    `db:"id" json:"id"`
	BookingID      string    `db:"booking_id" json:"booking_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	Rating         int       `db:"rating" json:"rating"`
	Comment        string    `db:"comment" json:"comment"`
	WouldRecommend bool      `db:"would_recommend" json:"would_recommend"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
