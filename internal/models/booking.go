package models

import "time"

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transitions are allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo enforces the booking state machine:
// pending -> confirmed -> completed, with cancellation allowed from
// pending or confirmed only.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted || next == BookingStatusCancelled
	case BookingStatusCompleted, BookingStatusCancelled:
		return false
	}
	return false
}

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid reports whether the payment status is known.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo enforces the payment transition whitelist.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusFailed
	case PaymentStatusFailed:
		return next == PaymentStatusPaid
	case PaymentStatusPaid:
		return next == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false
	}
	return false
}

// Booking represents a requested tutoring engagement between a student or
// parent and a professor. EndAt and TotalPrice are derived on every write and
// never accepted from clients.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	ProfessorID     string        `db:"professor_id" json:"professor_id"`
	SubjectID       string        `db:"subject_id" json:"subject_id"`
	LevelID         string        `db:"level_id" json:"level_id"`
	StartAt         time.Time     `db:"start_at" json:"start_at"`
	EndAt           time.Time     `db:"end_at" json:"end_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	TotalPrice      float64       `db:"total_price" json:"total_price"`
	Status          BookingStatus `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	Notes           string        `db:"notes" json:"notes,omitempty"`
	BookingType     string        `db:"booking_type" json:"booking_type,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingDetail is the typed aggregate returned by detail lookups, replacing
// implicit relation loading with an explicit join.
type BookingDetail struct {
	Booking
	StudentName   string `db:"student_name" json:"student_name"`
	ProfessorName string `db:"professor_name" json:"professor_name"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	LevelName     string `db:"level_name" json:"level_name"`
}

// BookingFilter captures list criteria for booking views.
type BookingFilter struct {
	StudentID     string
	ProfessorID   string
	Status        *BookingStatus
	PaymentStatus *PaymentStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}
