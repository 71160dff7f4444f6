package dto

// CreateBookingRequest is the allow-listed payload for creating a booking.
// Price and end time are derived server-side and deliberately absent.
type CreateBookingRequest struct {
	ProfessorID     string `json:"professor_id" validate:"required"`
	SubjectID       string `json:"subject_id" validate:"required"`
	LevelID         string `json:"level_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=30,max=240"`
	Notes           string `json:"notes" validate:"max=1000"`
	BookingType     string `json:"booking_type" validate:"omitempty,oneof=online in_person"`
}

// UpdateBookingRequest mirrors creation minus the professor, which cannot be
// swapped on an existing booking.
type UpdateBookingRequest struct {
	SubjectID       string `json:"subject_id" validate:"required"`
	LevelID         string `json:"level_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=30,max=240"`
	Notes           string `json:"notes" validate:"max=1000"`
	BookingType     string `json:"booking_type" validate:"omitempty,oneof=online in_person"`
}
