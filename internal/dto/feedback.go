package dto

// CreateFeedbackRequest is the post-completion payload tied to a booking.
type CreateFeedbackRequest struct {
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=2000"`
	WouldRecommend bool   `json:"would_recommend"`
}

// UpdateFeedbackRequest edits existing feedback owned by the author.
type UpdateFeedbackRequest struct {
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=2000"`
	WouldRecommend bool   `json:"would_recommend"`
}
