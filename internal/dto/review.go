package dto

// CreateReviewRequest is the payload students submit for a professor review.
type CreateReviewRequest struct {
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Title          string `json:"title" validate:"required,max=120"`
	Comment        string `json:"comment" validate:"max=2000"`
	WouldRecommend bool   `json:"would_recommend"`
}

// UpdateReviewRequest edits an existing review owned by the author.
type UpdateReviewRequest struct {
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Title          string `json:"title" validate:"required,max=120"`
	Comment        string `json:"comment" validate:"max=2000"`
	WouldRecommend bool   `json:"would_recommend"`
}

// ModerateReviewRequest is the admin decision payload.
type ModerateReviewRequest struct {
	Status   string `json:"status" validate:"required,oneof=approved rejected"`
	Verified *bool  `json:"verified,omitempty"`
	Featured *bool  `json:"featured,omitempty"`
}
