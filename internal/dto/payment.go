package dto

// UpdatePaymentStatusRequest is the admin payload moving a booking's payment
// state along the transition whitelist.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid failed refunded"`
	Reason string `json:"reason" validate:"max=500"`
}
