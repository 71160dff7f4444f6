package dto

// CreateExportRequest asks for an asynchronous booking ledger export.
type CreateExportRequest struct {
	Format        string `json:"format" validate:"required,oneof=csv pdf"`
	Status        string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=pending paid failed refunded"`
	From          string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}
