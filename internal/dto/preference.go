package dto

// SyncPreferencesRequest replaces one preference association set wholesale.
type SyncPreferencesRequest struct {
	IDs []string `json:"ids" validate:"required,dive,required"`
}
