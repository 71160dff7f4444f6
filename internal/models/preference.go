package models

// StudentPreferences aggregates the taxonomy associations a student keeps.
// The join rows carry no attributes beyond the pair itself.
type StudentPreferences struct {
	SubjectIDs []string `json:"subject_ids"`
	LevelIDs   []string `json:"level_ids"`
	CityIDs    []string `json:"city_ids"`
}
