package models

// Subject is a teachable discipline (mathematics, physics, ...).
type Subject struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Level is a school level (primary, secondary, university, ...).
type Level struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// City is a geographic taxonomy entry professors and students attach to.
type City struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
