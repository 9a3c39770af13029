package domain

import "time"

// Entity is the record shape shared by every persisted collection
// (processes, templates, projects, reports, users, initiatives).
// ID is generated at creation and never reused; UpdatedAt is refreshed on every mutation.
type Entity struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedBy   string    `json:"createdBy" validate:"max=200"`
	Status      Status    `json:"status" validate:"max=32"`
}

// Meta gives collections access to the embedded entity header.
func (e *Entity) Meta() *Entity {
	return e
}

// Record is implemented by any type embedding Entity.
type Record interface {
	Meta() *Entity
}
