package model

import "time"

// Service is a maintenance or supply contract tracked next to the items.
type Service struct {
	ID        int64      `json:"id"`
	Block     string     `json:"block"`
	Name      string     `json:"serviceName"`
	Category  string     `json:"category,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	Provider  string     `json:"provider,omitempty"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Notification is an in-app message about record activity in a block.
type Notification struct {
	ID        int64     `json:"id"`
	Block     string    `json:"block"`
	RecordID  *int64    `json:"record_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
