package model

import (
	"time"

	"github.com/erazemk/evidenca/internal/ledger"
)

// Record is an adjustment request against one item's buckets.
type Record struct {
	ID        int64           `json:"id"`
	Block     string          `json:"block"`
	ItemID    int64           `json:"itemId"`
	Kind      ledger.Kind     `json:"kind"`
	Amount    int             `json:"quantity"`
	Quantity  ledger.Quantity `json:"items_quantity"`
	Purpose   string          `json:"purpose,omitempty"`
	Location  string          `json:"locationGood,omitempty"`
	Date      string          `json:"date,omitempty"`
	Status    ledger.Status   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`

	RequestedBy *int64     `json:"requested_by,omitempty"`
	DecidedBy   *int64     `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	// Copied from the item at creation time for display.
	ItemName string `json:"itemName"`
	Model    string `json:"model,omitempty"`
	Category string `json:"category,omitempty"`

	// Joined fields (not always populated).
	RequestedByName string `json:"requested_by_name,omitempty"`
}

// RecordInput is what a requester submits.
type RecordInput struct {
	ItemID   int64  `json:"itemId"`
	Kind     string `json:"kind"`
	Amount   int    `json:"quantity"`
	Purpose  string `json:"purpose"`
	Location string `json:"locationGood"`
	Date     string `json:"date"`
}

// RecordFilter narrows a record listing. Zero values match everything.
type RecordFilter struct {
	// Status is "pending", "approved", "declined" or empty.
	Status string
	ItemID int64
}

// Record filter statuses.
const (
	RecordFilterPending  = "pending"
	RecordFilterApproved = "approved"
	RecordFilterDeclined = "declined"
)

// ValidRecordFilter reports whether s is an accepted status filter. Empty
// means no filter.
func ValidRecordFilter(s string) bool {
	switch s {
	case "", RecordFilterPending, RecordFilterApproved, RecordFilterDeclined:
		return true
	}
	return false
}
