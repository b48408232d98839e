package model

import (
	"time"

	"github.com/erazemk/evidenca/internal/ledger"
)

// Blocks partition the inventory into independent ledgers.
const (
	BlockHead  = "head"
	BlockLocal = "local"
)

// Blocks lists the inventory partitions.
var Blocks = []string{BlockHead, BlockLocal}

// ValidBlock reports whether b names an inventory partition.
func ValidBlock(b string) bool {
	return b == BlockHead || b == BlockLocal
}

// Item is a stock-keeping entry with its quantity buckets.
type Item struct {
	ID        int64           `json:"id"`
	Block     string          `json:"block"`
	Name      string          `json:"itemName"`
	Model     string          `json:"model,omitempty"`
	Category  string          `json:"category,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Location  string          `json:"locationGood,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Date      string          `json:"date,omitempty"`
	ImageMime string          `json:"image_mime,omitempty"`
	Quantity  ledger.Quantity `json:"items_quantity"`
	Total     int             `json:"totalQuantity"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// ItemFilter narrows an item listing. Zero values match everything.
type ItemFilter struct {
	Category string
	// Model matches exactly.
	Model string
	// Search matches name or model, case-insensitively.
	Search string
}

// Summary is the per-block overview shown on dashboards.
type Summary struct {
	Block          string          `json:"block"`
	Items          int             `json:"items"`
	Quantity       ledger.Quantity `json:"items_quantity"`
	Total          int             `json:"totalQuantity"`
	PendingRecords int             `json:"pending_records"`
	Services       int             `json:"services"`
}

// ItemFields are the descriptive fields an update may change. Quantity
// buckets are not among them.
type ItemFields struct {
	Name     string `json:"itemName"`
	Model    string `json:"model"`
	Category string `json:"category"`
	Origin   string `json:"origin"`
	Location string `json:"locationGood"`
	Detail   string `json:"detail"`
	Date     string `json:"date"`
}
