package domain

import "time"

// Transaction is one imported ledger row.
type Transaction struct {
	ID          string    `json:"id"`
	PostedAt    time.Time `json:"posted_at"`
	Merchant    string    `json:"merchant"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category,omitempty"`
}
