package domain

import "time"

// Card is a payment card tracked for the subject, optionally with an active
// welcome bonus the user is working toward.
type Card struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Issuer string     `json:"issuer,omitempty"`
	Bonus  *CardBonus `json:"bonus,omitempty"`
}

type CardBonus struct {
	Description string    `json:"description"`
	ValueCents  int64     `json:"value_cents,omitempty"`
	Deadline    time.Time `json:"deadline,omitzero"`
}
