package domain

import "time"

// PriceEpsilon is the smallest best-found improvement worth reporting, in
// currency units. Movements inside the epsilon are treated as noise.
const PriceEpsilon = 0.01

// Action is one entry of the monitored savings collection: something the
// user could buy or do, with the list price and the best price found so far.
type Action struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Total     float64   `json:"total"`
	BestFound *float64  `json:"best_found,omitempty"`
	Monitored bool      `json:"monitored"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Discounted reports whether a price below the list total is known.
func (a Action) Discounted() bool {
	return a.BestFound != nil && *a.BestFound < a.Total
}

// PriceDropped is the interest predicate for the actions collection: an
// action is reported when a discount exists and the best-found price
// improved by more than PriceEpsilon since the last known snapshot. A
// re-poll that merely re-confirms a known discount is not reported.
func PriceDropped(old *Action, cur Action) bool {
	if !cur.Discounted() {
		return false
	}
	if old == nil || old.BestFound == nil {
		return true
	}
	return *cur.BestFound < *old.BestFound-PriceEpsilon
}
