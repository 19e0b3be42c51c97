package domain

import "time"

// Session is the credential triple for one authenticated subject. It is
// owned by the session store and mutated only through login, refresh and
// logout.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	SubjectID    string    `json:"subject_id"`
}

// Valid reports whether the session satisfies the store invariant: a
// non-empty access token always comes with a subject.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.SubjectID != ""
}

// ExpiringSoon reports whether the access token expires within skew of now.
// A session without a recorded expiry never reports as expiring; callers
// that hold a refresh token decide separately whether to renew it.
func (s Session) ExpiringSoon(now time.Time, skew time.Duration) bool {
	if s.Expiry.IsZero() {
		return false
	}
	return !s.Expiry.After(now.Add(skew))
}
