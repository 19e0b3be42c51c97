package domain

// Profile is the subject's account profile as the service reports it.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Onboarded   bool   `json:"onboarded"`
}
