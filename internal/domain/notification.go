package domain

// Notification is the only user-visible side channel the sync core
// produces: a title, a body and an opaque payload the shell can route on.
type Notification struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Payload map[string]string `json:"payload,omitempty"`
}
