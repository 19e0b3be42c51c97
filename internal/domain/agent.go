package domain

import "encoding/json"

type AgentStatus string

const (
	// AgentNotStarted means the planning agent has never been asked to run
	// for this subject. The service reports it as "absent"; locally it is a
	// first-class status rather than a missing cache entry.
	AgentNotStarted AgentStatus = "not_started"
	AgentIdle       AgentStatus = "idle"
	AgentThinking   AgentStatus = "thinking"
	AgentError      AgentStatus = "error"
	AgentDone       AgentStatus = "done"
)

// AgentState is one snapshot of the server-side planning agent. Plan is
// kept opaque; the core only routes it.
type AgentState struct {
	Status       AgentStatus     `json:"status"`
	Plan         json.RawMessage `json:"plan,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Working reports whether the agent is still computing. Every other status
// is terminal for polling purposes.
func (s AgentState) Working() bool {
	return s.Status == AgentThinking
}

// Started reports whether the agent has ever run for this subject.
func (s AgentState) Started() bool {
	return s.Status != AgentNotStarted && s.Status != ""
}
