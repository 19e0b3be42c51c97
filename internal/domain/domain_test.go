package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Session{AccessToken: "tok", SubjectID: "sub-1"}.Valid())
	assert.False(t, Session{AccessToken: "tok"}.Valid())
	assert.False(t, Session{SubjectID: "sub-1"}.Valid())
	assert.False(t, Session{}.Valid())
}

func TestSessionExpiringSoon(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	skew := 30 * time.Second

	testCases := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{name: "no expiry recorded", expiry: time.Time{}, want: false},
		{name: "already expired", expiry: now.Add(-time.Hour), want: true},
		{name: "inside the skew window", expiry: now.Add(10 * time.Second), want: true},
		{name: "comfortably in the future", expiry: now.Add(time.Hour), want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Session{AccessToken: "tok", SubjectID: "sub", Expiry: tc.expiry}
			assert.Equal(t, tc.want, s.ExpiringSoon(now, skew))
		})
	}
}

func TestAgentStateHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, AgentState{Status: AgentThinking}.Working())
	assert.False(t, AgentState{Status: AgentIdle}.Working())
	assert.False(t, AgentState{Status: AgentError}.Working())

	assert.False(t, AgentState{}.Started())
	assert.False(t, AgentState{Status: AgentNotStarted}.Started())
	assert.True(t, AgentState{Status: AgentDone}.Started())
}
