package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

type fakeTokens struct {
	token        string
	refreshed    string
	refreshCalls atomic.Int64
	refreshErr   error
	expired      atomic.Bool
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(context.Context) (string, error) {
	f.refreshCalls.Add(1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeTokens) Expire(context.Context) {
	f.expired.Store(true)
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Tokens: tokens})
	require.NoError(t, err)
	return client
}

func TestClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestClientAttachesBearerTokenAndRequestID(t *testing.T) {
	t.Parallel()

	var gotAuth, gotReqID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode(domain.Profile{ID: "sub-1", Email: "a@b.c"})
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok-1"})

	profile, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.ID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestClientRetriesOnceAfter401(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Profile{ID: "sub-1"})
	})

	tokens := &fakeTokens{token: "tok-stale", refreshed: "tok-fresh"}
	client := newTestClient(t, handler, tokens)

	profile, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.ID)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(1), tokens.refreshCalls.Load())
}

func TestClientSecond401IsAuthExpired(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens := &fakeTokens{token: "tok-stale", refreshed: "tok-still-stale"}
	client := newTestClient(t, handler, tokens)

	_, err := client.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthExpired))
	assert.Equal(t, int64(1), tokens.refreshCalls.Load())
	assert.True(t, tokens.expired.Load(), "a rejected renewed token must expire the session")
}

func TestClientMapsServerDetailToRemoteError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"card limit reached"}`))
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	err := client.RemoveCard(context.Background(), "card-1")
	require.Error(t, err)

	var remoteErr *domain.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusUnprocessableEntity, remoteErr.Status)
	assert.Equal(t, "card limit reached", remoteErr.Message)
}

func TestClientMapsTransportFailureToNetworkUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Tokens: &fakeTokens{token: "tok"}})
	require.NoError(t, err)

	_, err = client.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetworkUnavailable))
}

func TestClientMapsMalformedBodyToDecodeFailed(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cards": not-json`))
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	_, err := client.Cards(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDecodeFailed))
}

func TestLoginDecodesSessionAndComputesExpiry(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds credentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.c", creds.Email)

		_ = json.NewEncoder(w).Encode(sessionResponse{
			AccessToken:  "tok-1",
			RefreshToken: "ref-1",
			ExpiresIn:    3600,
			UserID:       "sub-1",
		})
	})

	client := newTestClient(t, handler, nil)

	before := time.Now()
	session, err := client.Login(context.Background(), ports.Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", session.AccessToken)
	assert.Equal(t, "ref-1", session.RefreshToken)
	assert.Equal(t, "sub-1", session.SubjectID)
	assert.WithinDuration(t, before.Add(time.Hour), session.Expiry, 5*time.Second)
}

func TestLoginRejectsSessionMissingSubject(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sessionResponse{AccessToken: "tok-1"})
	})

	client := newTestClient(t, handler, nil)

	_, err := client.Login(context.Background(), ports.Credentials{Email: "a@b.c", Password: "pw"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDecodeFailed))
}

func TestAgentStateMapsAbsentToNotStarted(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"absent"}`))
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	state, err := client.AgentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AgentNotStarted, state.Status)
	assert.False(t, state.Started())
}

func TestUploadTransactionsSendsMultipart(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()

		assert.Equal(t, "ledger.csv", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "date,amount\n", string(content))

		_ = json.NewEncoder(w).Encode(uploadResponse{Imported: 12})
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	imported, err := client.UploadTransactions(context.Background(), "ledger.csv", strings.NewReader("date,amount\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, imported)
}

func TestActionsAreKeyedByID(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/actions/travel", r.URL.Path)
		_, _ = w.Write([]byte(`{"actions":[{"id":"act-1","total":100},{"id":"act-2","total":50,"best_found":45}]}`))
	})

	client := newTestClient(t, handler, &fakeTokens{token: "tok"})

	actions, err := client.Actions(context.Background(), "travel")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, 100.0, actions["act-1"].Total)
	assert.True(t, actions["act-2"].Discounted())
}
