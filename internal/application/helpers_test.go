package application

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

// memKV is an in-memory KVStore for tests.
type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("entry %q: %w", key, domain.ErrNotFound)
	}
	return value, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.KVStore = (*memKV)(nil)

// fakeAuth is a counting AuthAPI stub.
type fakeAuth struct {
	mu           sync.Mutex
	loginCalls   int
	refreshCalls int

	loginFn   func(ports.Credentials) (domain.Session, error)
	refreshFn func(string) (domain.Session, error)
}

func (f *fakeAuth) Login(_ context.Context, creds ports.Credentials) (domain.Session, error) {
	f.mu.Lock()
	f.loginCalls++
	f.mu.Unlock()
	return f.loginFn(creds)
}

func (f *fakeAuth) Signup(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	return f.Login(ctx, creds)
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (domain.Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.refreshFn(token)
}

func (f *fakeAuth) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeAPI implements ports.RemoteAPI with overridable behavior per call.
type fakeAPI struct {
	profileFn      func(context.Context) (domain.Profile, error)
	cardsFn        func(context.Context) (map[string]domain.Card, error)
	addCardFn      func(context.Context, domain.Card) (domain.Card, error)
	removeCardFn   func(context.Context, string) error
	agentStateFn   func(context.Context) (domain.AgentState, error)
	actionsFn      func(context.Context, string) (map[string]domain.Action, error)
	removeActionFn func(context.Context, string, string) error
	transactionsFn func(context.Context) ([]domain.Transaction, error)
}

func (f *fakeAPI) Profile(ctx context.Context) (domain.Profile, error) {
	if f.profileFn == nil {
		return domain.Profile{}, nil
	}
	return f.profileFn(ctx)
}

func (f *fakeAPI) CompleteOnboarding(ctx context.Context, _ map[string]string) (domain.Profile, error) {
	return f.Profile(ctx)
}

func (f *fakeAPI) UpdateProfile(_ context.Context, p domain.Profile) (domain.Profile, error) {
	return p, nil
}

func (f *fakeAPI) Cards(ctx context.Context) (map[string]domain.Card, error) {
	if f.cardsFn == nil {
		return map[string]domain.Card{}, nil
	}
	return f.cardsFn(ctx)
}

func (f *fakeAPI) AddCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	if f.addCardFn == nil {
		return c, nil
	}
	return f.addCardFn(ctx, c)
}

func (f *fakeAPI) RemoveCard(ctx context.Context, id string) error {
	if f.removeCardFn == nil {
		return nil
	}
	return f.removeCardFn(ctx, id)
}

func (f *fakeAPI) SetCardBonus(context.Context, string, domain.CardBonus) error { return nil }

func (f *fakeAPI) ClearCardBonus(context.Context, string) error { return nil }

func (f *fakeAPI) AgentState(ctx context.Context) (domain.AgentState, error) {
	if f.agentStateFn == nil {
		return domain.AgentState{Status: domain.AgentIdle}, nil
	}
	return f.agentStateFn(ctx)
}

func (f *fakeAPI) StartAgent(context.Context) error { return nil }

func (f *fakeAPI) CompleteMilestone(context.Context, string) error { return nil }

func (f *fakeAPI) CompleteTask(context.Context, string) error { return nil }

func (f *fakeAPI) Actions(ctx context.Context, category string) (map[string]domain.Action, error) {
	if f.actionsFn == nil {
		return map[string]domain.Action{}, nil
	}
	return f.actionsFn(ctx, category)
}

func (f *fakeAPI) AddAction(_ context.Context, _ string, a domain.Action) (domain.Action, error) {
	return a, nil
}

func (f *fakeAPI) RemoveAction(ctx context.Context, category, id string) error {
	if f.removeActionFn == nil {
		return nil
	}
	return f.removeActionFn(ctx, category, id)
}

func (f *fakeAPI) MonitorAction(context.Context, string, string) error { return nil }

func (f *fakeAPI) RequestHelp(context.Context, string, string) error { return nil }

func (f *fakeAPI) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	if f.transactionsFn == nil {
		return nil, nil
	}
	return f.transactionsFn(ctx)
}

func (f *fakeAPI) UploadTransactions(context.Context, string, io.Reader) (int, error) {
	return 0, nil
}

var _ ports.RemoteAPI = (*fakeAPI)(nil)

// fakeNotifier records every raised notification. errFn, when set, decides
// per notification whether delivery fails.
type fakeNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
	errFn func(domain.Notification) error
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errFn != nil {
		if err := f.errFn(n); err != nil {
			return err
		}
	}
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeNotifier) raised() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.notes...)
}
