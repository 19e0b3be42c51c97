package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

const (
	keyProfile      = "profile"
	keyCards        = "cards"
	keyAgentState   = "agent/state"
	keyTransactions = "transactions"
)

const agentPollTarget = "agent"

func actionsKey(category string) string { return "actions/" + category }

type TickResult string

const (
	TickFailed   TickResult = "failed"
	TickNoChange TickResult = "no-change"
	TickNewData  TickResult = "new-data"
)

type ServiceConfig struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	// TickCategories is always refreshed by the background tick, in
	// addition to every category with a cached snapshot.
	TickCategories []string
}

// Service is the sync facade: the only entry point the rest of the
// application calls. It composes the session store, the typed cache, the
// poll coordinator and the optimistic mutator over the remote API.
type Service struct {
	sessions *SessionStore
	cache    *Cache
	poller   *Poller
	api      ports.RemoteAPI
	notifier ports.Notifier
	logger   *slog.Logger
	cfg      ServiceConfig

	// Set at construction, consumed by the first ObserveAgent of the
	// process. See ObserveAgent.
	suppressStaleAgentError atomic.Bool
}

func NewService(sessions *SessionStore, cache *Cache, poller *Poller, api ports.RemoteAPI, notifier ports.Notifier, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		sessions: sessions,
		cache:    cache,
		poller:   poller,
		api:      api,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
	s.suppressStaleAgentError.Store(true)

	// An expired session cascades exactly like an explicit logout. The poll
	// interrupt is non-blocking because expiry is often discovered inside a
	// poll's own fetch.
	sessions.SetExpiryHook(func(ctx context.Context) {
		logger.Warn("session expired, clearing local state")
		poller.Interrupt()
		if err := cache.InvalidateAll(ctx); err != nil {
			logger.Warn("invalidate cache after expiry failed", "error", err)
		}
	})

	return s
}

func (s *Service) Login(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	return s.sessions.Login(ctx, creds)
}

func (s *Service) Signup(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	return s.sessions.Signup(ctx, creds)
}

// Logout clears the session and cascades: every session-scoped cache entry
// is invalidated and every active poll cancelled.
func (s *Service) Logout(ctx context.Context) error {
	err := s.sessions.Logout(ctx)
	s.poller.CancelAll()
	if cacheErr := s.cache.InvalidateAll(ctx); cacheErr != nil {
		err = errors.Join(err, cacheErr)
	}
	return err
}

func (s *Service) CurrentSession() (domain.Session, bool) {
	return s.sessions.Current()
}

func (s *Service) Profile(ctx context.Context, force bool) (domain.Profile, error) {
	return Get(ctx, s.cache, keyProfile, force, s.api.Profile)
}

func (s *Service) CompleteOnboarding(ctx context.Context, answers map[string]string) (domain.Profile, error) {
	profile, err := s.api.CompleteOnboarding(ctx, answers)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := Put(ctx, s.cache, keyProfile, profile); err != nil {
		s.logger.Warn("cache onboarded profile failed", "error", err)
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	updated, err := s.api.UpdateProfile(ctx, profile)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := Put(ctx, s.cache, keyProfile, updated); err != nil {
		s.logger.Warn("cache updated profile failed", "error", err)
	}
	return updated, nil
}

func (s *Service) Cards(ctx context.Context, force bool) (map[string]domain.Card, error) {
	return Get(ctx, s.cache, keyCards, force, s.api.Cards)
}

// AddCard publishes the card locally under a provisional id, posts it, and
// reconciles with the server-assigned collection on success.
func (s *Service) AddCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	if card.ID == "" {
		card.ID = "local-" + uuid.NewString()
	}

	var created domain.Card
	_, err := Mutate(ctx, s.cache, keyCards,
		func(cards map[string]domain.Card) map[string]domain.Card {
			next := cloneOrInit(cards)
			next[card.ID] = card
			return next
		},
		func(ctx context.Context, _ map[string]domain.Card) error {
			var opErr error
			created, opErr = s.api.AddCard(ctx, card)
			return opErr
		},
	)
	if err != nil {
		return domain.Card{}, err
	}

	s.reconcileCards(ctx)
	return created, nil
}

func (s *Service) RemoveCard(ctx context.Context, id string) error {
	_, err := Mutate(ctx, s.cache, keyCards,
		func(cards map[string]domain.Card) map[string]domain.Card {
			next := cloneOrInit(cards)
			delete(next, id)
			return next
		},
		func(ctx context.Context, _ map[string]domain.Card) error {
			return s.api.RemoveCard(ctx, id)
		},
	)
	return err
}

func (s *Service) SetCardBonus(ctx context.Context, id string, bonus domain.CardBonus) error {
	_, err := Mutate(ctx, s.cache, keyCards,
		func(cards map[string]domain.Card) map[string]domain.Card {
			next := cloneOrInit(cards)
			if card, ok := next[id]; ok {
				card.Bonus = &bonus
				next[id] = card
			}
			return next
		},
		func(ctx context.Context, _ map[string]domain.Card) error {
			return s.api.SetCardBonus(ctx, id, bonus)
		},
	)
	return err
}

func (s *Service) ClearCardBonus(ctx context.Context, id string) error {
	_, err := Mutate(ctx, s.cache, keyCards,
		func(cards map[string]domain.Card) map[string]domain.Card {
			next := cloneOrInit(cards)
			if card, ok := next[id]; ok {
				card.Bonus = nil
				next[id] = card
			}
			return next
		},
		func(ctx context.Context, _ map[string]domain.Card) error {
			return s.api.ClearCardBonus(ctx, id)
		},
	)
	return err
}

func (s *Service) Actions(ctx context.Context, category string, force bool) (map[string]domain.Action, error) {
	return Get(ctx, s.cache, actionsKey(category), force, func(ctx context.Context) (map[string]domain.Action, error) {
		return s.api.Actions(ctx, category)
	})
}

func (s *Service) AddAction(ctx context.Context, category string, action domain.Action) (domain.Action, error) {
	if action.ID == "" {
		action.ID = "local-" + uuid.NewString()
	}
	action.Category = category

	var created domain.Action
	_, err := Mutate(ctx, s.cache, actionsKey(category),
		func(actions map[string]domain.Action) map[string]domain.Action {
			next := cloneOrInit(actions)
			next[action.ID] = action
			return next
		},
		func(ctx context.Context, _ map[string]domain.Action) error {
			var opErr error
			created, opErr = s.api.AddAction(ctx, category, action)
			return opErr
		},
	)
	if err != nil {
		return domain.Action{}, err
	}

	if _, err := s.Actions(ctx, category, true); err != nil {
		s.logger.Warn("reconcile actions after add failed", "category", category, "error", err)
	}
	return created, nil
}

func (s *Service) RemoveAction(ctx context.Context, category, id string) error {
	_, err := Mutate(ctx, s.cache, actionsKey(category),
		func(actions map[string]domain.Action) map[string]domain.Action {
			next := cloneOrInit(actions)
			delete(next, id)
			return next
		},
		func(ctx context.Context, _ map[string]domain.Action) error {
			return s.api.RemoveAction(ctx, category, id)
		},
	)
	return err
}

func (s *Service) MonitorAction(ctx context.Context, category, id string) error {
	_, err := Mutate(ctx, s.cache, actionsKey(category),
		func(actions map[string]domain.Action) map[string]domain.Action {
			next := cloneOrInit(actions)
			if action, ok := next[id]; ok {
				action.Monitored = true
				next[id] = action
			}
			return next
		},
		func(ctx context.Context, _ map[string]domain.Action) error {
			return s.api.MonitorAction(ctx, category, id)
		},
	)
	return err
}

// RequestHelp has no local state to mutate; it goes straight to the API.
func (s *Service) RequestHelp(ctx context.Context, category, id string) error {
	return s.api.RequestHelp(ctx, category, id)
}

func (s *Service) AgentState(ctx context.Context, force bool) (domain.AgentState, error) {
	return Get(ctx, s.cache, keyAgentState, force, s.api.AgentState)
}

func (s *Service) StartAgent(ctx context.Context) error {
	if err := s.api.StartAgent(ctx); err != nil {
		return err
	}
	// The service flips to thinking as a result of the start; reflect that
	// locally without waiting for the first poll.
	if err := Put(ctx, s.cache, keyAgentState, domain.AgentState{Status: domain.AgentThinking}); err != nil {
		s.logger.Warn("cache started agent state failed", "error", err)
	}
	return nil
}

func (s *Service) CompleteMilestone(ctx context.Context, id string) error {
	if err := s.api.CompleteMilestone(ctx, id); err != nil {
		return err
	}
	s.refreshAgentState(ctx)
	return nil
}

func (s *Service) CompleteTask(ctx context.Context, id string) error {
	if err := s.api.CompleteTask(ctx, id); err != nil {
		return err
	}
	s.refreshAgentState(ctx)
	return nil
}

// ObserveAgent polls the agent until it leaves the thinking state, the
// attempt budget runs out, or the poll is cancelled or replaced. Every
// fetched state is cached, so readers see progress while the poll runs.
//
// The first observation of the process consumes the stale-error flag: a
// cached error state from a previous run is dropped (and logged) instead of
// being reported, so the user is not greeted with an outdated failure. The
// server may of course still be in a stable error state, which the first
// fresh fetch will re-establish.
func (s *Service) ObserveAgent(ctx context.Context) PollResult[domain.AgentState] {
	if s.suppressStaleAgentError.CompareAndSwap(true, false) {
		if cached, ok := Lookup[domain.AgentState](ctx, s.cache, keyAgentState); ok && cached.Status == domain.AgentError {
			s.logger.Warn("suppressing stale cached agent error", "error_message", cached.ErrorMessage)
			if err := s.cache.Invalidate(ctx, keyAgentState); err != nil {
				s.logger.Warn("drop stale agent error failed", "error", err)
			}
		}
	}

	fetch := func(ctx context.Context) (domain.AgentState, bool, error) {
		state, err := s.api.AgentState(ctx)
		if err != nil {
			return domain.AgentState{}, false, err
		}
		if err := Put(ctx, s.cache, keyAgentState, state); err != nil {
			s.logger.Warn("cache polled agent state failed", "error", err)
		}
		return state, state.Started(), nil
	}

	opts := PollOptions{Interval: s.cfg.PollInterval, MaxAttempts: s.cfg.PollMaxAttempts}
	return Poll(ctx, s.poller, agentPollTarget, opts, fetch, func(state domain.AgentState) bool {
		return !state.Working()
	})
}

// CancelObservation stops the active agent poll, if any.
func (s *Service) CancelObservation() {
	s.poller.Cancel(agentPollTarget)
}

func (s *Service) Transactions(ctx context.Context, force bool) ([]domain.Transaction, error) {
	return Get(ctx, s.cache, keyTransactions, force, s.api.Transactions)
}

func (s *Service) UploadTransactions(ctx context.Context, filename string, r io.Reader) (int, error) {
	imported, err := s.api.UploadTransactions(ctx, filename, r)
	if err != nil {
		return 0, err
	}
	if _, err := s.Transactions(ctx, true); err != nil {
		s.logger.Warn("reconcile transactions after upload failed", "error", err)
	}
	return imported, nil
}

// BackgroundFetchTick is the entry point for an external scheduler: one
// bounded-time pass that refreshes every monitored action category, diffs
// against the previous snapshots and raises one notification per newly
// interesting action. The result reports whether new data was found, so the
// scheduler can be answered truthfully.
func (s *Service) BackgroundFetchTick(ctx context.Context) (TickResult, error) {
	categories := s.tickCategories(ctx)
	if len(categories) == 0 {
		return TickNoChange, nil
	}

	var fetched, notified int
	var errs []error
	for _, category := range categories {
		key := actionsKey(category)
		old, _ := Lookup[map[string]domain.Action](ctx, s.cache, key)

		fresh, err := Get(ctx, s.cache, key, true, func(ctx context.Context) (map[string]domain.Action, error) {
			return s.api.Actions(ctx, category)
		})
		if err != nil {
			s.logger.Warn("tick refresh failed", "category", category, "error", err)
			errs = append(errs, fmt.Errorf("refresh %s: %w", category, err))
			continue
		}
		fetched++

		var failed []string
		for _, id := range domain.Diff(old, fresh, domain.PriceDropped) {
			action := fresh[id]
			note := domain.Notification{
				ID:    uuid.NewString(),
				Title: "Price drop: " + action.Title,
				Body:  fmt.Sprintf("now %.2f, listed at %.2f", *action.BestFound, action.Total),
				Payload: map[string]string{
					"category":  category,
					"action_id": id,
				},
			}
			if err := s.notifier.Notify(ctx, note); err != nil {
				s.logger.Warn("raise notification failed", "action_id", id, "error", err)
				failed = append(failed, id)
				continue
			}
			notified++
		}

		// An undelivered delta must not be lost to the already-advanced
		// snapshot: re-stage the previous entry for those actions so the
		// next tick re-detects the drop and retries delivery.
		if len(failed) > 0 {
			restaged := cloneOrInit(fresh)
			for _, id := range failed {
				if prevAction, ok := old[id]; ok {
					restaged[id] = prevAction
				} else {
					delete(restaged, id)
				}
			}
			if err := Put(ctx, s.cache, key, restaged); err != nil {
				s.logger.Warn("re-stage undelivered deltas failed", "category", category, "error", err)
			}
		}
	}

	if fetched == 0 {
		return TickFailed, errors.Join(errs...)
	}
	if notified > 0 {
		return TickNewData, nil
	}
	return TickNoChange, nil
}

// tickCategories merges the configured always-refresh list with every
// category that has a cached snapshot from earlier reads.
func (s *Service) tickCategories(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var categories []string
	add := func(category string) {
		if category == "" {
			return
		}
		if _, ok := seen[category]; ok {
			return
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}

	for _, category := range s.cfg.TickCategories {
		add(category)
	}

	cached, err := s.cache.Keys(ctx, "actions/")
	if err != nil {
		s.logger.Warn("list cached action categories failed", "error", err)
	}
	for _, key := range cached {
		add(key[len("actions/"):])
	}

	return categories
}

func (s *Service) refreshAgentState(ctx context.Context) {
	if _, err := s.AgentState(ctx, true); err != nil {
		s.logger.Warn("refresh agent state failed", "error", err)
	}
}

func (s *Service) reconcileCards(ctx context.Context) {
	if _, err := s.Cards(ctx, true); err != nil {
		s.logger.Warn("reconcile cards failed", "error", err)
	}
}

func cloneOrInit[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}
	return maps.Clone(m)
}
