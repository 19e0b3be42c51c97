package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type PollOutcome string

const (
	// PollTerminal: the fetched state satisfied the terminal predicate.
	PollTerminal PollOutcome = "terminal"
	// PollAbsent: there was nothing to poll; stops without sleeping.
	PollAbsent PollOutcome = "absent"
	// PollExhausted: the attempt budget ran out before a terminal state.
	PollExhausted PollOutcome = "exhausted"
	// PollCancelled: Cancel was called or a new poll replaced this one.
	PollCancelled PollOutcome = "cancelled"
)

type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

type PollResult[S any] struct {
	Outcome  PollOutcome
	State    S
	Present  bool
	Attempts int
}

// Poller tracks at most one active poll per logical target. Starting a new
// poll for a target cancels the previous one and waits for it to exit, so
// the new poll's first fetch strictly happens after the old poll's last.
type Poller struct {
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*pollHandle
}

type pollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{logger: logger, active: make(map[string]*pollHandle)}
}

// Cancel stops the active poll for target, if any, and returns once it has
// exited. Cancellation is cooperative: it takes effect at the next
// sleep/fetch boundary and never tears down an already-issued request.
func (p *Poller) Cancel(target string) {
	p.mu.Lock()
	handle := p.active[target]
	p.mu.Unlock()

	if handle != nil {
		handle.cancel()
		<-handle.done
	}
}

// Interrupt requests cancellation of every active poll without waiting for
// them to exit. Unlike CancelAll it is safe to call from inside a poll's
// own fetch, which is where session expiry is usually discovered.
func (p *Poller) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, handle := range p.active {
		handle.cancel()
	}
}

// CancelAll stops every active poll. Called on logout.
func (p *Poller) CancelAll() {
	p.mu.Lock()
	handles := make([]*pollHandle, 0, len(p.active))
	for _, handle := range p.active {
		handles = append(handles, handle)
	}
	p.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
		<-handle.done
	}
}

// Poll runs a bounded polling loop for target: an immediate fetch, then up
// to MaxAttempts fetches separated by Interval. The fetch reports the state
// and whether anything was present to poll; absence and terminal states end
// the loop without a sleep. Fetch errors are logged and the loop simply
// continues, so a transient failure cannot abort an otherwise-converging
// poll. None of the outcomes is an error.
func Poll[S any](ctx context.Context, p *Poller, target string, opts PollOptions, fetch func(context.Context) (S, bool, error), terminal func(S) bool) PollResult[S] {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}

	pollCtx, handle, prev := p.install(ctx, target)
	defer p.release(target, handle)

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	var result PollResult[S]
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if pollCtx.Err() != nil {
			result.Outcome = PollCancelled
			return result
		}

		state, present, err := fetch(pollCtx)
		result.Attempts = attempt
		if err != nil {
			if pollCtx.Err() != nil {
				result.Outcome = PollCancelled
				return result
			}
			p.logger.Warn("poll fetch failed", "target", target, "attempt", attempt, "error", err)
		} else {
			result.State = state
			result.Present = present
			if !present {
				result.Outcome = PollAbsent
				return result
			}
			if terminal(state) {
				result.Outcome = PollTerminal
				return result
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		timer := time.NewTimer(opts.Interval)
		select {
		case <-pollCtx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			result.Outcome = PollCancelled
			return result
		case <-timer.C:
		}
	}

	result.Outcome = PollExhausted
	return result
}

func (p *Poller) install(ctx context.Context, target string) (context.Context, *pollHandle, *pollHandle) {
	pollCtx, cancel := context.WithCancel(ctx)
	handle := &pollHandle{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	prev := p.active[target]
	p.active[target] = handle
	p.mu.Unlock()

	return pollCtx, handle, prev
}

func (p *Poller) release(target string, handle *pollHandle) {
	p.mu.Lock()
	if p.active[target] == handle {
		delete(p.active, target)
	}
	p.mu.Unlock()

	handle.cancel()
	close(handle.done)
}
