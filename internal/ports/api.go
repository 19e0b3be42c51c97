package ports

import (
	"context"
	"io"

	"github.com/bnema/walletsync/internal/domain"
)

type Credentials struct {
	Email    string
	Password string
}

// AuthAPI is the unauthenticated slice of the remote service used to
// bootstrap and renew sessions.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (domain.Session, error)
	Signup(ctx context.Context, creds Credentials) (domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
}

type ProfileAPI interface {
	Profile(ctx context.Context) (domain.Profile, error)
	CompleteOnboarding(ctx context.Context, answers map[string]string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error)
}

type CardsAPI interface {
	Cards(ctx context.Context) (map[string]domain.Card, error)
	AddCard(ctx context.Context, c domain.Card) (domain.Card, error)
	RemoveCard(ctx context.Context, id string) error
	SetCardBonus(ctx context.Context, id string, b domain.CardBonus) error
	ClearCardBonus(ctx context.Context, id string) error
}

type AgentAPI interface {
	AgentState(ctx context.Context) (domain.AgentState, error)
	StartAgent(ctx context.Context) error
	CompleteMilestone(ctx context.Context, id string) error
	CompleteTask(ctx context.Context, id string) error
}

type ActionsAPI interface {
	Actions(ctx context.Context, category string) (map[string]domain.Action, error)
	AddAction(ctx context.Context, category string, a domain.Action) (domain.Action, error)
	RemoveAction(ctx context.Context, category, id string) error
	MonitorAction(ctx context.Context, category, id string) error
	RequestHelp(ctx context.Context, category, id string) error
}

type TransactionsAPI interface {
	Transactions(ctx context.Context) ([]domain.Transaction, error)
	// UploadTransactions streams a ledger export to the service and returns
	// the number of rows imported. Uses the upload call class, which carries
	// a materially longer timeout than metadata calls.
	UploadTransactions(ctx context.Context, filename string, r io.Reader) (int, error)
}

// RemoteAPI groups the authenticated surface the sync facade consumes.
type RemoteAPI interface {
	ProfileAPI
	CardsAPI
	AgentAPI
	ActionsAPI
	TransactionsAPI
}
