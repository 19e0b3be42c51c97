package ports

import (
	"context"

	"github.com/bnema/walletsync/internal/domain"
)

// Notifier raises a local notification to the user. Implementations must
// tolerate being called from background goroutines.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
