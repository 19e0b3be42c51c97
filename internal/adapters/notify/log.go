// Package notify provides Notifier implementations for surfacing savings
// alerts raised by background work.
package notify

import (
	"context"
	"log/slog"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

// Log writes notifications to a structured logger. It is the fallback
// delivery channel when no spool path is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info("notification",
		"id", n.ID,
		"title", n.Title,
		"body", n.Body,
		"payload", n.Payload,
	)
	return nil
}

var _ ports.Notifier = (*Log)(nil)
