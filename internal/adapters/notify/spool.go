package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

// Spool appends notifications to a JSON-lines file. A desktop shell or
// mobile bridge drains the file and presents the entries natively; the sync
// core only ever produces them.
type Spool struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewSpool(path string) *Spool {
	return &Spool{path: path, now: time.Now}
}

type spoolEntry struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Payload  map[string]string `json:"payload,omitempty"`
	RaisedAt time.Time         `json:"raised_at"`
}

func (s *Spool) Notify(_ context.Context, n domain.Notification) error {
	line, err := json.Marshal(spoolEntry{
		ID:       n.ID,
		Title:    n.Title,
		Body:     n.Body,
		Payload:  n.Payload,
		RaisedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

var _ ports.Notifier = (*Spool)(nil)
