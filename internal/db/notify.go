package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL.  It announces
// finished triage summaries and lets the clinician view follow them live.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
	Logger  *slog.Logger
}

// NewNotifier constructs a new Notifier.  dsn is needed by Listen, which
// holds its own connection.
func NewNotifier(db *sql.DB, dsn, channel string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{DB: db, DSN: dsn, Channel: channel, Logger: logger}
}

// Notify sends the session ID on the channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, sessionID)
	return err
}

// Listen yields session IDs as notifications arrive, until ctx is done.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			n.Logger.Warn("notify listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listening on %s: %w", pq.QuoteIdentifier(n.Channel), err)
	}

	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect
				if note == nil {
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					n.Logger.Warn("notify listener ping", "error", err)
				}
			}
		}
	}()
	return ch, nil
}
