package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

// Repository stores triage sessions in a SQL database.  Queries are written
// with Postgres placeholders and rebound for SQLite.
type Repository struct {
	DB      *sql.DB
	dialect Dialect
}

// NewRepository constructs a Repository from an existing sql.DB.  The caller
// is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{DB: db, dialect: dialect}
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

func (r *Repository) q(query string) string {
	if r.dialect == SQLite {
		return placeholderRe.ReplaceAllString(query, "?")
	}
	return query
}

// SaveSession inserts the session or overwrites the stored copy.
func (r *Repository) SaveSession(ctx context.Context, s *pkg.Session) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}
	var completedAt sql.NullTime
	if s.CompletedAt != nil {
		completedAt = sql.NullTime{Time: s.CompletedAt.UTC(), Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, r.q(
		`INSERT INTO triage_sessions
             (id, current_index, answers, complete, analysis, last_error, created_at, updated_at, completed_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (id) DO UPDATE SET
             current_index = excluded.current_index,
             answers       = excluded.answers,
             complete      = excluded.complete,
             analysis      = excluded.analysis,
             last_error    = excluded.last_error,
             updated_at    = excluded.updated_at,
             completed_at  = excluded.completed_at`),
		s.ID, s.Current, string(answers), s.Complete, s.Analysis, s.LastError,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(), completedAt,
	)
	return err
}

// GetSession loads a session by ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*pkg.Session, error) {
	var (
		s           pkg.Session
		answers     string
		completedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, r.q(
		`SELECT id, current_index, answers, complete, analysis, last_error, created_at, updated_at, completed_at
         FROM triage_sessions
         WHERE id = $1`), id,
	).Scan(&s.ID, &s.Current, &answers, &s.Complete, &s.Analysis, &s.LastError, &s.CreatedAt, &s.UpdatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, core.ErrSessionNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &s.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers of session %s: %w", id, err)
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

// ListCompleted returns finished screenings, most recent first.
func (r *Repository) ListCompleted(ctx context.Context, limit int) ([]pkg.SessionPreview, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(
		`SELECT id, analysis, completed_at
         FROM triage_sessions
         WHERE complete = TRUE AND completed_at IS NOT NULL
         ORDER BY completed_at DESC
         LIMIT $1`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.SessionPreview
	for rows.Next() {
		var (
			p           pkg.SessionPreview
			analysis    string
			completedAt time.Time
		)
		if err := rows.Scan(&p.SessionID, &analysis, &completedAt); err != nil {
			return nil, err
		}
		p.Excerpt = core.Excerpt(analysis, core.PreviewRunes)
		p.CompletedAt = completedAt
		out = append(out, p)
	}
	return out, rows.Err()
}
