package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/request"
)

// Entry is one recorded workflow outcome.
type Entry struct {
	ID        int64
	Outcome   request.Outcome
	Subject   string
	CreatedAt time.Time
}

// Service persists workflow outcomes to the local database. It implements
// the request workflow's Recorder.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Record stores a terminal workflow outcome. Failures are logged rather than
// returned: history is bookkeeping and must never fail a user's request.
func (s *Service) Record(ctx context.Context, outcome request.Outcome, subject string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_history (outcome, subject) VALUES (?, ?)`,
		string(outcome), subject,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("outcome", string(outcome)).
			Str("subject", subject).
			Msg("Failed to record history entry")
		return
	}

	s.logger.Debug().
		Str("outcome", string(outcome)).
		Str("subject", subject).
		Msg("Recorded history entry")
}

// Recent returns the most recent entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, outcome, subject, created_at
		 FROM request_history
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var outcome string
		if err := rows.Scan(&entry.ID, &outcome, &entry.Subject, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Outcome = request.Outcome(outcome)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
