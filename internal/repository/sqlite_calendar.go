package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Calendar index maintenance. Each row pairs a date with either an event id
// or a match id; the unused half is an empty-string sentinel. Inserts use
// INSERT OR IGNORE so the index behaves as a set per date.

func calendarAddEvent(ctx context.Context, db *sql.DB, e *models.Event) error {
	dates, err := models.DatesBetween(e.StartDate, e.EndDate)
	if err != nil {
		return fmt.Errorf("failed to expand event dates: %w", err)
	}
	for _, date := range dates {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO calendar (date, event_id, match_id) VALUES (?, ?, '')`,
			date, e.ID)
		if err != nil {
			return fmt.Errorf("failed to index event date %s: %w", date, err)
		}
	}
	return nil
}

func calendarRemoveEvent(ctx context.Context, db *sql.DB, eventID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM calendar WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to unindex event: %w", err)
	}
	return nil
}

func calendarAddMatch(ctx context.Context, db *sql.DB, m *models.Match) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO calendar (date, event_id, match_id) VALUES (?, '', ?)`,
		m.Date, m.ID)
	if err != nil {
		return fmt.Errorf("failed to index match date %s: %w", m.Date, err)
	}
	return nil
}

func calendarRemoveMatch(ctx context.Context, db *sql.DB, matchID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM calendar WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to unindex match: %w", err)
	}
	return nil
}

// sqliteCalendarRepository reads the date index and supports full rebuilds.
type sqliteCalendarRepository struct {
	db *sql.DB
}

// NewSQLiteCalendarRepository creates a calendar repository over the local database.
func NewSQLiteCalendarRepository(db *sql.DB) CalendarRepository {
	return &sqliteCalendarRepository{db: db}
}

// Get returns the calendar entry for a date, or (nil, nil) when the date has
// no indexed events or matches.
func (r *sqliteCalendarRepository) Get(ctx context.Context, date string) (*models.CalendarEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, match_id FROM calendar WHERE date = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar entry: %w", err)
	}
	defer rows.Close()

	entry := &models.CalendarEntry{Date: date}
	found := false
	for rows.Next() {
		var eventID, matchID string
		if err := rows.Scan(&eventID, &matchID); err != nil {
			return nil, fmt.Errorf("failed to scan calendar row: %w", err)
		}
		found = true
		if eventID != "" {
			entry.EventIDs = append(entry.EventIDs, eventID)
		}
		if matchID != "" {
			entry.MatchIDs = append(entry.MatchIDs, matchID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendar rows: %w", err)
	}
	if !found {
		return nil, nil
	}
	return entry, nil
}

// Rebuild reconstructs the whole index from the given events and matches,
// discarding the previous contents. Idempotent: rebuilding twice from the
// same inputs yields the same index.
func (r *sqliteCalendarRepository) Rebuild(ctx context.Context, events []*models.Event, matches []*models.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar`); err != nil {
		return fmt.Errorf("failed to clear calendar: %w", err)
	}

	for _, e := range events {
		dates, err := models.DatesBetween(e.StartDate, e.EndDate)
		if err != nil {
			return fmt.Errorf("failed to expand event dates: %w", err)
		}
		for _, date := range dates {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO calendar (date, event_id, match_id) VALUES (?, ?, '')`,
				date, e.ID)
			if err != nil {
				return fmt.Errorf("failed to index event date %s: %w", date, err)
			}
		}
	}

	for _, m := range matches {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO calendar (date, event_id, match_id) VALUES (?, '', ?)`,
			m.Date, m.ID)
		if err != nil {
			return fmt.Errorf("failed to index match date %s: %w", m.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit calendar rebuild: %w", err)
	}
	return nil
}
