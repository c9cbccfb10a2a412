package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// sqliteEventRepository is the structured-backend implementation of
// EventRepository. Calendar index maintenance is sequenced directly after the
// entity write; a crash between the two leaves the index stale but
// rebuildable, never the entity table corrupted.
type sqliteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates an event repository over the local database.
func NewSQLiteEventRepository(db *sql.DB) EventRepository {
	return &sqliteEventRepository{db: db}
}

const eventColumns = `id, owner_id, name, game, start_date, end_date, total_rounds, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                    models.Event
		ownerID, notes       sql.NullString
		createdAt, updatedAt string
		game                 string
	)
	err := row.Scan(&e.ID, &ownerID, &e.Name, &game, &e.StartDate, &e.EndDate,
		&e.TotalRounds, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.OwnerID = ownerID.String
	e.Notes = notes.String
	e.Game = models.GameTitle(game)
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &e, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List retrieves events matching the filter, newest-first by start date.
func (r *sqliteEventRepository) List(ctx context.Context, filter EventFilter) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any

	if filter.Game != "" {
		query += " AND game = ?"
		args = append(args, string(filter.Game))
	}
	if filter.From != "" {
		query += " AND start_date >= ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND start_date <= ?"
		args = append(args, filter.To)
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// Get retrieves an event by id. Returns (nil, nil) when absent.
func (r *sqliteEventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}
	return e, nil
}

// Create inserts a new event, generating its id and timestamps, and indexes
// its date span in the calendar.
func (r *sqliteEventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	e := *event
	e.ID = uuid.NewString()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := e.Validate(); err != nil {
		return nil, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, nullString(e.OwnerID), e.Name, string(e.Game), e.StartDate, e.EndDate,
		e.TotalRounds, nullString(e.Notes), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := calendarAddEvent(ctx, r.db, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Update applies a partial update. Identity and ownership are never touched.
// Returns (nil, nil) when the id does not exist.
func (r *sqliteEventRepository) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	e := *existing
	applyEventUpdate(&e, update)
	e.UpdatedAt = time.Now().UTC()

	if err := e.Validate(); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE events
		SET name = ?, game = ?, start_date = ?, end_date = ?, total_rounds = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, string(e.Game), e.StartDate, e.EndDate, e.TotalRounds,
		nullString(e.Notes), formatTime(e.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if e.StartDate != existing.StartDate || e.EndDate != existing.EndDate {
		if err := calendarRemoveEvent(ctx, r.db, id); err != nil {
			return nil, err
		}
		if err := calendarAddEvent(ctx, r.db, &e); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// Remove deletes an event, cascading to its matches and pruning both from the
// calendar index. Returns false when the id does not exist.
func (r *sqliteEventRepository) Remove(ctx context.Context, id string) (bool, error) {
	// Matches referencing the event go first, FK order.
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar WHERE match_id IN (SELECT id FROM matches WHERE event_id = ?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to prune match calendar entries: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE event_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to cascade event matches: %w", err)
	}
	if err := calendarRemoveEvent(ctx, r.db, id); err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
