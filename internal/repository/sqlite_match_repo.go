package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// sqliteMatchRepository is the structured-backend implementation of
// MatchRepository. Like events, calendar maintenance is sequenced after the
// entity write.
type sqliteMatchRepository struct {
	db *sql.DB
}

// NewSQLiteMatchRepository creates a match repository over the local database.
func NewSQLiteMatchRepository(db *sql.DB) MatchRepository {
	return &sqliteMatchRepository{db: db}
}

const matchColumns = `id, owner_id, event_id, my_deck_id, round, date, opponent_archetype,
	opponent_leader, opponent_color, result, score, die_roll_won, went_first, notes, tags,
	created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                    models.Match
		ownerID, myDeckID    sql.NullString
		oppArch, oppLeader   sql.NullString
		oppColor, score      sql.NullString
		notes, tags          sql.NullString
		dieRollWon, first    sql.NullBool
		createdAt, updatedAt string
		result               string
	)
	err := row.Scan(&m.ID, &ownerID, &m.EventID, &myDeckID, &m.Round, &m.Date,
		&oppArch, &oppLeader, &oppColor, &result, &score, &dieRollWon, &first,
		&notes, &tags, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.OwnerID = ownerID.String
	m.MyDeckID = myDeckID.String
	m.OpponentArchetype = oppArch.String
	m.OpponentLeader = oppLeader.String
	m.OpponentColor = oppColor.String
	m.Result = models.MatchResult(result)
	m.Score = score.String
	m.Notes = notes.String
	if dieRollWon.Valid {
		m.DieRollWon = &dieRollWon.Bool
	}
	if first.Valid {
		m.WentFirst = &first.Bool
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &m.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode match tags: %w", err)
		}
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &m, nil
}

func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match tags: %w", err)
	}
	return string(data), nil
}

// checkEvent verifies the owning event exists and the round fits its planned
// round count. Both backends apply the same check so validation behavior is
// identical across them.
func (r *sqliteMatchRepository) checkEvent(ctx context.Context, m *models.Match) error {
	var totalRounds int
	err := r.db.QueryRowContext(ctx,
		`SELECT total_rounds FROM events WHERE id = ?`, m.EventID).Scan(&totalRounds)
	if err == sql.ErrNoRows {
		return fmt.Errorf("invalid match: event %s not found", m.EventID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up event: %w", err)
	}
	if m.Round > totalRounds {
		return fmt.Errorf("invalid match: round %d exceeds event total rounds %d", m.Round, totalRounds)
	}
	return nil
}

// List retrieves matches matching the filter, newest-first by date.
func (r *sqliteMatchRepository) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	var args []any

	if filter.EventID != "" {
		query += " AND event_id = ?"
		args = append(args, filter.EventID)
	}
	if filter.MyDeckID != "" {
		query += " AND my_deck_id = ?"
		args = append(args, filter.MyDeckID)
	}
	if filter.Result != "" {
		query += " AND result = ?"
		args = append(args, string(filter.Result))
	}
	if filter.Game != "" {
		query += " AND event_id IN (SELECT id FROM events WHERE game = ?)"
		args = append(args, string(filter.Game))
	}

	query += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

// Get retrieves a match by id. Returns (nil, nil) when absent.
func (r *sqliteMatchRepository) Get(ctx context.Context, id string) (*models.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}
	return m, nil
}

// Create inserts a new match, generating its id and timestamps, and indexes
// its date in the calendar.
func (r *sqliteMatchRepository) Create(ctx context.Context, match *models.Match) (*models.Match, error) {
	m := *match
	m.ID = uuid.NewString()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkEvent(ctx, &m); err != nil {
		return nil, err
	}

	tags, err := encodeTags(m.Tags)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, nullString(m.OwnerID), m.EventID, nullString(m.MyDeckID), m.Round, m.Date,
		nullString(m.OpponentArchetype), nullString(m.OpponentLeader), nullString(m.OpponentColor),
		string(m.Result), nullString(m.Score), m.DieRollWon, m.WentFirst,
		nullString(m.Notes), tags, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	if err := calendarAddMatch(ctx, r.db, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update applies a partial update. Identity and ownership are never touched.
// Returns (nil, nil) when the id does not exist.
func (r *sqliteMatchRepository) Update(ctx context.Context, id string, update models.MatchUpdate) (*models.Match, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	m := *existing
	applyMatchUpdate(&m, update)
	m.UpdatedAt = time.Now().UTC()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkEvent(ctx, &m); err != nil {
		return nil, err
	}

	tags, err := encodeTags(m.Tags)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE matches
		SET event_id = ?, my_deck_id = ?, round = ?, date = ?, opponent_archetype = ?,
			opponent_leader = ?, opponent_color = ?, result = ?, score = ?,
			die_roll_won = ?, went_first = ?, notes = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		m.EventID, nullString(m.MyDeckID), m.Round, m.Date,
		nullString(m.OpponentArchetype), nullString(m.OpponentLeader), nullString(m.OpponentColor),
		string(m.Result), nullString(m.Score), m.DieRollWon, m.WentFirst,
		nullString(m.Notes), tags, formatTime(m.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if m.Date != existing.Date {
		if err := calendarRemoveMatch(ctx, r.db, id); err != nil {
			return nil, err
		}
		if err := calendarAddMatch(ctx, r.db, &m); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// Remove deletes a match and prunes it from the calendar index. Returns false
// when the id does not exist.
func (r *sqliteMatchRepository) Remove(ctx context.Context, id string) (bool, error) {
	if err := calendarRemoveMatch(ctx, r.db, id); err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
