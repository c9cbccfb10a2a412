package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// sqliteDeckRepository is the structured-backend implementation of DeckRepository.
type sqliteDeckRepository struct {
	db *sql.DB
}

// NewSQLiteDeckRepository creates a deck repository over the local database.
func NewSQLiteDeckRepository(db *sql.DB) DeckRepository {
	return &sqliteDeckRepository{db: db}
}

const deckColumns = `id, owner_id, title, game, archetype, colors, notes, archived, created_at, updated_at`

func scanDeck(row rowScanner) (*models.Deck, error) {
	var (
		d                                 models.Deck
		ownerID, archetype, colors, notes sql.NullString
		createdAt, updatedAt              string
		game                              string
	)
	err := row.Scan(&d.ID, &ownerID, &d.Title, &game, &archetype, &colors,
		&notes, &d.Archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.OwnerID = ownerID.String
	d.Archetype = archetype.String
	d.Colors = colors.String
	d.Notes = notes.String
	d.Game = models.GameTitle(game)
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &d, nil
}

// List retrieves decks matching the filter, alphabetical by title. Archived
// decks are excluded unless the filter includes them.
func (r *sqliteDeckRepository) List(ctx context.Context, filter DeckFilter) ([]*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE 1=1`
	var args []any

	if filter.Game != "" {
		query += " AND game = ?"
		args = append(args, string(filter.Game))
	}
	if !filter.IncludeArchived {
		query += " AND archived = 0"
	}

	query += " ORDER BY title COLLATE NOCASE ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []*models.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decks: %w", err)
	}
	return decks, nil
}

// Get retrieves a deck by id. Returns (nil, nil) when absent.
func (r *sqliteDeckRepository) Get(ctx context.Context, id string) (*models.Deck, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by id: %w", err)
	}
	return d, nil
}

// Create inserts a new deck, generating its id and timestamps.
func (r *sqliteDeckRepository) Create(ctx context.Context, deck *models.Deck) (*models.Deck, error) {
	d := *deck
	d.ID = uuid.NewString()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := d.Validate(); err != nil {
		return nil, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO decks (`+deckColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullString(d.OwnerID), d.Title, string(d.Game), nullString(d.Archetype),
		nullString(d.Colors), nullString(d.Notes), d.Archived, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}
	return &d, nil
}

// Update applies a partial update. Returns (nil, nil) when the id does not exist.
func (r *sqliteDeckRepository) Update(ctx context.Context, id string, update models.DeckUpdate) (*models.Deck, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	d := *existing
	applyDeckUpdate(&d, update)
	d.UpdatedAt = time.Now().UTC()

	if err := d.Validate(); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE decks
		SET title = ?, game = ?, archetype = ?, colors = ?, notes = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		d.Title, string(d.Game), nullString(d.Archetype), nullString(d.Colors),
		nullString(d.Notes), d.Archived, formatTime(d.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update deck: %w", err)
	}
	return &d, nil
}

// Remove deletes a deck. Returns false when the id does not exist.
func (r *sqliteDeckRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete deck: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
