package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// setupTestDB creates an in-memory database with the full schema for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE events (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			name TEXT NOT NULL,
			game TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			total_rounds INTEGER NOT NULL,
			notes TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE decks (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			title TEXT NOT NULL,
			game TEXT NOT NULL,
			archetype TEXT,
			colors TEXT,
			notes TEXT,
			archived INTEGER NOT NULL DEFAULT 0 CHECK(archived IN (0, 1)),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE matches (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			event_id TEXT NOT NULL REFERENCES events(id),
			my_deck_id TEXT,
			round INTEGER NOT NULL,
			date TEXT NOT NULL,
			opponent_archetype TEXT,
			opponent_leader TEXT,
			opponent_color TEXT,
			result TEXT NOT NULL,
			score TEXT,
			die_roll_won INTEGER,
			went_first INTEGER,
			notes TEXT,
			tags TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE calendar (
			date TEXT NOT NULL,
			event_id TEXT NOT NULL DEFAULT '',
			match_id TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (date, event_id, match_id)
		);

		CREATE TABLE sync_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			entity_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			target_table TEXT NOT NULL,
			payload TEXT NOT NULL,
			enqueued_at TEXT NOT NULL,
			retries INTEGER NOT NULL DEFAULT 0
		);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// setupTestKV creates a key-value store backed by a temp file.
func setupTestKV(t *testing.T) *KVStore {
	t.Helper()

	kv, err := OpenKV(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("failed to open test key-value store: %v", err)
	}
	return kv
}

func testEvent() *models.Event {
	return &models.Event{
		Name:        "FNM",
		Game:        models.GameMagic,
		StartDate:   "2024-01-05",
		EndDate:     "2024-01-05",
		TotalRounds: 3,
	}
}

func mustCreateEvent(t *testing.T, repo EventRepository, e *models.Event) *models.Event {
	t.Helper()
	created, err := repo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return created
}

func mustCreateMatch(t *testing.T, repo MatchRepository, m *models.Match) *models.Match {
	t.Helper()
	created, err := repo.Create(context.Background(), m)
	if err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	return created
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
