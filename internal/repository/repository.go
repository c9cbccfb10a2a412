// Package repository provides data access layers for tournament data over
// interchangeable storage backends.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// ErrAuthenticationRequired is returned by mutations on a backend that needs
// an authenticated owner when none is present.
var ErrAuthenticationRequired = errors.New("authentication required")

// UserProvider supplies the currently authenticated user, if any.
// An empty id means no user is signed in.
type UserProvider interface {
	CurrentUserID() string
}

// Enqueuer accepts sync operations for eventual remote mirroring.
type Enqueuer interface {
	Enqueue(ctx context.Context, op *models.SyncOperation) error
}

// EventFilter narrows event listings. Zero values mean "no constraint".
// From/To bound the event start date (inclusive, ISO dates).
type EventFilter struct {
	Game models.GameTitle
	From string
	To   string
}

// DeckFilter narrows deck listings. Archived decks are excluded unless
// IncludeArchived is set.
type DeckFilter struct {
	Game            models.GameTitle
	IncludeArchived bool
}

// MatchFilter narrows match listings. Matches carry no game of their own;
// Game filters through the owning event's game.
type MatchFilter struct {
	EventID  string
	MyDeckID string
	Result   models.MatchResult
	Game     models.GameTitle
}

// EventRepository handles persistence for events.
// Get and Update return (nil, nil) when the id does not exist.
type EventRepository interface {
	List(ctx context.Context, filter EventFilter) ([]*models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// DeckRepository handles persistence for decks.
type DeckRepository interface {
	List(ctx context.Context, filter DeckFilter) ([]*models.Deck, error)
	Get(ctx context.Context, id string) (*models.Deck, error)
	Create(ctx context.Context, deck *models.Deck) (*models.Deck, error)
	Update(ctx context.Context, id string, update models.DeckUpdate) (*models.Deck, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// MatchRepository handles persistence for matches.
type MatchRepository interface {
	List(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	Get(ctx context.Context, id string) (*models.Match, error)
	Create(ctx context.Context, match *models.Match) (*models.Match, error)
	Update(ctx context.Context, id string, update models.MatchUpdate) (*models.Match, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// CalendarRepository reads and rebuilds the secondary date index. Incremental
// maintenance happens inside the event and match repositories; Rebuild
// reconstructs the whole index from source data and must produce the same
// result the incremental path would have.
type CalendarRepository interface {
	Get(ctx context.Context, date string) (*models.CalendarEntry, error)
	Rebuild(ctx context.Context, events []*models.Event, matches []*models.Match) error
}

// timeFormat is the storage layout for created_at/updated_at columns.
const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}
