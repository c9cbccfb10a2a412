// Package models defines the core entity types for tournament tracking.
package models

import (
	"encoding/json"
	"time"
)

// DateFormat is the layout for calendar dates (ISO date, no time component).
const DateFormat = "2006-01-02"

// GameTitle identifies which trading card game an event or deck belongs to.
type GameTitle string

const (
	GameMagic    GameTitle = "magic"
	GameOnePiece GameTitle = "onepiece"
	GamePokemon  GameTitle = "pokemon"
	GameLorcana  GameTitle = "lorcana"
	GameOther    GameTitle = "other"
)

// MatchResult is the outcome of a single round.
type MatchResult string

const (
	ResultWin  MatchResult = "WIN"
	ResultLoss MatchResult = "LOSS"
	ResultTie  MatchResult = "TIE"
)

// Event represents a tournament or play session spanning one or more days.
type Event struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Game        GameTitle `json:"game" validate:"required,oneof=magic onepiece pokemon lorcana other"`
	StartDate   string    `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string    `json:"endDate" validate:"required,datetime=2006-01-02"`
	TotalRounds int       `json:"totalRounds" validate:"min=1,max=20"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Deck represents a deck list the player brings to events.
// Archived decks are soft-deleted: hidden from active selection but kept
// so historical matches can still resolve their deck.
type Deck struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Title     string    `json:"title" validate:"required"`
	Game      GameTitle `json:"game" validate:"required,oneof=magic onepiece pokemon lorcana other"`
	Archetype string    `json:"archetype,omitempty"`
	Colors    string    `json:"colors,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Match represents a single round played within an event.
// For the One Piece variant the opponent is described by a structured
// leader+color pair instead of a free-form archetype.
type Match struct {
	ID                string      `json:"id"`
	OwnerID           string      `json:"ownerId,omitempty"`
	EventID           string      `json:"eventId" validate:"required"`
	MyDeckID          string      `json:"myDeckId,omitempty"`
	Round             int         `json:"round" validate:"min=1,max=20"`
	Date              string      `json:"date" validate:"required,datetime=2006-01-02"`
	OpponentArchetype string      `json:"opponentArchetype,omitempty"`
	OpponentLeader    string      `json:"opponentLeader,omitempty"`
	OpponentColor     string      `json:"opponentColor,omitempty"`
	Result            MatchResult `json:"result" validate:"required,oneof=WIN LOSS TIE"`
	Score             string      `json:"score,omitempty"`
	DieRollWon        *bool       `json:"dieRollWon,omitempty"`
	WentFirst         *bool       `json:"wentFirst,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// CalendarEntry is one row of the date index: the set of event ids whose
// date span covers the date, and the set of match ids played on it.
// Derived data only; always reconstructable from events and matches.
type CalendarEntry struct {
	Date     string   `json:"date"`
	EventIDs []string `json:"eventIds"`
	MatchIDs []string `json:"matchIds"`
}

// EventUpdate is a partial update for an event. Nil fields are left unchanged.
// ID and OwnerID are deliberately absent: identity and ownership never change.
type EventUpdate struct {
	Name        *string
	Game        *GameTitle
	StartDate   *string
	EndDate     *string
	TotalRounds *int
	Notes       *string
}

// DeckUpdate is a partial update for a deck.
type DeckUpdate struct {
	Title     *string
	Game      *GameTitle
	Archetype *string
	Colors    *string
	Notes     *string
	Archived  *bool
}

// MatchUpdate is a partial update for a match.
type MatchUpdate struct {
	EventID           *string
	MyDeckID          *string
	Round             *int
	Date              *string
	OpponentArchetype *string
	OpponentLeader    *string
	OpponentColor     *string
	Result            *MatchResult
	Score             *string
	DieRollWon        *bool
	WentFirst         *bool
	Notes             *string
	Tags              *[]string
}

// OperationKind is the type of a queued remote mutation.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// Table names the remote mirror table a sync operation targets.
type Table string

const (
	TableEvents  Table = "events"
	TableDecks   Table = "decks"
	TableMatches Table = "matches"
)

// SyncOperation is one pending remote-mirror mutation. Payload is a snapshot
// of the entity taken at enqueue time; the queue never re-reads entity state.
type SyncOperation struct {
	ID         string          `json:"id"`
	EntityID   string          `json:"entityId"`
	Kind       OperationKind   `json:"kind"`
	Table      Table           `json:"table"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Retries    int             `json:"retries"`
}
