package repository

import (
	"sort"
	"strings"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// The predicate and sort helpers below define the logical contract every
// backend must honor: an in-memory backend filtering with these and a SQL
// backend filtering with WHERE/ORDER BY clauses must return the same results
// for the same filter.

func eventMatches(e *models.Event, f EventFilter) bool {
	if f.Game != "" && e.Game != f.Game {
		return false
	}
	if f.From != "" && e.StartDate < f.From {
		return false
	}
	if f.To != "" && e.StartDate > f.To {
		return false
	}
	return true
}

func deckMatches(d *models.Deck, f DeckFilter) bool {
	if f.Game != "" && d.Game != f.Game {
		return false
	}
	if d.Archived && !f.IncludeArchived {
		return false
	}
	return true
}

// matchMatches applies a filter to a match. eventGames resolves the game
// through the owning event; it may be nil when the filter has no game
// constraint.
func matchMatches(m *models.Match, f MatchFilter, eventGames map[string]models.GameTitle) bool {
	if f.EventID != "" && m.EventID != f.EventID {
		return false
	}
	if f.MyDeckID != "" && m.MyDeckID != f.MyDeckID {
		return false
	}
	if f.Result != "" && m.Result != f.Result {
		return false
	}
	if f.Game != "" && eventGames[m.EventID] != f.Game {
		return false
	}
	return true
}

// sortEvents orders newest-first by start date, then by creation time.
func sortEvents(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartDate != events[j].StartDate {
			return events[i].StartDate > events[j].StartDate
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
}

// sortDecks orders alphabetically by title, case-insensitive.
func sortDecks(decks []*models.Deck) {
	sort.SliceStable(decks, func(i, j int) bool {
		return strings.ToLower(decks[i].Title) < strings.ToLower(decks[j].Title)
	})
}

// sortMatches orders newest-first by date, then by creation time.
func sortMatches(matches []*models.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Date != matches[j].Date {
			return matches[i].Date > matches[j].Date
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
}
