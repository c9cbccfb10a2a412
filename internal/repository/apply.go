package repository

import "github.com/tcadams/tcg-tracker/internal/models"

// Partial-update application shared by all backends. ID, OwnerID and
// CreatedAt are never copied from an update: identity and ownership are
// immutable after creation.

func applyEventUpdate(e *models.Event, u models.EventUpdate) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Game != nil {
		e.Game = *u.Game
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.TotalRounds != nil {
		e.TotalRounds = *u.TotalRounds
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
}

func applyDeckUpdate(d *models.Deck, u models.DeckUpdate) {
	if u.Title != nil {
		d.Title = *u.Title
	}
	if u.Game != nil {
		d.Game = *u.Game
	}
	if u.Archetype != nil {
		d.Archetype = *u.Archetype
	}
	if u.Colors != nil {
		d.Colors = *u.Colors
	}
	if u.Notes != nil {
		d.Notes = *u.Notes
	}
	if u.Archived != nil {
		d.Archived = *u.Archived
	}
}

func applyMatchUpdate(m *models.Match, u models.MatchUpdate) {
	if u.EventID != nil {
		m.EventID = *u.EventID
	}
	if u.MyDeckID != nil {
		m.MyDeckID = *u.MyDeckID
	}
	if u.Round != nil {
		m.Round = *u.Round
	}
	if u.Date != nil {
		m.Date = *u.Date
	}
	if u.OpponentArchetype != nil {
		m.OpponentArchetype = *u.OpponentArchetype
	}
	if u.OpponentLeader != nil {
		m.OpponentLeader = *u.OpponentLeader
	}
	if u.OpponentColor != nil {
		m.OpponentColor = *u.OpponentColor
	}
	if u.Result != nil {
		m.Result = *u.Result
	}
	if u.Score != nil {
		m.Score = *u.Score
	}
	if u.DieRollWon != nil {
		m.DieRollWon = u.DieRollWon
	}
	if u.WentFirst != nil {
		m.WentFirst = u.WentFirst
	}
	if u.Notes != nil {
		m.Notes = *u.Notes
	}
	if u.Tags != nil {
		m.Tags = *u.Tags
	}
}
