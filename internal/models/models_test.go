package models

import (
	"testing"
	"time"
)

func validEvent() *Event {
	return &Event{
		ID:          "event-1",
		Name:        "Friday Night Magic",
		Game:        GameMagic,
		StartDate:   "2024-01-05",
		EndDate:     "2024-01-05",
		TotalRounds: 3,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestEventValidate(t *testing.T) {
	if err := validEvent().Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestEventValidate_EndBeforeStart(t *testing.T) {
	e := validEvent()
	e.StartDate = "2024-01-06"
	e.EndDate = "2024-01-05"
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for end date before start date")
	}
}

func TestEventValidate_RoundBounds(t *testing.T) {
	e := validEvent()
	e.TotalRounds = 0
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for zero rounds")
	}

	e.TotalRounds = 21
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for more than 20 rounds")
	}

	e.TotalRounds = 20
	if err := e.Validate(); err != nil {
		t.Fatalf("expected 20 rounds to be valid, got %v", err)
	}
}

func TestEventValidate_UnknownGame(t *testing.T) {
	e := validEvent()
	e.Game = "chess"
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for unknown game title")
	}
}

func TestMatchValidate(t *testing.T) {
	m := &Match{
		ID:      "match-1",
		EventID: "event-1",
		Round:   1,
		Date:    "2024-01-05",
		Result:  ResultWin,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid match, got %v", err)
	}

	m.Result = "DRAW"
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for unknown result")
	}

	m.Result = ResultTie
	m.EventID = ""
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for missing event id")
	}
}

func TestDeckValidate(t *testing.T) {
	d := &Deck{ID: "deck-1", Title: "Mono Red", Game: GameMagic}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid deck, got %v", err)
	}

	d.Title = ""
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestDatesBetween(t *testing.T) {
	dates, err := DatesBetween("2024-01-30", "2024-02-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i, date := range want {
		if dates[i] != date {
			t.Errorf("expected dates[%d] = %s, got %s", i, date, dates[i])
		}
	}
}

func TestDatesBetween_SingleDay(t *testing.T) {
	dates, err := DatesBetween("2024-01-05", "2024-01-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-01-05" {
		t.Fatalf("expected single date 2024-01-05, got %v", dates)
	}
}

func TestDatesBetween_Inverted(t *testing.T) {
	if _, err := DatesBetween("2024-01-06", "2024-01-05"); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
