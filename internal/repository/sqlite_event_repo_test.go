package repository

import (
	"context"
	"testing"

	"github.com/tcadams/tcg-tracker/internal/models"
)

func TestSQLiteEventRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	created := mustCreateEvent(t, repo, testEvent())
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected generated timestamps")
	}

	fetched, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to get event: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected event to be found")
	}
	if fetched.Name != created.Name || fetched.StartDate != created.StartDate ||
		fetched.TotalRounds != created.TotalRounds || fetched.Game != created.Game {
		t.Errorf("fetched event differs from created: %+v vs %+v", fetched, created)
	}
}

func TestSQLiteEventRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)

	e, err := repo.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != nil {
		t.Fatal("expected nil for missing event")
	}
}

func TestSQLiteEventRepository_CreateInvalid(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)

	e := testEvent()
	e.EndDate = "2024-01-04"
	if _, err := repo.Create(context.Background(), e); err == nil {
		t.Fatal("expected validation error for end before start")
	}
}

func TestSQLiteEventRepository_UpdateKeepsIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	e := testEvent()
	e.OwnerID = "user-1"
	created := mustCreateEvent(t, repo, e)

	name := "FNM Week 2"
	updated, err := repo.Update(ctx, created.ID, models.EventUpdate{Name: &name})
	if err != nil {
		t.Fatalf("failed to update event: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated event")
	}
	if updated.Name != name {
		t.Errorf("expected name %q, got %q", name, updated.Name)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed across update: %s vs %s", updated.ID, created.ID)
	}
	if updated.OwnerID != "user-1" {
		t.Errorf("owner changed across update: %s", updated.OwnerID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt changed across update")
	}
}

func TestSQLiteEventRepository_UpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)

	name := "nope"
	updated, err := repo.Update(context.Background(), "no-such-id", models.EventUpdate{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != nil {
		t.Fatal("expected nil for missing event")
	}
}

func TestSQLiteEventRepository_CalendarOnCreateAndRemove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	calendar := NewSQLiteCalendarRepository(db)
	ctx := context.Background()

	created := mustCreateEvent(t, repo, testEvent())

	entry, err := calendar.Get(ctx, "2024-01-05")
	if err != nil {
		t.Fatalf("failed to get calendar entry: %v", err)
	}
	if entry == nil || !containsID(entry.EventIDs, created.ID) {
		t.Fatalf("expected calendar entry for 2024-01-05 to contain event, got %+v", entry)
	}

	removed, err := repo.Remove(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to remove event: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}

	entry, err = calendar.Get(ctx, "2024-01-05")
	if err != nil {
		t.Fatalf("failed to get calendar entry: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected calendar entry to be gone, got %+v", entry)
	}
}

func TestSQLiteEventRepository_MultiDayCalendarSpan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	calendar := NewSQLiteCalendarRepository(db)
	ctx := context.Background()

	e := testEvent()
	e.Name = "Regional Championship"
	e.StartDate = "2024-03-01"
	e.EndDate = "2024-03-03"
	created := mustCreateEvent(t, repo, e)

	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		entry, err := calendar.Get(ctx, date)
		if err != nil {
			t.Fatalf("failed to get calendar entry for %s: %v", date, err)
		}
		if entry == nil || !containsID(entry.EventIDs, created.ID) {
			t.Errorf("expected %s to contain event id", date)
		}
	}
}

func TestSQLiteEventRepository_DateUpdateMovesCalendar(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	calendar := NewSQLiteCalendarRepository(db)
	ctx := context.Background()

	created := mustCreateEvent(t, repo, testEvent())

	newStart, newEnd := "2024-02-10", "2024-02-10"
	if _, err := repo.Update(ctx, created.ID, models.EventUpdate{StartDate: &newStart, EndDate: &newEnd}); err != nil {
		t.Fatalf("failed to update event: %v", err)
	}

	old, err := calendar.Get(ctx, "2024-01-05")
	if err != nil {
		t.Fatalf("failed to get calendar entry: %v", err)
	}
	if old != nil && containsID(old.EventIDs, created.ID) {
		t.Error("expected old date to no longer contain event")
	}

	moved, err := calendar.Get(ctx, "2024-02-10")
	if err != nil {
		t.Fatalf("failed to get calendar entry: %v", err)
	}
	if moved == nil || !containsID(moved.EventIDs, created.ID) {
		t.Error("expected new date to contain event")
	}
}

func TestSQLiteEventRepository_RemoveCascadesMatches(t *testing.T) {
	db := setupTestDB(t)
	events := NewSQLiteEventRepository(db)
	matches := NewSQLiteMatchRepository(db)
	ctx := context.Background()

	event := mustCreateEvent(t, events, testEvent())
	match := mustCreateMatch(t, matches, &models.Match{
		EventID: event.ID,
		Round:   1,
		Date:    "2024-01-05",
		Result:  models.ResultWin,
	})

	if _, err := events.Remove(ctx, event.ID); err != nil {
		t.Fatalf("failed to remove event: %v", err)
	}

	gone, err := matches.Get(ctx, match.ID)
	if err != nil {
		t.Fatalf("failed to get match: %v", err)
	}
	if gone != nil {
		t.Fatal("expected match to be cascaded away with its event")
	}
}

func TestSQLiteEventRepository_ListOrderAndFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()

	older := testEvent()
	older.Name = "January Event"
	mustCreateEvent(t, repo, older)

	newer := testEvent()
	newer.Name = "March Event"
	newer.StartDate = "2024-03-01"
	newer.EndDate = "2024-03-01"
	mustCreateEvent(t, repo, newer)

	onePiece := testEvent()
	onePiece.Name = "OP Store Event"
	onePiece.Game = models.GameOnePiece
	onePiece.StartDate = "2024-02-01"
	onePiece.EndDate = "2024-02-01"
	mustCreateEvent(t, repo, onePiece)

	all, err := repo.List(ctx, EventFilter{})
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Name != "March Event" || all[2].Name != "January Event" {
		t.Errorf("expected newest-first ordering, got %s ... %s", all[0].Name, all[2].Name)
	}

	magicOnly, err := repo.List(ctx, EventFilter{Game: models.GameMagic})
	if err != nil {
		t.Fatalf("failed to list filtered events: %v", err)
	}
	if len(magicOnly) != 2 {
		t.Fatalf("expected 2 magic events, got %d", len(magicOnly))
	}

	ranged, err := repo.List(ctx, EventFilter{From: "2024-02-01", To: "2024-02-28"})
	if err != nil {
		t.Fatalf("failed to list ranged events: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Name != "OP Store Event" {
		t.Fatalf("expected only the February event, got %d", len(ranged))
	}
}
