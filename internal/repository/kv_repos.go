package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Key-value backend repositories. Filtering and sorting happen in memory with
// the shared predicate helpers, so listings are logically identical to the
// structured backend's query results.

const (
	kvEventPrefix = "event/"
	kvDeckPrefix  = "deck/"
	kvMatchPrefix = "match/"
)

type kvEventRepository struct {
	store *KVStore
}

// NewKVEventRepository creates an event repository over the key-value store.
func NewKVEventRepository(store *KVStore) EventRepository {
	return &kvEventRepository{store: store}
}

func (r *kvEventRepository) List(_ context.Context, filter EventFilter) ([]*models.Event, error) {
	var events []*models.Event
	for _, key := range r.store.Keys(kvEventPrefix) {
		var e models.Event
		found, err := r.store.Get(key, &e)
		if err != nil {
			return nil, err
		}
		if found && eventMatches(&e, filter) {
			events = append(events, &e)
		}
	}
	sortEvents(events)
	return events, nil
}

func (r *kvEventRepository) Get(_ context.Context, id string) (*models.Event, error) {
	var e models.Event
	found, err := r.store.Get(kvEventPrefix+id, &e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &e, nil
}

func (r *kvEventRepository) Create(_ context.Context, event *models.Event) (*models.Event, error) {
	e := *event
	e.ID = uuid.NewString()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.Put(kvEventPrefix+e.ID, &e); err != nil {
		return nil, err
	}

	dates, err := models.DatesBetween(e.StartDate, e.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to expand event dates: %w", err)
	}
	for _, date := range dates {
		if err := kvCalendarAdd(r.store, date, e.ID, ""); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (r *kvEventRepository) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
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
	if err := r.store.Put(kvEventPrefix+id, &e); err != nil {
		return nil, err
	}

	if e.StartDate != existing.StartDate || e.EndDate != existing.EndDate {
		if err := kvCalendarRemove(r.store, id, ""); err != nil {
			return nil, err
		}
		dates, err := models.DatesBetween(e.StartDate, e.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to expand event dates: %w", err)
		}
		for _, date := range dates {
			if err := kvCalendarAdd(r.store, date, id, ""); err != nil {
				return nil, err
			}
		}
	}
	return &e, nil
}

func (r *kvEventRepository) Remove(_ context.Context, id string) (bool, error) {
	// Cascade: delete matches referencing this event, pruning the calendar
	// as each goes.
	for _, key := range r.store.Keys(kvMatchPrefix) {
		var m models.Match
		found, err := r.store.Get(key, &m)
		if err != nil {
			return false, err
		}
		if !found || m.EventID != id {
			continue
		}
		if err := kvCalendarRemove(r.store, "", m.ID); err != nil {
			return false, err
		}
		if _, err := r.store.Delete(key); err != nil {
			return false, err
		}
	}

	if err := kvCalendarRemove(r.store, id, ""); err != nil {
		return false, err
	}
	return r.store.Delete(kvEventPrefix + id)
}

type kvDeckRepository struct {
	store *KVStore
}

// NewKVDeckRepository creates a deck repository over the key-value store.
func NewKVDeckRepository(store *KVStore) DeckRepository {
	return &kvDeckRepository{store: store}
}

func (r *kvDeckRepository) List(_ context.Context, filter DeckFilter) ([]*models.Deck, error) {
	var decks []*models.Deck
	for _, key := range r.store.Keys(kvDeckPrefix) {
		var d models.Deck
		found, err := r.store.Get(key, &d)
		if err != nil {
			return nil, err
		}
		if found && deckMatches(&d, filter) {
			decks = append(decks, &d)
		}
	}
	sortDecks(decks)
	return decks, nil
}

func (r *kvDeckRepository) Get(_ context.Context, id string) (*models.Deck, error) {
	var d models.Deck
	found, err := r.store.Get(kvDeckPrefix+id, &d)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &d, nil
}

func (r *kvDeckRepository) Create(_ context.Context, deck *models.Deck) (*models.Deck, error) {
	d := *deck
	d.ID = uuid.NewString()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.Put(kvDeckPrefix+d.ID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *kvDeckRepository) Update(ctx context.Context, id string, update models.DeckUpdate) (*models.Deck, error) {
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
	if err := r.store.Put(kvDeckPrefix+id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *kvDeckRepository) Remove(_ context.Context, id string) (bool, error) {
	return r.store.Delete(kvDeckPrefix + id)
}

type kvMatchRepository struct {
	store *KVStore
}

// NewKVMatchRepository creates a match repository over the key-value store.
func NewKVMatchRepository(store *KVStore) MatchRepository {
	return &kvMatchRepository{store: store}
}

func (r *kvMatchRepository) checkEvent(m *models.Match) error {
	var e models.Event
	found, err := r.store.Get(kvEventPrefix+m.EventID, &e)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("invalid match: event %s not found", m.EventID)
	}
	if m.Round > e.TotalRounds {
		return fmt.Errorf("invalid match: round %d exceeds event total rounds %d", m.Round, e.TotalRounds)
	}
	return nil
}

func (r *kvMatchRepository) List(_ context.Context, filter MatchFilter) ([]*models.Match, error) {
	var eventGames map[string]models.GameTitle
	if filter.Game != "" {
		eventGames = make(map[string]models.GameTitle)
		for _, key := range r.store.Keys(kvEventPrefix) {
			var e models.Event
			found, err := r.store.Get(key, &e)
			if err != nil {
				return nil, err
			}
			if found {
				eventGames[e.ID] = e.Game
			}
		}
	}

	var matches []*models.Match
	for _, key := range r.store.Keys(kvMatchPrefix) {
		var m models.Match
		found, err := r.store.Get(key, &m)
		if err != nil {
			return nil, err
		}
		if found && matchMatches(&m, filter, eventGames) {
			matches = append(matches, &m)
		}
	}
	sortMatches(matches)
	return matches, nil
}

func (r *kvMatchRepository) Get(_ context.Context, id string) (*models.Match, error) {
	var m models.Match
	found, err := r.store.Get(kvMatchPrefix+id, &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &m, nil
}

func (r *kvMatchRepository) Create(_ context.Context, match *models.Match) (*models.Match, error) {
	m := *match
	m.ID = uuid.NewString()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkEvent(&m); err != nil {
		return nil, err
	}
	if err := r.store.Put(kvMatchPrefix+m.ID, &m); err != nil {
		return nil, err
	}
	if err := kvCalendarAdd(r.store, m.Date, "", m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *kvMatchRepository) Update(ctx context.Context, id string, update models.MatchUpdate) (*models.Match, error) {
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
	if err := r.checkEvent(&m); err != nil {
		return nil, err
	}
	if err := r.store.Put(kvMatchPrefix+id, &m); err != nil {
		return nil, err
	}

	if m.Date != existing.Date {
		if err := kvCalendarRemove(r.store, "", id); err != nil {
			return nil, err
		}
		if err := kvCalendarAdd(r.store, m.Date, "", id); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *kvMatchRepository) Remove(_ context.Context, id string) (bool, error) {
	if err := kvCalendarRemove(r.store, "", id); err != nil {
		return false, err
	}
	return r.store.Delete(kvMatchPrefix + id)
}
