package repository

import (
	"context"
	"fmt"

	"github.com/tcadams/tcg-tracker/internal/models"
)

const kvCalendarPrefix = "calendar/"

func addToSet(set []string, id string) []string {
	for _, v := range set {
		if v == id {
			return set
		}
	}
	return append(set, id)
}

func removeFromSet(set []string, id string) []string {
	out := set[:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// kvCalendarAdd records an event or match id under a date. Exactly one of
// eventID/matchID is set per call.
func kvCalendarAdd(s *KVStore, date, eventID, matchID string) error {
	key := kvCalendarPrefix + date
	var entry models.CalendarEntry
	if _, err := s.Get(key, &entry); err != nil {
		return err
	}
	entry.Date = date
	if eventID != "" {
		entry.EventIDs = addToSet(entry.EventIDs, eventID)
	}
	if matchID != "" {
		entry.MatchIDs = addToSet(entry.MatchIDs, matchID)
	}
	return s.Put(key, &entry)
}

// kvCalendarRemove strips an event or match id from every date entry,
// deleting entries that become empty.
func kvCalendarRemove(s *KVStore, eventID, matchID string) error {
	for _, key := range s.Keys(kvCalendarPrefix) {
		var entry models.CalendarEntry
		found, err := s.Get(key, &entry)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		before := len(entry.EventIDs) + len(entry.MatchIDs)
		if eventID != "" {
			entry.EventIDs = removeFromSet(entry.EventIDs, eventID)
		}
		if matchID != "" {
			entry.MatchIDs = removeFromSet(entry.MatchIDs, matchID)
		}
		if len(entry.EventIDs)+len(entry.MatchIDs) == before {
			continue
		}
		if len(entry.EventIDs)+len(entry.MatchIDs) == 0 {
			if _, err := s.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := s.Put(key, &entry); err != nil {
			return err
		}
	}
	return nil
}

// kvCalendarRepository reads the date index from the key-value backend.
type kvCalendarRepository struct {
	store *KVStore
}

// NewKVCalendarRepository creates a calendar repository over the key-value store.
func NewKVCalendarRepository(store *KVStore) CalendarRepository {
	return &kvCalendarRepository{store: store}
}

// Get returns the calendar entry for a date, or (nil, nil) when absent.
func (r *kvCalendarRepository) Get(_ context.Context, date string) (*models.CalendarEntry, error) {
	var entry models.CalendarEntry
	found, err := r.store.Get(kvCalendarPrefix+date, &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &entry, nil
}

// Rebuild reconstructs the whole index from the given events and matches.
func (r *kvCalendarRepository) Rebuild(_ context.Context, events []*models.Event, matches []*models.Match) error {
	for _, key := range r.store.Keys(kvCalendarPrefix) {
		if _, err := r.store.Delete(key); err != nil {
			return err
		}
	}

	for _, e := range events {
		dates, err := models.DatesBetween(e.StartDate, e.EndDate)
		if err != nil {
			return fmt.Errorf("failed to expand event dates: %w", err)
		}
		for _, date := range dates {
			if err := kvCalendarAdd(r.store, date, e.ID, ""); err != nil {
				return err
			}
		}
	}

	for _, m := range matches {
		if err := kvCalendarAdd(r.store, m.Date, "", m.ID); err != nil {
			return err
		}
	}
	return nil
}
