package repository

import (
	"database/sql"
	"fmt"
	"sync"
)

// BackendKind selects one of the interchangeable storage backends.
type BackendKind string

const (
	BackendKeyValue BackendKind = "keyvalue"
	BackendSQLite   BackendKind = "sqlite"
	BackendCloud    BackendKind = "cloud"
)

// ParseBackendKind converts a persisted backend name into a BackendKind.
func ParseBackendKind(name string) (BackendKind, error) {
	switch kind := BackendKind(name); kind {
	case BackendKeyValue, BackendSQLite, BackendCloud:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown backend kind %q", name)
	}
}

// Settings persists the active backend selection.
type Settings interface {
	Backend() string
	SetBackend(name string) error
}

// Factory resolves the active backend selection into concrete repository
// instances, one cached instance per entity type. Changing the backend
// persists the selection and synchronously invalidates the cache; it never
// moves data between backends.
type Factory struct {
	settings Settings
	db       *sql.DB
	kvPath   string
	queue    Enqueuer
	users    UserProvider

	mu       sync.Mutex
	kv       *KVStore
	events   EventRepository
	decks    DeckRepository
	matches  MatchRepository
	calendar CalendarRepository
}

// NewFactory creates a repository factory. db backs the structured and cloud
// backends; kvPath backs the key-value backend; queue and users serve the
// cloud backend only.
func NewFactory(settings Settings, db *sql.DB, kvPath string, queue Enqueuer, users UserProvider) *Factory {
	return &Factory{
		settings: settings,
		db:       db,
		kvPath:   kvPath,
		queue:    queue,
		users:    users,
	}
}

// Backend returns the currently selected backend kind.
func (f *Factory) Backend() (BackendKind, error) {
	return ParseBackendKind(f.settings.Backend())
}

// SetBackend persists a new backend selection and invalidates all cached
// repository instances before returning, so the next access constructs
// against the new backend.
func (f *Factory) SetBackend(kind BackendKind) error {
	if _, err := ParseBackendKind(string(kind)); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.settings.SetBackend(string(kind)); err != nil {
		return fmt.Errorf("failed to persist backend selection: %w", err)
	}

	f.kv = nil
	f.events = nil
	f.decks = nil
	f.matches = nil
	f.calendar = nil
	return nil
}

// kvStoreLocked lazily opens the key-value store. Caller must hold mu.
func (f *Factory) kvStoreLocked() (*KVStore, error) {
	if f.kv == nil {
		kv, err := OpenKV(f.kvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open key-value store: %w", err)
		}
		f.kv = kv
	}
	return f.kv, nil
}

// Events returns the event repository for the active backend.
func (f *Factory) Events() (EventRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.events != nil {
		return f.events, nil
	}

	kind, err := ParseBackendKind(f.settings.Backend())
	if err != nil {
		return nil, err
	}
	switch kind {
	case BackendKeyValue:
		kv, err := f.kvStoreLocked()
		if err != nil {
			return nil, err
		}
		f.events = NewKVEventRepository(kv)
	case BackendSQLite:
		f.events = NewSQLiteEventRepository(f.db)
	case BackendCloud:
		f.events = NewCloudEventRepository(NewSQLiteEventRepository(f.db), NewSQLiteMatchRepository(f.db), f.queue, f.users)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return f.events, nil
}

// Decks returns the deck repository for the active backend.
func (f *Factory) Decks() (DeckRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.decks != nil {
		return f.decks, nil
	}

	kind, err := ParseBackendKind(f.settings.Backend())
	if err != nil {
		return nil, err
	}
	switch kind {
	case BackendKeyValue:
		kv, err := f.kvStoreLocked()
		if err != nil {
			return nil, err
		}
		f.decks = NewKVDeckRepository(kv)
	case BackendSQLite:
		f.decks = NewSQLiteDeckRepository(f.db)
	case BackendCloud:
		f.decks = NewCloudDeckRepository(NewSQLiteDeckRepository(f.db), f.queue, f.users)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return f.decks, nil
}

// Matches returns the match repository for the active backend.
func (f *Factory) Matches() (MatchRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.matches != nil {
		return f.matches, nil
	}

	kind, err := ParseBackendKind(f.settings.Backend())
	if err != nil {
		return nil, err
	}
	switch kind {
	case BackendKeyValue:
		kv, err := f.kvStoreLocked()
		if err != nil {
			return nil, err
		}
		f.matches = NewKVMatchRepository(kv)
	case BackendSQLite:
		f.matches = NewSQLiteMatchRepository(f.db)
	case BackendCloud:
		f.matches = NewCloudMatchRepository(NewSQLiteMatchRepository(f.db), f.queue, f.users)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return f.matches, nil
}

// Calendar returns the calendar repository for the active backend. The
// calendar is derived local data and is never mirrored, so cloud mode reads
// the structured backend's index directly.
func (f *Factory) Calendar() (CalendarRepository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calendar != nil {
		return f.calendar, nil
	}

	kind, err := ParseBackendKind(f.settings.Backend())
	if err != nil {
		return nil, err
	}
	switch kind {
	case BackendKeyValue:
		kv, err := f.kvStoreLocked()
		if err != nil {
			return nil, err
		}
		f.calendar = NewKVCalendarRepository(kv)
	case BackendSQLite, BackendCloud:
		f.calendar = NewSQLiteCalendarRepository(f.db)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return f.calendar, nil
}
