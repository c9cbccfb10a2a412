// Package syncqueue implements the durable, ordered, retryable queue of
// pending remote mutations. Local writes never wait on the network: cloud
// repositories enqueue a snapshot and return, and the queue drains to the
// remote backend on its own, surviving restarts and network interruptions.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Connectivity reports the current network reachability.
type Connectivity interface {
	Online() bool
}

// Config holds retry tuning for the drain loop.
type Config struct {
	// MaxRetries is the failure count after which an operation is dropped.
	MaxRetries int

	// InitialBackoff is the delay after the first failure; it doubles per
	// failure up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the standard retry tuning: 1s, 2s, 4s, ... capped at
// 60s, dropping after 5 failures.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// Status is a read-only snapshot of the queue for display.
type Status struct {
	Pending    int  `json:"pending"`
	Processing bool `json:"processing"`
	Paused     bool `json:"paused"`
	Online     bool `json:"online"`
}

// Service owns the pending operation list and the single-flight drain loop.
// All dependencies are injected so tests can run it against fakes and a
// virtual clock.
type Service struct {
	store  Store
	remote Remote
	clock  Clock
	cfg    *Config
	logger *log.Logger

	mu         sync.Mutex
	ops        []*models.SyncOperation
	processing bool
	paused     bool
	online     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sync queue service, recovering any operations persisted by a
// previous run. If the queue is non-empty and the network is reachable,
// draining starts immediately.
func New(store Store, remote Remote, net Connectivity, clock Clock, cfg *Config, logger *log.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ops, err := store.Pending(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to recover pending sync operations: %w", err)
	}

	online := true
	if net != nil {
		online = net.Online()
	}

	s := &Service{
		store:  store,
		remote: remote,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
		ops:    ops,
		online: online,
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.maybeDrainLocked()
	s.mu.Unlock()

	return s, nil
}

// Enqueue appends an operation to the durable queue. A duplicate already
// pending for the same (entity id, kind) pair is skipped silently. The
// operation is persisted before Enqueue returns; if not already draining and
// conditions allow, the drain loop starts.
func (s *Service) Enqueue(ctx context.Context, op *models.SyncOperation) error {
	if op.EntityID == "" || op.Kind == "" || op.Table == "" {
		return fmt.Errorf("incomplete sync operation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pending := range s.ops {
		if pending.EntityID == op.EntityID && pending.Kind == op.Kind {
			s.logger.Printf("[SyncQueue] skipping duplicate %s for %s %s (already pending)",
				op.Kind, op.Table, op.EntityID)
			return nil
		}
	}

	queued := *op
	queued.ID = uuid.NewString()
	queued.EnqueuedAt = s.clock.Now().UTC()
	queued.Retries = 0

	if err := s.store.Append(ctx, &queued); err != nil {
		return fmt.Errorf("failed to persist sync operation: %w", err)
	}
	s.ops = append(s.ops, &queued)
	s.maybeDrainLocked()
	return nil
}

// maybeDrainLocked starts the drain loop when it is not already running and
// the queue is drainable. Caller must hold mu. Single-flight: the processing
// flag guarantees at most one loop issues network requests.
func (s *Service) maybeDrainLocked() {
	if s.processing || s.paused || !s.online || len(s.ops) == 0 {
		return
	}
	s.processing = true
	s.wg.Add(1)
	go s.drain()
}

// drain processes the queue head-first until empty, paused, or offline. A
// failing head entry is retried in place with exponential backoff; the loop
// never advances past it while retries remain.
func (s *Service) drain() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.paused || !s.online || len(s.ops) == 0 || s.ctx.Err() != nil {
			s.processing = false
			s.mu.Unlock()
			return
		}
		op := s.ops[0]
		s.mu.Unlock()

		err := s.apply(op)
		if err == nil {
			s.pop(op)
			continue
		}

		// op is only mutated by the drain loop, which is single-flight.
		op.Retries++
		if op.Retries >= s.cfg.MaxRetries {
			s.logger.Printf("[SyncQueue] dropping %s for %s %s after %d failed attempts: %v",
				op.Kind, op.Table, op.EntityID, op.Retries, err)
			s.pop(op)
			continue
		}

		if uerr := s.store.UpdateRetries(s.ctx, op.ID, op.Retries); uerr != nil {
			s.logger.Printf("[SyncQueue] failed to persist retry count for %s: %v", op.ID, uerr)
		}

		delay := s.backoff(op.Retries)
		s.logger.Printf("[SyncQueue] %s for %s %s failed (attempt %d): %v; retrying in %s",
			op.Kind, op.Table, op.EntityID, op.Retries, err, delay)
		s.clock.Sleep(s.ctx, delay)
	}
}

// backoff returns the delay before the given retry attempt:
// initial * 2^(retries-1), capped at the maximum.
func (s *Service) backoff(retries int) time.Duration {
	delay := s.cfg.InitialBackoff
	for i := 1; i < retries; i++ {
		delay *= 2
		if delay >= s.cfg.MaxBackoff {
			return s.cfg.MaxBackoff
		}
	}
	if delay > s.cfg.MaxBackoff {
		delay = s.cfg.MaxBackoff
	}
	return delay
}

// apply translates the head entry to the remote shape and sends it.
func (s *Service) apply(op *models.SyncOperation) error {
	switch op.Kind {
	case models.OpCreate, models.OpUpdate:
		row, err := Translate(op.Table, op.Payload)
		if err != nil {
			return err
		}
		return s.remote.Upsert(s.ctx, op.Table, row)
	case models.OpDelete:
		return s.remote.Delete(s.ctx, op.Table, op.EntityID)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// pop removes the head entry from the durable log and the in-memory list.
func (s *Service) pop(op *models.SyncOperation) {
	if err := s.store.Remove(s.ctx, op.ID); err != nil {
		s.logger.Printf("[SyncQueue] failed to remove sync operation %s from store: %v", op.ID, err)
	}
	s.mu.Lock()
	if len(s.ops) > 0 && s.ops[0].ID == op.ID {
		s.ops = s.ops[1:]
	}
	s.mu.Unlock()
}

// SetOnline records a connectivity transition. Going offline pauses the
// queue; an in-flight attempt finishes on its own and the next loop
// iteration halts. Coming back online always clears the pause, even with an
// empty queue, so a mutation enqueued after the reconnect drains without
// waiting for another transition.
func (s *Service) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if online == s.online {
		return
	}
	s.online = online

	if !online {
		s.paused = true
		return
	}
	s.paused = false
	s.maybeDrainLocked()
}

// Pause stops scheduling new drain attempts without clearing the queue.
func (s *Service) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume clears a pause and restarts draining if conditions allow.
func (s *Service) Resume() {
	s.mu.Lock()
	s.paused = false
	s.maybeDrainLocked()
	s.mu.Unlock()
}

// SyncNow forces an immediate drain if online with work pending. It does not
// bypass a backoff delay already in progress.
func (s *Service) SyncNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online || len(s.ops) == 0 {
		return
	}
	s.paused = false
	s.maybeDrainLocked()
}

// Reseed enqueues full-table snapshots in dependency order: decks and events
// carry no foreign keys, matches reference both, so matches go last and a
// remote enforcing referential integrity never sees a child before its
// parent. Entries use the create kind and rely on upsert idempotency for
// rows that already exist remotely.
func (s *Service) Reseed(ctx context.Context, decks []*models.Deck, events []*models.Event, matches []*models.Match) error {
	for _, d := range decks {
		if err := s.enqueueSnapshot(ctx, models.TableDecks, d.ID, d); err != nil {
			return err
		}
	}
	for _, e := range events {
		if err := s.enqueueSnapshot(ctx, models.TableEvents, e.ID, e); err != nil {
			return err
		}
	}
	for _, m := range matches {
		if err := s.enqueueSnapshot(ctx, models.TableMatches, m.ID, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueSnapshot(ctx context.Context, table models.Table, entityID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s %s: %w", table, entityID, err)
	}
	return s.Enqueue(ctx, &models.SyncOperation{
		EntityID: entityID,
		Kind:     models.OpCreate,
		Table:    table,
		Payload:  payload,
	})
}

// Status returns a read-only snapshot for display.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Pending:    len(s.ops),
		Processing: s.processing,
		Paused:     s.paused,
		Online:     s.online,
	}
}

// Close stops the drain loop and waits for it to exit. Pending operations
// stay in the durable log for the next run.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
