package repository

import (
	"context"
	"encoding/json"
	"log"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Cloud-mode repositories decorate a local repository: every mutation writes
// locally first (awaited), then enqueues a remote mirror operation. The
// enqueue is fire-and-forget from the caller's perspective; a failed enqueue
// is logged and never rolls back the completed local write. The two steps are
// deliberately non-atomic (local is truth, remote is a lagging mirror).

func mirror(ctx context.Context, queue Enqueuer, table models.Table, kind models.OperationKind, entityID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[CloudRepo] failed to snapshot %s %s for sync: %v", table, entityID, err)
		return
	}
	op := &models.SyncOperation{
		EntityID: entityID,
		Kind:     kind,
		Table:    table,
		Payload:  data,
	}
	if err := queue.Enqueue(ctx, op); err != nil {
		log.Printf("[CloudRepo] failed to enqueue %s for %s %s: %v", kind, table, entityID, err)
	}
}

type deletePayload struct {
	ID string `json:"id"`
}

type cloudEventRepository struct {
	local   EventRepository
	matches MatchRepository
	queue   Enqueuer
	users   UserProvider
}

// NewCloudEventRepository wraps a local event repository with remote mirroring.
// Mutations require an authenticated owner. matches must read the same local
// store so event removal can mirror the cascaded match deletions.
func NewCloudEventRepository(local EventRepository, matches MatchRepository, queue Enqueuer, users UserProvider) EventRepository {
	return &cloudEventRepository{local: local, matches: matches, queue: queue, users: users}
}

func (r *cloudEventRepository) List(ctx context.Context, filter EventFilter) ([]*models.Event, error) {
	return r.local.List(ctx, filter)
}

func (r *cloudEventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	return r.local.Get(ctx, id)
}

func (r *cloudEventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	userID := r.users.CurrentUserID()
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	e := *event
	e.OwnerID = userID

	created, err := r.local.Create(ctx, &e)
	if err != nil {
		return nil, err
	}
	mirror(ctx, r.queue, models.TableEvents, models.OpCreate, created.ID, created)
	return created, nil
}

func (r *cloudEventRepository) Update(ctx context.Context, id string, update models.EventUpdate) (*models.Event, error) {
	if r.users.CurrentUserID() == "" {
		return nil, ErrAuthenticationRequired
	}
	updated, err := r.local.Update(ctx, id, update)
	if err != nil || updated == nil {
		return updated, err
	}
	mirror(ctx, r.queue, models.TableEvents, models.OpUpdate, id, updated)
	return updated, nil
}

func (r *cloudEventRepository) Remove(ctx context.Context, id string) (bool, error) {
	if r.users.CurrentUserID() == "" {
		return false, ErrAuthenticationRequired
	}

	// The local remove cascades to the event's matches; capture their ids
	// beforehand so the remote drops the children before the parent.
	children, err := r.matches.List(ctx, MatchFilter{EventID: id})
	if err != nil {
		return false, err
	}

	removed, err := r.local.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	for _, m := range children {
		mirror(ctx, r.queue, models.TableMatches, models.OpDelete, m.ID, deletePayload{ID: m.ID})
	}
	mirror(ctx, r.queue, models.TableEvents, models.OpDelete, id, deletePayload{ID: id})
	return true, nil
}

type cloudDeckRepository struct {
	local DeckRepository
	queue Enqueuer
	users UserProvider
}

// NewCloudDeckRepository wraps a local deck repository with remote mirroring.
func NewCloudDeckRepository(local DeckRepository, queue Enqueuer, users UserProvider) DeckRepository {
	return &cloudDeckRepository{local: local, queue: queue, users: users}
}

func (r *cloudDeckRepository) List(ctx context.Context, filter DeckFilter) ([]*models.Deck, error) {
	return r.local.List(ctx, filter)
}

func (r *cloudDeckRepository) Get(ctx context.Context, id string) (*models.Deck, error) {
	return r.local.Get(ctx, id)
}

func (r *cloudDeckRepository) Create(ctx context.Context, deck *models.Deck) (*models.Deck, error) {
	userID := r.users.CurrentUserID()
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	d := *deck
	d.OwnerID = userID

	created, err := r.local.Create(ctx, &d)
	if err != nil {
		return nil, err
	}
	mirror(ctx, r.queue, models.TableDecks, models.OpCreate, created.ID, created)
	return created, nil
}

func (r *cloudDeckRepository) Update(ctx context.Context, id string, update models.DeckUpdate) (*models.Deck, error) {
	if r.users.CurrentUserID() == "" {
		return nil, ErrAuthenticationRequired
	}
	updated, err := r.local.Update(ctx, id, update)
	if err != nil || updated == nil {
		return updated, err
	}
	mirror(ctx, r.queue, models.TableDecks, models.OpUpdate, id, updated)
	return updated, nil
}

func (r *cloudDeckRepository) Remove(ctx context.Context, id string) (bool, error) {
	if r.users.CurrentUserID() == "" {
		return false, ErrAuthenticationRequired
	}
	removed, err := r.local.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	mirror(ctx, r.queue, models.TableDecks, models.OpDelete, id, deletePayload{ID: id})
	return true, nil
}

type cloudMatchRepository struct {
	local MatchRepository
	queue Enqueuer
	users UserProvider
}

// NewCloudMatchRepository wraps a local match repository with remote mirroring.
func NewCloudMatchRepository(local MatchRepository, queue Enqueuer, users UserProvider) MatchRepository {
	return &cloudMatchRepository{local: local, queue: queue, users: users}
}

func (r *cloudMatchRepository) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	return r.local.List(ctx, filter)
}

func (r *cloudMatchRepository) Get(ctx context.Context, id string) (*models.Match, error) {
	return r.local.Get(ctx, id)
}

func (r *cloudMatchRepository) Create(ctx context.Context, match *models.Match) (*models.Match, error) {
	userID := r.users.CurrentUserID()
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	m := *match
	m.OwnerID = userID

	created, err := r.local.Create(ctx, &m)
	if err != nil {
		return nil, err
	}
	mirror(ctx, r.queue, models.TableMatches, models.OpCreate, created.ID, created)
	return created, nil
}

func (r *cloudMatchRepository) Update(ctx context.Context, id string, update models.MatchUpdate) (*models.Match, error) {
	if r.users.CurrentUserID() == "" {
		return nil, ErrAuthenticationRequired
	}
	updated, err := r.local.Update(ctx, id, update)
	if err != nil || updated == nil {
		return updated, err
	}
	mirror(ctx, r.queue, models.TableMatches, models.OpUpdate, id, updated)
	return updated, nil
}

func (r *cloudMatchRepository) Remove(ctx context.Context, id string) (bool, error) {
	if r.users.CurrentUserID() == "" {
		return false, ErrAuthenticationRequired
	}
	removed, err := r.local.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	mirror(ctx, r.queue, models.TableMatches, models.OpDelete, id, deletePayload{ID: id})
	return true, nil
}
