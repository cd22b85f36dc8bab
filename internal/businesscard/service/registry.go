package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"smp/internal/businesscard/models"
	"smp/internal/eventbus"
	sgmodels "smp/internal/servicegroup/models"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit"
)

// Store is the persistence contract for business cards.
type Store = storage.Collection[models.BusinessCard]

// Registry owns business cards, one per service group.
type Registry struct {
	mu      sync.RWMutex
	cards   Store
	events  eventbus.Publisher[models.BusinessCard]
	auditor audit.Emitter
	logger  *slog.Logger
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithAuditEmitter(emitter audit.Emitter) Option {
	return func(r *Registry) {
		r.auditor = emitter
	}
}

func WithEventPublisher(p eventbus.Publisher[models.BusinessCard]) Option {
	return func(r *Registry) {
		r.events = p
	}
}

// New constructs a Registry.
func New(cards Store, opts ...Option) (*Registry, error) {
	if cards == nil {
		return nil, errors.New("business card store is required")
	}
	r := &Registry{cards: cards}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.events == nil {
		r.events = eventbus.New[models.BusinessCard](audit.EntityBusinessCard, eventbus.WithLogger(r.logger))
	}
	return r, nil
}

// SubscribeTo removes the card of every deleted service group.
func (r *Registry) SubscribeTo(groups eventbus.Subscriber[sgmodels.ServiceGroup]) {
	groups.Subscribe("business_card_cascade", func(ctx context.Context, e eventbus.Event[sgmodels.ServiceGroup]) error {
		if e.Type != eventbus.DeletedEvent {
			return nil
		}
		_, err := r.Delete(ctx, e.Payload.ID)
		return err
	})
}

// CreateOrUpdate stores the card of group, replacing an existing one in
// place.
func (r *Registry) CreateOrUpdate(ctx context.Context, group sgmodels.ServiceGroup, entities []models.Entity) (*models.BusinessCard, domain.MergeResult, error) {
	card, err := models.NewBusinessCard(group.ID, entities)
	if err != nil {
		return nil, 0, err
	}

	r.mu.Lock()
	prev, err := r.cards.Replace(ctx, *card)
	r.mu.Unlock()

	result := domain.Created
	op := audit.OperationCreate
	if prev != nil {
		result = domain.Updated
		op = audit.OperationUpdate
	}
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityBusinessCard, op, card.ID, err))
		return nil, 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store business card")
	}

	r.emit(ctx, audit.Success(audit.EntityBusinessCard, op, card.ID,
		map[string]string{"entities": strconv.Itoa(len(card.Entities))}))
	eventType := eventbus.CreatedEvent
	if result == domain.Updated {
		eventType = eventbus.UpdatedEvent
	}
	if err := r.events.Publish(ctx, eventType, *card); err != nil {
		return card, result, dErrors.Wrap(err, dErrors.CodeInternal, "business card stored but an observer failed")
	}
	return card, result, nil
}

// GetByGroup returns the card of groupID or a not_found error.
func (r *Registry) GetByGroup(ctx context.Context, groupID string) (*models.BusinessCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, err := r.cards.FindByKey(ctx, groupID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "business card not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load business card")
	}
	return card, nil
}

// Delete removes the card of groupID. Unchanged if there is none.
func (r *Registry) Delete(ctx context.Context, groupID string) (domain.Change, error) {
	r.mu.Lock()
	existing, err := r.cards.FindByKey(ctx, groupID)
	if err != nil {
		r.mu.Unlock()
		if storage.IsNotFound(err) {
			return domain.Unchanged, nil
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load business card")
	}
	removed, err := r.cards.DeleteByKey(ctx, groupID)
	r.mu.Unlock()
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityBusinessCard, audit.OperationDelete, groupID, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete business card")
	}
	if removed == 0 {
		return domain.Unchanged, nil
	}

	r.emit(ctx, audit.Success(audit.EntityBusinessCard, audit.OperationDelete, groupID, nil))
	if err := r.events.Publish(ctx, eventbus.DeletedEvent, *existing); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "business card deleted but an observer failed")
	}
	return domain.Changed, nil
}

func (r *Registry) GetAll(ctx context.Context) ([]models.BusinessCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards, err := r.cards.FindAll(ctx, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list business cards")
	}
	return cards, nil
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, err := r.cards.Count(ctx, nil)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count business cards")
	}
	return n, nil
}

func (r *Registry) emit(ctx context.Context, record audit.Record) {
	if r.auditor == nil {
		return
	}
	if err := r.auditor.Emit(ctx, record); err != nil {
		r.logger.WarnContext(ctx, "failed to emit audit record",
			"entity", record.EntityType,
			"key", record.Key,
			"error", err,
		)
	}
}
