package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/redirect/models"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit"
)

// Store is the persistence contract for redirects.
type Store = storage.Collection[models.Redirect]

// Registry owns redirects. A redirect is a flat record, so merging is a
// plain create-or-replace by key.
type Registry struct {
	mu        sync.RWMutex
	redirects Store
	events    eventbus.Publisher[models.Redirect]
	auditor   audit.Emitter
	logger    *slog.Logger
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

func WithEventPublisher(p eventbus.Publisher[models.Redirect]) Option {
	return func(r *Registry) {
		r.events = p
	}
}

// New constructs a Registry.
func New(redirects Store, opts ...Option) (*Registry, error) {
	if redirects == nil {
		return nil, errors.New("redirect store is required")
	}
	r := &Registry{redirects: redirects}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.events == nil {
		r.events = eventbus.New[models.Redirect](audit.EntityRedirect, eventbus.WithLogger(r.logger))
	}
	return r, nil
}

func (r *Registry) GetByKey(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (*models.Redirect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	redirect, err := r.redirects.FindByKey(ctx, identifier.RegistrationKey(groupID, docType))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "redirect not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load redirect")
	}
	return redirect, nil
}

// CreateOrUpdate stores redirect, replacing any redirect of the same key.
func (r *Registry) CreateOrUpdate(ctx context.Context, redirect models.Redirect) (domain.MergeResult, error) {
	if err := redirect.Validate(); err != nil {
		return 0, err
	}
	key := redirect.StorageKey()

	r.mu.Lock()
	prev, err := r.redirects.Replace(ctx, redirect)
	r.mu.Unlock()

	result := domain.Created
	op := audit.OperationCreate
	if prev != nil {
		result = domain.Updated
		op = audit.OperationUpdate
	}
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityRedirect, op, key, err))
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store redirect")
	}

	r.emit(ctx, audit.Success(audit.EntityRedirect, op, key, map[string]string{"target_href": redirect.TargetHref}))
	eventType := eventbus.CreatedEvent
	if result == domain.Updated {
		eventType = eventbus.UpdatedEvent
	}
	if err := r.events.Publish(ctx, eventType, redirect); err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "redirect stored but an observer failed")
	}
	return result, nil
}

// Delete removes the redirect of (groupID, docType).
func (r *Registry) Delete(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (domain.Change, error) {
	key := identifier.RegistrationKey(groupID, docType)

	r.mu.Lock()
	existing, err := r.redirects.FindByKey(ctx, key)
	if err != nil {
		r.mu.Unlock()
		if storage.IsNotFound(err) {
			return domain.Unchanged, nil
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load redirect")
	}
	removed, err := r.redirects.DeleteByKey(ctx, key)
	r.mu.Unlock()
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityRedirect, audit.OperationDelete, key, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete redirect")
	}
	if removed == 0 {
		return domain.Unchanged, nil
	}

	r.emit(ctx, audit.Success(audit.EntityRedirect, audit.OperationDelete, key, nil))
	if err := r.events.Publish(ctx, eventbus.DeletedEvent, *existing); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "redirect deleted but an observer failed")
	}
	return domain.Changed, nil
}

// DeleteAllOfGroup removes every redirect of groupID.
func (r *Registry) DeleteAllOfGroup(ctx context.Context, groupID string) (domain.Change, error) {
	r.mu.Lock()
	redirects, err := r.redirects.FindAll(ctx, ofGroup(groupID))
	if err != nil {
		r.mu.Unlock()
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list redirects")
	}
	var deleted []models.Redirect
	for _, redirect := range redirects {
		removed, err := r.redirects.DeleteByKey(ctx, redirect.StorageKey())
		if err != nil {
			r.mu.Unlock()
			r.emit(ctx, audit.Failure(audit.EntityRedirect, audit.OperationDelete, redirect.StorageKey(), err))
			return domain.ChangeOf(len(deleted) > 0), dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete redirect")
		}
		if removed > 0 {
			deleted = append(deleted, redirect)
		}
	}
	r.mu.Unlock()

	for _, redirect := range deleted {
		r.emit(ctx, audit.Success(audit.EntityRedirect, audit.OperationDelete, redirect.StorageKey(),
			map[string]string{"cascade": "service_group"}))
		if err := r.events.Publish(ctx, eventbus.DeletedEvent, redirect); err != nil {
			return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "redirect deleted but an observer failed")
		}
	}
	return domain.ChangeOf(len(deleted) > 0), nil
}

// AllOfGroup lists the redirects of groupID ordered by document type key.
func (r *Registry) AllOfGroup(ctx context.Context, groupID string) ([]models.Redirect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	redirects, err := r.redirects.FindAll(ctx, ofGroup(groupID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list redirects")
	}
	return redirects, nil
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, err := r.redirects.Count(ctx, nil)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count redirects")
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

func ofGroup(groupID string) storage.Predicate[models.Redirect] {
	return func(r models.Redirect) bool { return r.ServiceGroupID == groupID }
}
