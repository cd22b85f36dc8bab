package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/servicemetadata/models"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit"
)

// Store is the persistence contract for service metadata trees.
type Store = storage.Collection[models.ServiceMetadata]

// Registry owns the service metadata trees. Every mutation, including the
// whole reconciliation of a merge, runs under the exclusive lock and is
// written with one storage call, so readers see either the old or the new
// tree.
type Registry struct {
	mu       sync.RWMutex
	metadata Store
	events   eventbus.Publisher[models.ServiceMetadata]
	auditor  audit.Emitter
	logger   *slog.Logger
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

func WithEventPublisher(p eventbus.Publisher[models.ServiceMetadata]) Option {
	return func(r *Registry) {
		r.events = p
	}
}

// New constructs a Registry.
func New(metadata Store, opts ...Option) (*Registry, error) {
	if metadata == nil {
		return nil, errors.New("service metadata store is required")
	}
	r := &Registry{metadata: metadata}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.events == nil {
		r.events = eventbus.New[models.ServiceMetadata](audit.EntityServiceMetadata, eventbus.WithLogger(r.logger))
	}
	return r, nil
}

// GetByKey returns the tree of (groupID, docType) or a not_found error.
func (r *Registry) GetByKey(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (*models.ServiceMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, err := r.metadata.FindByKey(ctx, identifier.RegistrationKey(groupID, docType))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service metadata not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load service metadata")
	}
	return m, nil
}

// Merge stores submitted as a new tree or reconciles it into the existing
// tree of the same key.
func (r *Registry) Merge(ctx context.Context, submitted models.ServiceMetadata) (domain.MergeResult, error) {
	if err := submitted.Validate(); err != nil {
		return 0, err
	}
	key := submitted.StorageKey()

	r.mu.Lock()
	result, stats, stored, err := r.mergeLocked(ctx, submitted)
	r.mu.Unlock()

	op := audit.OperationUpdate
	if result == domain.Created {
		op = audit.OperationCreate
	}
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceMetadata, op, key, err))
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to store service metadata")
	}

	r.logger.DebugContext(ctx, "service metadata merged",
		"key", key,
		"result", result.String(),
		"processes_added", stats.ProcessesAdded,
		"processes_removed", stats.ProcessesRemoved,
		"endpoints_added", stats.EndpointsAdded,
		"endpoints_removed", stats.EndpointsRemoved,
		"endpoints_updated", stats.EndpointsUpdated,
	)
	r.emit(ctx, audit.Success(audit.EntityServiceMetadata, op, key, statsDetails(stats)))

	eventType := eventbus.UpdatedEvent
	if result == domain.Created {
		eventType = eventbus.CreatedEvent
	}
	if err := r.events.Publish(ctx, eventType, stored); err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "service metadata stored but an observer failed")
	}
	return result, nil
}

func (r *Registry) mergeLocked(ctx context.Context, submitted models.ServiceMetadata) (domain.MergeResult, models.ReconcileStats, models.ServiceMetadata, error) {
	existing, err := r.metadata.FindByKey(ctx, submitted.StorageKey())
	if err != nil && !storage.IsNotFound(err) {
		return domain.Updated, models.ReconcileStats{}, submitted, err
	}
	if existing == nil {
		var stats models.ReconcileStats
		stats.ProcessesAdded = len(submitted.Processes)
		for _, p := range submitted.Processes {
			stats.EndpointsAdded += len(p.Endpoints)
		}
		return domain.Created, stats, submitted, r.metadata.Insert(ctx, submitted)
	}

	merged, stats := models.Reconcile(*existing, submitted)
	if _, err := r.metadata.Replace(ctx, merged); err != nil {
		return domain.Updated, stats, merged, err
	}
	return domain.Updated, stats, merged, nil
}

// Delete removes the whole tree of (groupID, docType).
func (r *Registry) Delete(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (domain.Change, error) {
	key := identifier.RegistrationKey(groupID, docType)

	r.mu.Lock()
	existing, err := r.metadata.FindByKey(ctx, key)
	if err != nil {
		r.mu.Unlock()
		if storage.IsNotFound(err) {
			return domain.Unchanged, nil
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load service metadata")
	}
	removed, err := r.metadata.DeleteByKey(ctx, key)
	r.mu.Unlock()
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceMetadata, audit.OperationDelete, key, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete service metadata")
	}
	if removed == 0 {
		return domain.Unchanged, nil
	}

	r.emit(ctx, audit.Success(audit.EntityServiceMetadata, audit.OperationDelete, key, nil))
	if err := r.events.Publish(ctx, eventbus.DeletedEvent, *existing); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "service metadata deleted but an observer failed")
	}
	return domain.Changed, nil
}

// DeleteAllOfGroup removes every tree of groupID. It is the cascade step of
// a service group delete.
func (r *Registry) DeleteAllOfGroup(ctx context.Context, groupID string) (domain.Change, error) {
	r.mu.Lock()
	trees, err := r.metadata.FindAll(ctx, ofGroup(groupID))
	if err != nil {
		r.mu.Unlock()
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list service metadata")
	}
	var deleted []models.ServiceMetadata
	for _, m := range trees {
		removed, err := r.metadata.DeleteByKey(ctx, m.StorageKey())
		if err != nil {
			r.mu.Unlock()
			r.emit(ctx, audit.Failure(audit.EntityServiceMetadata, audit.OperationDelete, m.StorageKey(), err))
			return domain.ChangeOf(len(deleted) > 0), dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete service metadata")
		}
		if removed > 0 {
			deleted = append(deleted, m)
		}
	}
	r.mu.Unlock()

	for _, m := range deleted {
		r.emit(ctx, audit.Success(audit.EntityServiceMetadata, audit.OperationDelete, m.StorageKey(),
			map[string]string{"cascade": "service_group"}))
		if err := r.events.Publish(ctx, eventbus.DeletedEvent, m); err != nil {
			return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "service metadata deleted but an observer failed")
		}
	}
	return domain.ChangeOf(len(deleted) > 0), nil
}

// DeleteProcess removes one process from a tree. Removing the last process
// removes the tree.
func (r *Registry) DeleteProcess(ctx context.Context, groupID string, docType identifier.DocumentTypeID, process identifier.ProcessID) (domain.Change, error) {
	key := identifier.RegistrationKey(groupID, docType)

	r.mu.Lock()
	existing, err := r.metadata.FindByKey(ctx, key)
	if err != nil {
		r.mu.Unlock()
		if storage.IsNotFound(err) {
			return domain.Unchanged, nil
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load service metadata")
	}
	remaining := make([]models.Process, 0, len(existing.Processes))
	for _, p := range existing.Processes {
		if p.ProcessID.Key() != process.Key() {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == len(existing.Processes) {
		r.mu.Unlock()
		return domain.Unchanged, nil
	}
	updated := *existing
	updated.Processes = remaining
	if len(remaining) == 0 {
		_, err = r.metadata.DeleteByKey(ctx, key)
	} else {
		_, err = r.metadata.Replace(ctx, updated)
	}
	r.mu.Unlock()
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceMetadata, audit.OperationUpdate, key, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete process")
	}

	details := map[string]string{"process_id": process.Key()}
	eventType := eventbus.UpdatedEvent
	op := audit.OperationUpdate
	if len(remaining) == 0 {
		eventType = eventbus.DeletedEvent
		op = audit.OperationDelete
	}
	r.emit(ctx, audit.Success(audit.EntityServiceMetadata, op, key, details))
	if err := r.events.Publish(ctx, eventType, updated); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "process deleted but an observer failed")
	}
	return domain.Changed, nil
}

// FindEndpoint resolves one endpoint of one process of a tree.
func (r *Registry) FindEndpoint(ctx context.Context, groupID string, docType identifier.DocumentTypeID, process identifier.ProcessID, transportProfile string) (*models.Endpoint, error) {
	m, err := r.GetByKey(ctx, groupID, docType)
	if err != nil {
		return nil, err
	}
	p, ok := m.Process(process)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "process not found")
	}
	e, ok := p.Endpoint(transportProfile)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "endpoint not found")
	}
	return &e, nil
}

// AllOfGroup lists the trees of groupID ordered by document type key.
func (r *Registry) AllOfGroup(ctx context.Context, groupID string) ([]models.ServiceMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trees, err := r.metadata.FindAll(ctx, ofGroup(groupID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list service metadata")
	}
	return trees, nil
}

// DocumentTypesOfGroup lists the document types that have metadata in groupID.
func (r *Registry) DocumentTypesOfGroup(ctx context.Context, groupID string) ([]identifier.DocumentTypeID, error) {
	trees, err := r.AllOfGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	docTypes := make([]identifier.DocumentTypeID, 0, len(trees))
	for _, m := range trees {
		docTypes = append(docTypes, m.DocumentTypeID)
	}
	return docTypes, nil
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, err := r.metadata.Count(ctx, nil)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count service metadata")
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

func ofGroup(groupID string) storage.Predicate[models.ServiceMetadata] {
	return func(m models.ServiceMetadata) bool { return m.ServiceGroupID == groupID }
}

func statsDetails(s models.ReconcileStats) map[string]string {
	return map[string]string{
		"processes_added":   strconv.Itoa(s.ProcessesAdded),
		"processes_removed": strconv.Itoa(s.ProcessesRemoved),
		"processes_updated": strconv.Itoa(s.ProcessesUpdated),
		"endpoints_added":   strconv.Itoa(s.EndpointsAdded),
		"endpoints_removed": strconv.Itoa(s.EndpointsRemoved),
		"endpoints_updated": strconv.Itoa(s.EndpointsUpdated),
	}
}
