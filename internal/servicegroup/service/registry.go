package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"smp/internal/directory"
	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/servicegroup/metrics"
	"smp/internal/servicegroup/models"
	"smp/internal/storage"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit"
	"smp/pkg/platform/sentinel"
	"smp/pkg/requestcontext"
)

// Store is the persistence contract for service groups.
type Store = storage.Collection[models.ServiceGroup]

// Dependent owns rows keyed to a service group. Deleting a group cascades to
// every registered dependent before the group row itself is removed.
type Dependent interface {
	DeleteAllOfGroup(ctx context.Context, groupID string) (domain.Change, error)
}

// Registry owns service groups and keeps the directory in step with them.
//
// Mutations run as a two step saga: the directory call happens first with no
// lock held, then the local write under the registry lock. A failed local
// write is compensated with the matching undo call.
type Registry struct {
	mu         sync.RWMutex
	groups     Store
	gateway    directory.Gateway
	dependents []Dependent
	events     eventbus.Publisher[models.ServiceGroup]
	auditor    audit.Emitter
	metrics    *metrics.Metrics
	logger     *slog.Logger
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithEventPublisher sets the bus notified after every committed mutation.
func WithEventPublisher(p eventbus.Publisher[models.ServiceGroup]) Option {
	return func(r *Registry) {
		r.events = p
	}
}

// WithDependents appends registries whose rows are removed on group delete,
// in the given order.
func WithDependents(deps ...Dependent) Option {
	return func(r *Registry) {
		r.dependents = append(r.dependents, deps...)
	}
}

// New constructs a Registry.
func New(groups Store, gateway directory.Gateway, opts ...Option) (*Registry, error) {
	if groups == nil {
		return nil, errors.New("service group store is required")
	}
	if gateway == nil {
		return nil, errors.New("directory gateway is required")
	}
	r := &Registry{groups: groups, gateway: gateway}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.events == nil {
		r.events = eventbus.New[models.ServiceGroup](audit.EntityServiceGroup, eventbus.WithLogger(r.logger))
	}
	return r, nil
}

// Create registers the participant with the directory and persists the
// group. Returns conflict if a group for the participant already exists.
func (r *Registry) Create(ctx context.Context, ownerID string, participant identifier.ParticipantID, extension string) (*models.ServiceGroup, error) {
	start := time.Now()
	defer r.metrics.ObserveSaga("create", start)

	group, err := models.NewServiceGroup(ownerID, participant, extension)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	exists, err := r.Exists(ctx, participant)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, dErrors.New(dErrors.CodeConflict, "service group already exists")
	}

	// The request deadline bounds the directory RPC only. Once it returns,
	// the local step and any compensation must run to completion.
	sagaCtx := context.WithoutCancel(ctx)

	if err := r.gateway.Register(ctx, participant); err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceGroup, audit.OperationCreate, group.ID, err))
		return nil, dErrors.Wrap(err, dErrors.CodeSyncError, "failed to register participant with directory")
	}

	r.mu.Lock()
	err = r.groups.Insert(sagaCtx, *group)
	r.mu.Unlock()
	if err != nil {
		r.emit(sagaCtx, audit.Failure(audit.EntityServiceGroup, audit.OperationCreate, group.ID, err))
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent create won the insert; its directory entry must stay.
			return nil, dErrors.New(dErrors.CodeConflict, "service group already exists")
		}
		r.compensate(sagaCtx, "undo_register", group.ID, func(c context.Context) error {
			return r.gateway.UndoRegister(c, participant)
		})
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to persist service group")
	}

	r.logger.InfoContext(ctx, "service group created",
		"service_group_id", group.ID,
		"owner_id", group.OwnerID,
		"request_id", requestcontext.RequestID(ctx),
	)
	r.emit(sagaCtx, audit.Success(audit.EntityServiceGroup, audit.OperationCreate, group.ID, map[string]string{"owner_id": group.OwnerID}))
	r.metrics.IncrementCreated()

	if err := r.events.Publish(sagaCtx, eventbus.CreatedEvent, *group); err != nil {
		return group, dErrors.Wrap(err, dErrors.CodeInternal, "service group created but an observer failed")
	}
	return group, nil
}

// Update changes owner and extension. The directory tracks existence only,
// so no gateway call is made. Returns Unchanged when the group is absent or
// already carries the given values.
func (r *Registry) Update(ctx context.Context, participant identifier.ParticipantID, ownerID, extension string) (domain.Change, error) {
	if ownerID == "" {
		return domain.Unchanged, dErrors.New(dErrors.CodeValidation, "owner is required")
	}

	r.mu.Lock()
	current, err := r.groups.FindByKey(ctx, participant.Key())
	if err != nil {
		r.mu.Unlock()
		if storage.IsNotFound(err) {
			return domain.Unchanged, nil
		}
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load service group")
	}
	if current.OwnerID == ownerID && current.Extension == extension {
		r.mu.Unlock()
		return domain.Unchanged, nil
	}
	updated := current.With(ownerID, extension)
	_, err = r.groups.Replace(ctx, updated)
	r.mu.Unlock()
	if err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceGroup, audit.OperationUpdate, updated.ID, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update service group")
	}

	r.emit(ctx, audit.Success(audit.EntityServiceGroup, audit.OperationUpdate, updated.ID, map[string]string{"owner_id": ownerID}))
	if err := r.events.Publish(ctx, eventbus.UpdatedEvent, updated); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "service group updated but an observer failed")
	}
	return domain.Changed, nil
}

// Delete unregisters the participant, cascades to dependents and removes
// the group row. Deleting an absent group returns Unchanged.
func (r *Registry) Delete(ctx context.Context, participant identifier.ParticipantID) (domain.Change, error) {
	start := time.Now()
	defer r.metrics.ObserveSaga("delete", start)

	group, err := r.find(ctx, participant)
	if err != nil {
		return domain.Unchanged, err
	}
	if group == nil {
		return domain.Unchanged, nil
	}

	sagaCtx := context.WithoutCancel(ctx)

	if err := r.gateway.Unregister(ctx, participant); err != nil {
		r.emit(ctx, audit.Failure(audit.EntityServiceGroup, audit.OperationDelete, group.ID, err))
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeSyncError, "failed to unregister participant from directory")
	}

	undo := func(c context.Context) error {
		return r.gateway.UndoUnregister(c, participant)
	}

	for _, dep := range r.dependents {
		if _, err := dep.DeleteAllOfGroup(sagaCtx, group.ID); err != nil {
			r.emit(sagaCtx, audit.Failure(audit.EntityServiceGroup, audit.OperationDelete, group.ID, err))
			r.compensate(sagaCtx, "undo_unregister", group.ID, undo)
			return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete service group dependents")
		}
	}

	r.mu.Lock()
	removed, err := r.groups.DeleteByKey(sagaCtx, group.ID)
	r.mu.Unlock()
	if err != nil {
		r.emit(sagaCtx, audit.Failure(audit.EntityServiceGroup, audit.OperationDelete, group.ID, err))
		r.compensate(sagaCtx, "undo_unregister", group.ID, undo)
		return domain.Unchanged, dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete service group")
	}
	if removed == 0 {
		r.compensate(sagaCtx, "undo_unregister", group.ID, undo)
		return domain.Unchanged, dErrors.New(dErrors.CodeNotFound, "service group not found")
	}

	r.logger.InfoContext(ctx, "service group deleted",
		"service_group_id", group.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	r.emit(sagaCtx, audit.Success(audit.EntityServiceGroup, audit.OperationDelete, group.ID, nil))
	r.metrics.IncrementDeleted()

	if err := r.events.Publish(sagaCtx, eventbus.DeletedEvent, *group); err != nil {
		return domain.Changed, dErrors.Wrap(err, dErrors.CodeInternal, "service group deleted but an observer failed")
	}
	return domain.Changed, nil
}

// GetByID returns the group of participant or a not_found error.
func (r *Registry) GetByID(ctx context.Context, participant identifier.ParticipantID) (*models.ServiceGroup, error) {
	group, err := r.find(ctx, participant)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "service group not found")
	}
	return group, nil
}

func (r *Registry) Exists(ctx context.Context, participant identifier.ParticipantID) (bool, error) {
	group, err := r.find(ctx, participant)
	if err != nil {
		return false, err
	}
	return group != nil, nil
}

// GetAllOfOwner lists the groups owned by ownerID, ordered by id.
func (r *Registry) GetAllOfOwner(ctx context.Context, ownerID string) ([]models.ServiceGroup, error) {
	return r.list(ctx, func(g models.ServiceGroup) bool { return g.OwnerID == ownerID })
}

func (r *Registry) GetAll(ctx context.Context) ([]models.ServiceGroup, error) {
	return r.list(ctx, nil)
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, err := r.groups.Count(ctx, nil)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count service groups")
	}
	return n, nil
}

func (r *Registry) find(ctx context.Context, participant identifier.ParticipantID) (*models.ServiceGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.groups.FindByKey(ctx, participant.Key())
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load service group")
	}
	return group, nil
}

func (r *Registry) list(ctx context.Context, pred storage.Predicate[models.ServiceGroup]) ([]models.ServiceGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups, err := r.groups.FindAll(ctx, pred)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list service groups")
	}
	return groups, nil
}

// compensate runs a best-effort undo. A failure here is the one state in
// which directory and storage disagree, so it is logged loudly and counted.
func (r *Registry) compensate(ctx context.Context, op, groupID string, undo func(context.Context) error) {
	if err := undo(ctx); err != nil {
		r.metrics.IncrementCompensationFailure(op)
		r.logger.ErrorContext(ctx, "directory compensation failed",
			"operation", op,
			"service_group_id", groupID,
			"directory_divergence", true,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
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
