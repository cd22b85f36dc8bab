package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smp/internal/directory/mocks"
	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/servicegroup/models"
	"smp/internal/storage"
	"smp/internal/storage/memory"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/audit"
	auditmemory "smp/pkg/platform/audit/store/memory"
	"smp/pkg/platform/sentinel"
)

// =============================================================================
// Service Group Registry Test Suite
// =============================================================================
// Justification for unit tests: the create/delete sagas interleave directory
// calls, local writes and compensations. Failure injection on both sides is
// only practical with a mocked gateway and a faulty store.

type RegistrySuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	gateway    *mocks.MockGateway
	store      *faultyStore
	audit      *auditmemory.InMemoryStore
	bus        *eventbus.Bus[models.ServiceGroup]
	dependent  *recordingDependent
	registry   *Registry
	normalizer identifier.Normalizer
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.store = &faultyStore{Store: storage.NewCollection[models.ServiceGroup](memory.New(), "service_groups")}
	s.audit = auditmemory.NewInMemoryStore()
	s.bus = eventbus.New[models.ServiceGroup](audit.EntityServiceGroup)
	s.dependent = &recordingDependent{}

	var err error
	s.registry, err = New(s.store, s.gateway,
		WithAuditEmitter(auditEmitter{s.audit}),
		WithEventPublisher(s.bus),
		WithDependents(s.dependent),
	)
	s.Require().NoError(err)

	s.normalizer, err = identifier.New("peppol")
	s.Require().NoError(err)
}

func (s *RegistrySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RegistrySuite) participant(value string) identifier.ParticipantID {
	p, err := s.normalizer.Participant(identifier.ParticipantSchemeISO6523, value)
	s.Require().NoError(err)
	return p
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *RegistrySuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.gateway)
		s.ErrorContains(err, "service group store is required")
	})

	s.Run("nil gateway returns error", func() {
		_, err := New(s.store, nil)
		s.ErrorContains(err, "directory gateway is required")
	})
}

// =============================================================================
// Create Tests
// =============================================================================

func (s *RegistrySuite) TestCreate() {
	ctx := context.Background()

	s.Run("registers then persists", func() {
		p := s.participant("9915:create")
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)

		group, err := s.registry.Create(ctx, "alice", p, "<ext/>")
		s.Require().NoError(err)
		s.Equal(p.Key(), group.ID)

		stored, err := s.registry.GetByID(ctx, p)
		s.Require().NoError(err)
		s.Equal("alice", stored.OwnerID)
		s.Equal("<ext/>", stored.Extension)
	})

	s.Run("lookup ignores participant value case", func() {
		lower := s.participant("9915:xxx")
		s.gateway.EXPECT().Register(gomock.Any(), lower).Return(nil)
		_, err := s.registry.Create(ctx, "alice", lower, "e")
		s.Require().NoError(err)

		upper := s.participant("9915:XXX")
		group, err := s.registry.GetByID(ctx, upper)
		s.Require().NoError(err)
		s.Equal(lower.Key(), group.ID)
		s.Equal("alice", group.OwnerID)
		s.Equal("e", group.Extension)
	})

	s.Run("existing group is a conflict without directory call", func() {
		p := s.participant("9915:dup")
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil).Times(1)
		_, err := s.registry.Create(ctx, "alice", p, "")
		s.Require().NoError(err)

		_, err = s.registry.Create(ctx, "alice", p, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("blank owner is a validation error", func() {
		_, err := s.registry.Create(ctx, "", s.participant("9915:noowner"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("directory failure aborts before persisting", func() {
		p := s.participant("9915:syncfail")
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(sentinel.ErrUnavailable)

		_, err := s.registry.Create(ctx, "alice", p, "")
		s.True(dErrors.HasCode(err, dErrors.CodeSyncError))

		_, err = s.registry.GetByID(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("storage failure compensates with undo register", func() {
		p := s.participant("9915:storefail")
		s.store.insertErr = errors.New("disk full")
		defer func() { s.store.insertErr = nil }()

		gomock.InOrder(
			s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil),
			s.gateway.EXPECT().UndoRegister(gomock.Any(), p).Return(nil),
		)

		_, err := s.registry.Create(ctx, "alice", p, "")
		s.True(dErrors.HasCode(err, dErrors.CodeStorage))
	})

	s.Run("failed compensation surfaces the original error", func() {
		p := s.participant("9915:diverge")
		s.store.insertErr = errors.New("disk full")
		defer func() { s.store.insertErr = nil }()

		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)
		s.gateway.EXPECT().UndoRegister(gomock.Any(), p).Return(sentinel.ErrUnavailable)

		_, err := s.registry.Create(ctx, "alice", p, "")
		s.True(dErrors.HasCode(err, dErrors.CodeStorage))
		s.ErrorContains(err, "disk full")
	})

	s.Run("lost insert race keeps the directory entry", func() {
		p := s.participant("9915:race")
		s.store.insertErr = sentinel.ErrConflict
		defer func() { s.store.insertErr = nil }()

		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)

		_, err := s.registry.Create(ctx, "alice", p, "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("emits audit and created event", func() {
		p := s.participant("9915:observed")
		var seen []eventbus.EventType
		s.bus.Subscribe("recorder", func(_ context.Context, e eventbus.Event[models.ServiceGroup]) error {
			if e.Payload.ID == p.Key() {
				seen = append(seen, e.Type)
			}
			return nil
		})
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)

		_, err := s.registry.Create(ctx, "alice", p, "")
		s.Require().NoError(err)
		s.Equal([]eventbus.EventType{eventbus.CreatedEvent}, seen)

		records, err := s.audit.ListByKey(ctx, p.Key())
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(audit.OperationCreate, records[0].Operation)
		s.Equal(audit.OutcomeSuccess, records[0].Outcome)
	})
}

// =============================================================================
// Update Tests
// =============================================================================

func (s *RegistrySuite) TestUpdate() {
	ctx := context.Background()
	p := s.participant("9915:update")
	s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)
	_, err := s.registry.Create(ctx, "alice", p, "v1")
	s.Require().NoError(err)

	s.Run("identical values are unchanged", func() {
		change, err := s.registry.Update(ctx, p, "alice", "v1")
		s.Require().NoError(err)
		s.Equal(domain.Unchanged, change)
	})

	s.Run("new extension is changed", func() {
		change, err := s.registry.Update(ctx, p, "alice", "v2")
		s.Require().NoError(err)
		s.Equal(domain.Changed, change)

		group, err := s.registry.GetByID(ctx, p)
		s.Require().NoError(err)
		s.Equal("v2", group.Extension)
		s.Equal(p, group.Participant)
	})

	s.Run("absent group is unchanged", func() {
		change, err := s.registry.Update(ctx, s.participant("9915:nobody"), "alice", "x")
		s.Require().NoError(err)
		s.Equal(domain.Unchanged, change)
	})
}

// =============================================================================
// Delete Tests
// =============================================================================

func (s *RegistrySuite) TestDelete() {
	ctx := context.Background()

	create := func(value string) identifier.ParticipantID {
		p := s.participant(value)
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)
		_, err := s.registry.Create(ctx, "alice", p, "")
		s.Require().NoError(err)
		return p
	}

	s.Run("unregisters once and cascades to dependents", func() {
		p := create("9915:delete")
		s.gateway.EXPECT().Unregister(gomock.Any(), p).Return(nil).Times(1)

		change, err := s.registry.Delete(ctx, p)
		s.Require().NoError(err)
		s.Equal(domain.Changed, change)
		s.Contains(s.dependent.groups, p.Key())

		_, err = s.registry.GetByID(ctx, s.participant("9915:DELETE"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("absent group is unchanged", func() {
		change, err := s.registry.Delete(ctx, s.participant("9915:never"))
		s.Require().NoError(err)
		s.Equal(domain.Unchanged, change)
	})

	s.Run("directory failure leaves group untouched", func() {
		p := create("9915:unregfail")
		s.gateway.EXPECT().Unregister(gomock.Any(), p).Return(sentinel.ErrRejected)

		_, err := s.registry.Delete(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeSyncError))

		exists, err := s.registry.Exists(ctx, p)
		s.Require().NoError(err)
		s.True(exists)
		s.NotContains(s.dependent.groups, p.Key())
	})

	s.Run("zero rows deleted compensates and reports not found", func() {
		p := create("9915:vanished")
		s.store.zeroDeletes = true
		defer func() { s.store.zeroDeletes = false }()

		gomock.InOrder(
			s.gateway.EXPECT().Unregister(gomock.Any(), p).Return(nil),
			s.gateway.EXPECT().UndoUnregister(gomock.Any(), p).Return(nil),
		)

		_, err := s.registry.Delete(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cascade failure compensates", func() {
		p := create("9915:cascadefail")
		s.dependent.err = errors.New("metadata store down")
		defer func() { s.dependent.err = nil }()

		s.gateway.EXPECT().Unregister(gomock.Any(), p).Return(nil)
		s.gateway.EXPECT().UndoUnregister(gomock.Any(), p).Return(nil)

		_, err := s.registry.Delete(ctx, p)
		s.True(dErrors.HasCode(err, dErrors.CodeStorage))

		exists, err := s.registry.Exists(ctx, p)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("deleted event reaches subscribers", func() {
		p := create("9915:deleteevent")
		var deleted []string
		s.bus.Subscribe("cascade", func(_ context.Context, e eventbus.Event[models.ServiceGroup]) error {
			if e.Type == eventbus.DeletedEvent {
				deleted = append(deleted, e.Payload.ID)
			}
			return nil
		})
		s.gateway.EXPECT().Unregister(gomock.Any(), p).Return(nil)

		_, err := s.registry.Delete(ctx, p)
		s.Require().NoError(err)
		s.Equal([]string{p.Key()}, deleted)
	})
}

// =============================================================================
// Read Tests
// =============================================================================

func (s *RegistrySuite) TestReads() {
	ctx := context.Background()
	for _, c := range []struct{ owner, value string }{
		{"alice", "9915:a"},
		{"bob", "9915:b"},
		{"alice", "9915:c"},
	} {
		p := s.participant(c.value)
		s.gateway.EXPECT().Register(gomock.Any(), p).Return(nil)
		_, err := s.registry.Create(ctx, c.owner, p, "")
		s.Require().NoError(err)
	}

	s.Run("lists groups of owner", func() {
		groups, err := s.registry.GetAllOfOwner(ctx, "alice")
		s.Require().NoError(err)
		s.Len(groups, 2)
		for _, g := range groups {
			s.Equal("alice", g.OwnerID)
		}
	})

	s.Run("counts all groups", func() {
		n, err := s.registry.Count(ctx)
		s.Require().NoError(err)
		s.Equal(3, n)

		all, err := s.registry.GetAll(ctx)
		s.Require().NoError(err)
		s.Len(all, 3)
	})
}

// faultyStore injects storage failures around a real collection.
type faultyStore struct {
	Store
	insertErr   error
	zeroDeletes bool
}

func (f *faultyStore) Insert(ctx context.Context, g models.ServiceGroup) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.Store.Insert(ctx, g)
}

func (f *faultyStore) DeleteByKey(ctx context.Context, key string) (int, error) {
	if f.zeroDeletes {
		return 0, nil
	}
	return f.Store.DeleteByKey(ctx, key)
}

type recordingDependent struct {
	groups []string
	err    error
}

func (d *recordingDependent) DeleteAllOfGroup(_ context.Context, groupID string) (domain.Change, error) {
	if d.err != nil {
		return domain.Unchanged, d.err
	}
	d.groups = append(d.groups, groupID)
	return domain.Changed, nil
}

type auditEmitter struct {
	store *auditmemory.InMemoryStore
}

func (e auditEmitter) Emit(ctx context.Context, record audit.Record) error {
	return e.store.Append(ctx, record)
}
