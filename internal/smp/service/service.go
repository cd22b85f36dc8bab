package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	bcmodels "smp/internal/businesscard/models"
	"smp/internal/identifier"
	"smp/internal/owner"
	rdmodels "smp/internal/redirect/models"
	sgmodels "smp/internal/servicegroup/models"
	smmodels "smp/internal/servicemetadata/models"
	"smp/internal/smp/metrics"
	"smp/internal/smp/models"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/requestcontext"
)

var tracer = otel.Tracer("smp/internal/smp/service")

type GroupRegistry interface {
	Create(ctx context.Context, ownerID string, participant identifier.ParticipantID, extension string) (*sgmodels.ServiceGroup, error)
	Update(ctx context.Context, participant identifier.ParticipantID, ownerID, extension string) (domain.Change, error)
	Delete(ctx context.Context, participant identifier.ParticipantID) (domain.Change, error)
	GetByID(ctx context.Context, participant identifier.ParticipantID) (*sgmodels.ServiceGroup, error)
	GetAllOfOwner(ctx context.Context, ownerID string) ([]sgmodels.ServiceGroup, error)
}

type MetadataRegistry interface {
	GetByKey(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (*smmodels.ServiceMetadata, error)
	Merge(ctx context.Context, submitted smmodels.ServiceMetadata) (domain.MergeResult, error)
	Delete(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (domain.Change, error)
	AllOfGroup(ctx context.Context, groupID string) ([]smmodels.ServiceMetadata, error)
}

type RedirectRegistry interface {
	GetByKey(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (*rdmodels.Redirect, error)
	CreateOrUpdate(ctx context.Context, redirect rdmodels.Redirect) (domain.MergeResult, error)
	Delete(ctx context.Context, groupID string, docType identifier.DocumentTypeID) (domain.Change, error)
	AllOfGroup(ctx context.Context, groupID string) ([]rdmodels.Redirect, error)
}

type CardRegistry interface {
	CreateOrUpdate(ctx context.Context, group sgmodels.ServiceGroup, entities []bcmodels.Entity) (*bcmodels.BusinessCard, domain.MergeResult, error)
	GetByGroup(ctx context.Context, groupID string) (*bcmodels.BusinessCard, error)
	Delete(ctx context.Context, groupID string) (domain.Change, error)
}

// Service implements the publisher operations on top of the registries.
// It holds no entity state of its own.
type Service struct {
	normalizer identifier.Normalizer
	groups     GroupRegistry
	metadata   MetadataRegistry
	redirects  RedirectRegistry
	cards      CardRegistry
	auth       Authenticator
	locks      keyLocks
	groupLocks groupLocks
	publicURL  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublicURL sets the base of reference hrefs, e.g. "https://smp.example.com".
func WithPublicURL(u string) Option {
	return func(s *Service) {
		s.publicURL = strings.TrimRight(u, "/")
	}
}

// WithBusinessCards enables the business card operations.
func WithBusinessCards(cards CardRegistry) Option {
	return func(s *Service) {
		s.cards = cards
	}
}

// New constructs a Service.
func New(normalizer identifier.Normalizer, groups GroupRegistry, metadata MetadataRegistry, redirects RedirectRegistry, auth Authenticator, opts ...Option) (*Service, error) {
	switch {
	case normalizer == nil:
		return nil, errors.New("identifier normalizer is required")
	case groups == nil:
		return nil, errors.New("service group registry is required")
	case metadata == nil:
		return nil, errors.New("service metadata registry is required")
	case redirects == nil:
		return nil, errors.New("redirect registry is required")
	case auth == nil:
		return nil, errors.New("authenticator is required")
	}
	s := &Service{
		normalizer: normalizer,
		groups:     groups,
		metadata:   metadata,
		redirects:  redirects,
		auth:       auth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// GetServiceGroup returns the group of participantURI with references to
// every document type that has metadata or a redirect.
func (s *Service) GetServiceGroup(ctx context.Context, participantURI string) (view *models.ServiceGroupView, err error) {
	ctx, done := s.start(ctx, "get_service_group", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return nil, err
	}

	var (
		trees     []smmodels.ServiceMetadata
		redirects []rdmodels.Redirect
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trees, err = s.metadata.AllOfGroup(gctx, group.ID)
		return err
	})
	g.Go(func() error {
		var err error
		redirects, err = s.redirects.AllOfGroup(gctx, group.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	v := s.groupView(group, trees, redirects)
	return &v, nil
}

// SaveServiceGroup creates the group of participantURI owned by the caller,
// or updates it if the caller already owns it.
func (s *Service) SaveServiceGroup(ctx context.Context, participantURI string, input models.ServiceGroupInput, creds owner.Credentials) (change domain.Change, err error) {
	ctx, done := s.start(ctx, "save_service_group", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return domain.Unchanged, err
	}
	if err := s.matchParticipant(participant, input.Participant); err != nil {
		return domain.Unchanged, err
	}
	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return domain.Unchanged, err
	}

	unlock := s.groupLocks.lock(participant.Key())
	defer unlock()

	existing, err := s.groups.GetByID(ctx, participant)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		if _, err := s.groups.Create(ctx, user.ID, participant, input.Extension); err != nil {
			return domain.Unchanged, err
		}
		return domain.Changed, nil
	}
	if err != nil {
		return domain.Unchanged, err
	}
	if err := verifyOwnership(existing, user); err != nil {
		return domain.Unchanged, err
	}
	return s.groups.Update(ctx, participant, user.ID, input.Extension)
}

// DeleteServiceGroup removes the caller's group and everything under it.
// Deleting an absent group is Unchanged.
func (s *Service) DeleteServiceGroup(ctx context.Context, participantURI string, creds owner.Credentials) (change domain.Change, err error) {
	ctx, done := s.start(ctx, "delete_service_group", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return domain.Unchanged, err
	}
	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return domain.Unchanged, err
	}

	unlock := s.groupLocks.lock(participant.Key())
	defer unlock()

	group, err := s.groups.GetByID(ctx, participant)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return domain.Unchanged, nil
	}
	if err != nil {
		return domain.Unchanged, err
	}
	if err := verifyOwnership(group, user); err != nil {
		return domain.Unchanged, err
	}
	return s.groups.Delete(ctx, participant)
}

// GetServiceRegistration returns the redirect or the metadata stored for
// one document type of a group.
func (s *Service) GetServiceRegistration(ctx context.Context, participantURI, docTypeURI string) (view *models.RegistrationView, err error) {
	ctx, done := s.start(ctx, "get_service_registration",
		attribute.String("smp.participant", participantURI),
		attribute.String("smp.document_type", docTypeURI))
	defer func() { done(err) }()

	participant, docType, err := s.parseRegistration(participantURI, docTypeURI)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return nil, err
	}

	redirect, err := s.redirects.GetByKey(ctx, group.ID, docType)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	metadata, mErr := s.metadata.GetByKey(ctx, group.ID, docType)
	if mErr != nil && !dErrors.HasCode(mErr, dErrors.CodeNotFound) {
		return nil, mErr
	}

	switch {
	case redirect != nil && metadata != nil:
		s.logger.ErrorContext(ctx, "registration backs both a redirect and service metadata",
			"key", identifier.RegistrationKey(group.ID, docType),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration is both a redirect and service metadata")
	case redirect != nil:
		return &models.RegistrationView{Redirect: redirect}, nil
	case metadata != nil:
		return &models.RegistrationView{Metadata: metadata}, nil
	default:
		return nil, dErrors.New(dErrors.CodeNotFound, "service registration not found")
	}
}

// SaveServiceRegistration stores a redirect or merges service metadata for
// one document type of the caller's group. Either kind replaces the other.
func (s *Service) SaveServiceRegistration(ctx context.Context, participantURI, docTypeURI string, input models.RegistrationInput, creds owner.Credentials) (result domain.MergeResult, err error) {
	ctx, done := s.start(ctx, "save_service_registration",
		attribute.String("smp.participant", participantURI),
		attribute.String("smp.document_type", docTypeURI))
	defer func() { done(err) }()

	participant, docType, err := s.parseRegistration(participantURI, docTypeURI)
	if err != nil {
		return 0, err
	}
	if (input.Redirect == nil) == (input.Metadata == nil) {
		return 0, dErrors.New(dErrors.CodeBadRequest, "exactly one of redirect and service information is required")
	}

	var processes []smmodels.Process
	if m := input.Metadata; m != nil {
		if err := s.matchParticipant(participant, m.Participant); err != nil {
			return 0, err
		}
		bodyDocType, err := s.normalizer.DocumentType(m.DocumentType.Scheme, m.DocumentType.Value)
		if err != nil {
			return 0, err
		}
		if bodyDocType.Key() != docType.Key() {
			return 0, dErrors.New(dErrors.CodeBadRequest, "document type identifier in body does not match path")
		}
		processes, err = s.processes(m.Processes)
		if err != nil {
			return 0, err
		}
	}

	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}

	unlockGroup := s.groupLocks.rlock(participant.Key())
	defer unlockGroup()

	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return 0, err
	}
	if err := verifyOwnership(group, user); err != nil {
		return 0, err
	}

	unlock := s.locks.lock(identifier.RegistrationKey(group.ID, docType))
	defer unlock()

	if m := input.Metadata; m != nil {
		tree := smmodels.ServiceMetadata{
			ServiceGroupID: group.ID,
			DocumentTypeID: docType,
			Processes:      processes,
			Extension:      m.Extension,
		}
		if err := tree.Validate(); err != nil {
			return 0, err
		}
		return s.saveMetadata(ctx, tree)
	}

	redirect := rdmodels.Redirect{
		ServiceGroupID:          group.ID,
		DocumentTypeID:          docType,
		TargetHref:              input.Redirect.Href,
		SubjectUniqueIdentifier: input.Redirect.SubjectUniqueIdentifier,
		Certificate:             input.Redirect.Certificate,
		Extension:               input.Redirect.Extension,
	}
	if err := redirect.Validate(); err != nil {
		return 0, err
	}
	return s.saveRedirect(ctx, redirect)
}

// saveMetadata replaces a redirect on the same key with tree. A redirect
// removed before a failed merge is put back. Callers hold the key lock.
func (s *Service) saveMetadata(ctx context.Context, tree smmodels.ServiceMetadata) (domain.MergeResult, error) {
	prev, err := s.redirects.GetByKey(ctx, tree.ServiceGroupID, tree.DocumentTypeID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return 0, err
	}
	if prev != nil {
		if _, err := s.redirects.Delete(ctx, tree.ServiceGroupID, tree.DocumentTypeID); err != nil {
			return 0, err
		}
	}
	result, err := s.metadata.Merge(ctx, tree)
	if err != nil && prev != nil {
		if _, restoreErr := s.redirects.CreateOrUpdate(ctx, *prev); restoreErr != nil {
			s.logRestoreFailure(ctx, identifier.RegistrationKey(tree.ServiceGroupID, tree.DocumentTypeID), "redirect", restoreErr)
		}
	}
	return result, err
}

// saveRedirect replaces service metadata on the same key with redirect. The
// metadata removed before a failed write is put back. Callers hold the key
// lock.
func (s *Service) saveRedirect(ctx context.Context, redirect rdmodels.Redirect) (domain.MergeResult, error) {
	prev, err := s.metadata.GetByKey(ctx, redirect.ServiceGroupID, redirect.DocumentTypeID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return 0, err
	}
	if prev != nil {
		if _, err := s.metadata.Delete(ctx, redirect.ServiceGroupID, redirect.DocumentTypeID); err != nil {
			return 0, err
		}
	}
	result, err := s.redirects.CreateOrUpdate(ctx, redirect)
	if err != nil && prev != nil {
		if _, restoreErr := s.metadata.Merge(ctx, *prev); restoreErr != nil {
			s.logRestoreFailure(ctx, identifier.RegistrationKey(redirect.ServiceGroupID, redirect.DocumentTypeID), "service_metadata", restoreErr)
		}
	}
	return result, err
}

func (s *Service) logRestoreFailure(ctx context.Context, key, kind string, err error) {
	s.logger.ErrorContext(ctx, "failed to restore replaced registration",
		"key", key,
		"kind", kind,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

// DeleteServiceRegistration removes the metadata or else the redirect of
// one document type of the caller's group.
func (s *Service) DeleteServiceRegistration(ctx context.Context, participantURI, docTypeURI string, creds owner.Credentials) (err error) {
	ctx, done := s.start(ctx, "delete_service_registration",
		attribute.String("smp.participant", participantURI),
		attribute.String("smp.document_type", docTypeURI))
	defer func() { done(err) }()

	participant, docType, err := s.parseRegistration(participantURI, docTypeURI)
	if err != nil {
		return err
	}
	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return err
	}

	unlockGroup := s.groupLocks.rlock(participant.Key())
	defer unlockGroup()

	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return err
	}
	if err := verifyOwnership(group, user); err != nil {
		return err
	}

	unlock := s.locks.lock(identifier.RegistrationKey(group.ID, docType))
	defer unlock()

	change, err := s.metadata.Delete(ctx, group.ID, docType)
	if err != nil {
		return err
	}
	if change.IsChanged() {
		return nil
	}
	change, err = s.redirects.Delete(ctx, group.ID, docType)
	if err != nil {
		return err
	}
	if change.IsChanged() {
		return nil
	}
	return dErrors.New(dErrors.CodeNotFound, "service registration not found")
}

// GetCompleteServiceGroup returns a group with all its registrations.
func (s *Service) GetCompleteServiceGroup(ctx context.Context, participantURI string) (view *models.CompleteServiceGroupView, err error) {
	ctx, done := s.start(ctx, "get_complete_service_group", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return nil, err
	}

	var (
		trees     []smmodels.ServiceMetadata
		redirects []rdmodels.Redirect
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trees, err = s.metadata.AllOfGroup(gctx, group.ID)
		return err
	})
	g.Go(func() error {
		var err error
		redirects, err = s.redirects.AllOfGroup(gctx, group.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &models.CompleteServiceGroupView{
		ServiceGroup: s.groupView(group, trees, redirects),
		Metadata:     trees,
		Redirects:    redirects,
	}, nil
}

// ListOwnedServiceGroups lists the participants owned by userID. The caller
// must authenticate as userID.
func (s *Service) ListOwnedServiceGroups(ctx context.Context, userID string, creds owner.Credentials) (owned *models.OwnedServiceGroups, err error) {
	ctx, done := s.start(ctx, "list_owned_service_groups", attribute.String("smp.user", userID))
	defer func() { done(err) }()

	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if userID != user.LoginName && userID != user.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "requested user does not match the authenticated user")
	}
	groups, err := s.groups.GetAllOfOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	participants := make([]identifier.ParticipantID, 0, len(groups))
	for _, g := range groups {
		participants = append(participants, g.Participant)
	}
	return &models.OwnedServiceGroups{UserID: user.ID, Participants: participants}, nil
}

// GetBusinessCard returns the business card of a group.
func (s *Service) GetBusinessCard(ctx context.Context, participantURI string) (card *bcmodels.BusinessCard, err error) {
	ctx, done := s.start(ctx, "get_business_card", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	if err := s.requireCards(); err != nil {
		return nil, err
	}
	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return nil, err
	}
	return s.cards.GetByGroup(ctx, group.ID)
}

// SaveBusinessCard creates or replaces the business card of the caller's group.
func (s *Service) SaveBusinessCard(ctx context.Context, participantURI string, input models.BusinessCardInput, creds owner.Credentials) (result domain.MergeResult, err error) {
	ctx, done := s.start(ctx, "save_business_card", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	if err := s.requireCards(); err != nil {
		return 0, err
	}
	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return 0, err
	}
	if err := s.matchParticipant(participant, input.Participant); err != nil {
		return 0, err
	}
	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}

	unlock := s.groupLocks.rlock(participant.Key())
	defer unlock()

	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return 0, err
	}
	if err := verifyOwnership(group, user); err != nil {
		return 0, err
	}
	_, result, err = s.cards.CreateOrUpdate(ctx, *group, input.Entities)
	return result, err
}

// DeleteBusinessCard removes the business card of the caller's group.
func (s *Service) DeleteBusinessCard(ctx context.Context, participantURI string, creds owner.Credentials) (err error) {
	ctx, done := s.start(ctx, "delete_business_card", attribute.String("smp.participant", participantURI))
	defer func() { done(err) }()

	if err := s.requireCards(); err != nil {
		return err
	}
	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return err
	}
	ctx, user, err := s.authenticate(ctx, creds)
	if err != nil {
		return err
	}
	group, err := s.groups.GetByID(ctx, participant)
	if err != nil {
		return err
	}
	if err := verifyOwnership(group, user); err != nil {
		return err
	}
	change, err := s.cards.Delete(ctx, group.ID)
	if err != nil {
		return err
	}
	if !change.IsChanged() {
		return dErrors.New(dErrors.CodeNotFound, "business card not found")
	}
	return nil
}

// start opens a span and returns the function that closes it, records the
// outcome metric and logs server side failures.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "smp."+op)
	span.SetAttributes(attrs...)
	began := time.Now()
	return ctx, func(err error) {
		defer span.End()
		s.metrics.Observe(op, err, began)
		if err == nil {
			return
		}
		code := dErrors.GetCode(err)
		span.SetAttributes(attribute.String("smp.error_code", string(code)))
		if dErrors.IsClientError(code) {
			s.logger.DebugContext(ctx, "operation rejected",
				"operation", op,
				"code", string(code),
				"request_id", requestcontext.RequestID(ctx),
			)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "operation failed",
			"operation", op,
			"code", string(code),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// authenticate verifies creds and records the caller on the context.
func (s *Service) authenticate(ctx context.Context, creds owner.Credentials) (context.Context, *owner.User, error) {
	user, err := s.auth.Authenticate(ctx, creds)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return ctx, nil, err
		}
		return ctx, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate")
	}
	return requestcontext.WithUserID(ctx, user.ID), user, nil
}

func verifyOwnership(group *sgmodels.ServiceGroup, user *owner.User) error {
	if !group.IsOwnedBy(user.ID) {
		return dErrors.New(dErrors.CodeForbidden, "service group is owned by another user")
	}
	return nil
}

func (s *Service) parseParticipant(uri string) (identifier.ParticipantID, error) {
	return identifier.ParseParticipant(s.normalizer, uri)
}

func (s *Service) parseRegistration(participantURI, docTypeURI string) (identifier.ParticipantID, identifier.DocumentTypeID, error) {
	participant, err := s.parseParticipant(participantURI)
	if err != nil {
		return identifier.ParticipantID{}, identifier.DocumentTypeID{}, err
	}
	docType, err := identifier.ParseDocumentType(s.normalizer, docTypeURI)
	if err != nil {
		return identifier.ParticipantID{}, identifier.DocumentTypeID{}, err
	}
	return participant, docType, nil
}

// matchParticipant checks that a body participant normalizes to the path one.
func (s *Service) matchParticipant(path identifier.ParticipantID, body identifier.ID) error {
	normalized, err := s.normalizer.Participant(body.Scheme, body.Value)
	if err != nil {
		return err
	}
	if normalized.Key() != path.Key() {
		return dErrors.New(dErrors.CodeBadRequest, "participant identifier in body does not match path")
	}
	return nil
}

func (s *Service) processes(inputs []models.ProcessInput) ([]smmodels.Process, error) {
	processes := make([]smmodels.Process, 0, len(inputs))
	for _, in := range inputs {
		id, err := s.normalizer.Process(in.Process.Scheme, in.Process.Value)
		if err != nil {
			return nil, err
		}
		processes = append(processes, smmodels.Process{ProcessID: id, Endpoints: in.Endpoints, Extension: in.Extension})
	}
	return processes, nil
}

func (s *Service) requireCards() error {
	if s.cards == nil {
		return dErrors.New(dErrors.CodeNotFound, "business cards are not enabled")
	}
	return nil
}

func (s *Service) groupView(group *sgmodels.ServiceGroup, trees []smmodels.ServiceMetadata, redirects []rdmodels.Redirect) models.ServiceGroupView {
	docTypes := make(map[string]identifier.DocumentTypeID, len(trees)+len(redirects))
	for _, m := range trees {
		docTypes[m.DocumentTypeID.Key()] = m.DocumentTypeID
	}
	for _, r := range redirects {
		docTypes[r.DocumentTypeID.Key()] = r.DocumentTypeID
	}
	keys := make([]string, 0, len(docTypes))
	for k := range docTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	refs := make([]models.Reference, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, models.Reference{
			DocumentType: docTypes[k],
			Href:         s.publicURL + "/" + url.PathEscape(group.Participant.URIEncoded()) + "/services/" + url.PathEscape(k),
		})
	}
	return models.ServiceGroupView{
		Participant: group.Participant,
		Extension:   group.Extension,
		References:  refs,
	}
}
