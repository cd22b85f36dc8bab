package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	bcmodels "smp/internal/businesscard/models"
	bcservice "smp/internal/businesscard/service"
	"smp/internal/directory"
	"smp/internal/eventbus"
	"smp/internal/identifier"
	"smp/internal/owner"
	ownerstore "smp/internal/owner/store"
	"smp/internal/platform/metrics"
	rdmodels "smp/internal/redirect/models"
	rdservice "smp/internal/redirect/service"
	sgmodels "smp/internal/servicegroup/models"
	sgservice "smp/internal/servicegroup/service"
	smmodels "smp/internal/servicemetadata/models"
	smservice "smp/internal/servicemetadata/service"
	"smp/internal/smp/models"
	"smp/internal/smp/service"
	"smp/internal/storage"
	"smp/internal/storage/memory"
	"smp/pkg/platform/audit"
	"smp/pkg/testutil"
)

const (
	participant = "iso6523-actorid-upis::9915:acme"
	docType     = "busdox-docid-qns::urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##UBL-2.1"
	password    = "correct horse"
)

type HandlerSuite struct {
	suite.Suite
	hash   string
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupSuite() {
	hash, err := owner.HashPassword(password)
	s.Require().NoError(err)
	s.hash = hash
}

func (s *HandlerSuite) SetupTest() {
	store := memory.New()
	metadata, err := smservice.New(storage.NewCollection[smmodels.ServiceMetadata](store, "service_metadata"))
	s.Require().NoError(err)
	redirects, err := rdservice.New(storage.NewCollection[rdmodels.Redirect](store, "redirects"))
	s.Require().NoError(err)
	cards, err := bcservice.New(storage.NewCollection[bcmodels.BusinessCard](store, "business_cards"))
	s.Require().NoError(err)

	groupEvents := eventbus.New[sgmodels.ServiceGroup](audit.EntityServiceGroup)
	cards.SubscribeTo(groupEvents)
	groups, err := sgservice.New(storage.NewCollection[sgmodels.ServiceGroup](store, "service_groups"), directory.Noop{},
		sgservice.WithEventPublisher(groupEvents),
		sgservice.WithDependents(metadata, redirects),
	)
	s.Require().NoError(err)

	auth, err := owner.NewAuthenticator(ownerstore.NewInMemory(
		owner.User{ID: "alice", LoginName: "alice", PasswordHash: s.hash},
		owner.User{ID: "bob", LoginName: "bob", PasswordHash: s.hash},
	))
	s.Require().NoError(err)

	normalizer, err := identifier.New("peppol")
	s.Require().NoError(err)
	svc, err := service.New(normalizer, groups, metadata, redirects, auth,
		service.WithBusinessCards(cards),
		service.WithPublicURL("https://smp.example.com"),
	)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger, metrics.New(prometheus.NewRegistry()), 5*time.Second)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request, user string) *httptest.ResponseRecorder {
	if user != "" {
		req = testutil.WithBasicAuth(req, user, password)
	}
	return testutil.DoRequest(s.router, req)
}

func groupPath() string {
	return "/" + url.PathEscape(participant)
}

func registrationPath() string {
	return groupPath() + "/services/" + url.PathEscape(docType)
}

func groupBody() models.ServiceGroupInput {
	return models.ServiceGroupInput{Participant: identifier.ID{Scheme: "iso6523-actorid-upis", Value: "9915:ACME"}}
}

func metadataBody(endpointURL string) models.RegistrationInput {
	return models.RegistrationInput{Metadata: &models.MetadataInput{
		Participant:  identifier.ID{Scheme: "iso6523-actorid-upis", Value: "9915:acme"},
		DocumentType: identifier.ID{Scheme: "busdox-docid-qns", Value: "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2::Invoice##UBL-2.1"},
		Processes: []models.ProcessInput{{
			Process:   identifier.ID{Scheme: "cenbii-procid-ubl", Value: "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"},
			Endpoints: []smmodels.Endpoint{{TransportProfile: "peppol-transport-as4-v2_0", EndpointReference: endpointURL}},
		}},
	}}
}

func (s *HandlerSuite) createGroup() {
	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, groupPath(), groupBody()), "alice")
	testutil.AssertStatusOK(s.T(), rec)
}

func (s *HandlerSuite) TestServiceGroupLifecycle() {
	t := s.T()

	rec := s.do(testutil.NewJSONRequest(t, http.MethodPut, groupPath(), groupBody()), "alice")
	testutil.AssertStatusOK(t, rec)
	testutil.AssertJSONContains(t, rec, "changed", true)

	rec = s.do(testutil.NewJSONRequest(t, http.MethodPut, groupPath(), groupBody()), "alice")
	testutil.AssertJSONContains(t, rec, "changed", false)

	rec = s.do(testutil.NewRequest(t, http.MethodGet, "/iso6523-actorid-upis::9915:ACME"), "")
	testutil.AssertStatusOK(t, rec)
	view := testutil.UnmarshalResponse[models.ServiceGroupView](t, rec)
	s.Equal("9915:acme", view.Participant.Value)

	rec = s.do(testutil.NewRequest(t, http.MethodDelete, groupPath()), "alice")
	testutil.AssertStatusOK(t, rec)
	testutil.AssertJSONContains(t, rec, "changed", true)

	rec = s.do(testutil.NewRequest(t, http.MethodGet, groupPath()), "")
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestMutationsRequireCredentials() {
	t := s.T()

	rec := s.do(testutil.NewJSONRequest(t, http.MethodPut, groupPath(), groupBody()), "")
	testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	s.NotEmpty(rec.Header().Get("WWW-Authenticate"))

	req := testutil.NewJSONRequest(t, http.MethodPut, groupPath(), groupBody())
	req.SetBasicAuth("alice", "wrong")
	rec = testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestOwnershipIsEnforced() {
	t := s.T()
	s.createGroup()

	rec := s.do(testutil.NewRequest(t, http.MethodDelete, groupPath()), "bob")
	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")

	rec = s.do(testutil.NewRequest(t, http.MethodGet, "/list/alice"), "bob")
	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")

	rec = s.do(testutil.NewRequest(t, http.MethodGet, "/list/alice"), "alice")
	testutil.AssertStatusOK(t, rec)
	owned := testutil.UnmarshalResponse[models.OwnedServiceGroups](t, rec)
	s.Len(owned.Participants, 1)
}

func (s *HandlerSuite) TestServiceRegistration() {
	t := s.T()
	s.createGroup()

	rec := s.do(testutil.NewJSONRequest(t, http.MethodPut, registrationPath(), metadataBody("https://ap.example.com/as4")), "alice")
	testutil.AssertStatus(t, rec, http.StatusCreated)

	rec = s.do(testutil.NewJSONRequest(t, http.MethodPut, registrationPath(), metadataBody("https://ap2.example.com/as4")), "alice")
	testutil.AssertStatusOK(t, rec)
	testutil.AssertJSONContains(t, rec, "result", "updated")

	rec = s.do(testutil.NewRequest(t, http.MethodGet, registrationPath()), "")
	testutil.AssertStatusOK(t, rec)
	view := testutil.UnmarshalResponse[models.RegistrationView](t, rec)
	s.Require().NotNil(view.Metadata)
	s.Equal("https://ap2.example.com/as4", view.Metadata.Processes[0].Endpoints[0].EndpointReference)

	rec = s.do(testutil.NewRequest(t, http.MethodGet, groupPath()), "")
	group := testutil.UnmarshalResponse[models.ServiceGroupView](t, rec)
	s.Require().Len(group.References, 1)
	s.Equal("https://smp.example.com/"+participant+"/services/"+url.PathEscape(docType), group.References[0].Href)

	rec = s.do(testutil.NewRequest(t, http.MethodDelete, registrationPath()), "alice")
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	rec = s.do(testutil.NewRequest(t, http.MethodDelete, registrationPath()), "alice")
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestSaveServiceRegistrationBadRequests() {
	t := s.T()
	s.createGroup()

	rec := s.do(testutil.NewRequestWithBody(t, http.MethodPut, registrationPath(), `{"unknown":true}`), "alice")
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")

	rec = s.do(testutil.NewRequestWithBody(t, http.MethodPut, registrationPath(), `{}`), "alice")
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")

	other := "/" + url.PathEscape(participant) + "/services/" + url.PathEscape("busdox-docid-qns::other")
	rec = s.do(testutil.NewJSONRequest(t, http.MethodPut, other, metadataBody("https://ap.example.com/as4")), "alice")
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")

	rec = s.do(testutil.NewRequest(t, http.MethodGet, "/no-separator"), "")
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestEscapedSlashStaysInParameter() {
	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/iso6523-actorid-upis::9915%2Facme"), "")
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestRejectsNonJSONBodies() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPut, groupPath(), "<ServiceGroup/>")
	req.Header.Set("Content-Type", "application/xml")
	rec := s.do(req, "alice")
	testutil.AssertStatus(s.T(), rec, http.StatusUnsupportedMediaType)
}

func (s *HandlerSuite) TestBusinessCardAndCascade() {
	t := s.T()
	s.createGroup()
	path := "/businesscard/" + url.PathEscape(participant)
	body := models.BusinessCardInput{
		Participant: identifier.ID{Scheme: "iso6523-actorid-upis", Value: "9915:acme"},
		Entities:    []bcmodels.Entity{{Names: []bcmodels.Name{{Name: "Acme"}}, CountryCode: "AT"}},
	}

	rec := s.do(testutil.NewJSONRequest(t, http.MethodPut, path, body), "alice")
	testutil.AssertStatus(t, rec, http.StatusCreated)

	rec = s.do(testutil.NewRequest(t, http.MethodGet, path), "")
	testutil.AssertStatusOK(t, rec)

	rec = s.do(testutil.NewRequest(t, http.MethodDelete, groupPath()), "alice")
	testutil.AssertStatusOK(t, rec)

	rec = s.do(testutil.NewRequest(t, http.MethodGet, path), "")
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}
