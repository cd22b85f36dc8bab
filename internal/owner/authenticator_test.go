package owner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smp/internal/owner"
	"smp/internal/owner/mocks"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/sentinel"
)

type AuthenticatorSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	users *mocks.MockUserStore
	auth  *owner.Authenticator
	alice owner.User
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorSuite))
}

func (s *AuthenticatorSuite) SetupSuite() {
	hash, err := owner.HashPassword("s3cret")
	s.Require().NoError(err)
	s.alice = owner.User{ID: "u-alice", LoginName: "alice", PasswordHash: hash}
}

func (s *AuthenticatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserStore(s.ctrl)
	var err error
	s.auth, err = owner.NewAuthenticator(s.users)
	s.Require().NoError(err)
}

func (s *AuthenticatorSuite) TestNew() {
	_, err := owner.NewAuthenticator(nil)
	s.ErrorContains(err, "user store is required")
}

func (s *AuthenticatorSuite) TestAuthenticate() {
	ctx := context.Background()

	s.Run("valid credentials are verified once then cached", func() {
		s.users.EXPECT().FindByLoginName(gomock.Any(), "alice").Return(&s.alice, nil).Times(1)

		for i := 0; i < 3; i++ {
			user, err := s.auth.Authenticate(ctx, owner.Credentials{UserName: "alice", Password: "s3cret"})
			s.Require().NoError(err)
			s.Equal("u-alice", user.ID)
		}
	})

	s.Run("wrong password is unauthorized", func() {
		s.users.EXPECT().FindByLoginName(gomock.Any(), "alice").Return(&s.alice, nil)

		_, err := s.auth.Authenticate(ctx, owner.Credentials{UserName: "alice", Password: "guess"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown user is unauthorized", func() {
		s.users.EXPECT().FindByLoginName(gomock.Any(), "mallory").Return(nil, sentinel.ErrNotFound)

		_, err := s.auth.Authenticate(ctx, owner.Credentials{UserName: "mallory", Password: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing credentials are unauthorized", func() {
		_, err := s.auth.Authenticate(ctx, owner.Credentials{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is internal", func() {
		s.users.EXPECT().FindByLoginName(gomock.Any(), "bob").Return(nil, errors.New("io"))

		_, err := s.auth.Authenticate(ctx, owner.Credentials{UserName: "bob", Password: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("forget drops cached verification", func() {
		s.auth.Forget()
		s.users.EXPECT().FindByLoginName(gomock.Any(), "alice").Return(&s.alice, nil)

		_, err := s.auth.Authenticate(ctx, owner.Credentials{UserName: "alice", Password: "s3cret"})
		s.NoError(err)
	})
}
