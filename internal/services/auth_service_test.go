package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/testutil"
	"go.uber.org/zap"
)

type AuthServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	service *AuthService
	tenant  *models.Tenant
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db := testutil.NewTestDB(suite.T())
	suite.service = NewAuthService(repository.NewStore(db), zap.NewNop())
	suite.tenant = testutil.SeedTenant(suite.T(), db, "Acme Testing")
}

func (suite *AuthServiceTestSuite) signup(email string) (*models.User, error) {
	return suite.service.Signup(suite.ctx, SignupInput{
		InviteCode: strings.ToLower(suite.tenant.InviteCode),
		Email:      email,
		Name:       "Tom Tech",
		Password:   testutil.Password,
	})
}

func (suite *AuthServiceTestSuite) TestSignup_CreatesTechnician() {
	user, err := suite.signup(" Tom@Example.com ")
	suite.Require().NoError(err)
	suite.Equal(models.RoleTechnician, user.Role)
	suite.Equal(suite.tenant.ID, user.TenantID)
	suite.Equal("tom@example.com", user.Email)
	suite.NotEqual(testutil.Password, user.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestSignup_Errors() {
	_, err := suite.signup("tom@example.com")
	suite.Require().NoError(err)

	_, err = suite.signup("TOM@example.com")
	suite.ErrorIs(err, ErrEmailTaken)

	_, err = suite.signup("not an email")
	suite.ErrorIs(err, ErrInvalidEmail)

	_, err = suite.service.Signup(suite.ctx, SignupInput{InviteCode: "NOPE", Email: "new@example.com", Name: "New", Password: testutil.Password})
	suite.ErrorIs(err, ErrInvalidInviteCode)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	_, err := suite.signup("tom@example.com")
	suite.Require().NoError(err)

	user, err := suite.service.Login(suite.ctx, LoginInput{Email: "TOM@example.com", Password: testutil.Password})
	suite.Require().NoError(err)
	suite.Equal("tom@example.com", user.Email)

	_, err = suite.service.Login(suite.ctx, LoginInput{Email: "tom@example.com", Password: "wrong-password"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.service.Login(suite.ctx, LoginInput{Email: "nobody@example.com", Password: testutil.Password})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestResolveActor() {
	user, err := suite.signup("tom@example.com")
	suite.Require().NoError(err)

	actor, err := suite.service.ResolveActor(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal(Actor{UserID: user.ID, TenantID: suite.tenant.ID, Role: models.RoleTechnician, Name: "Tom Tech"}, actor)

	_, err = suite.service.ResolveActor(suite.ctx, 9999)
	suite.ErrorIs(err, ErrUserNotFound)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
