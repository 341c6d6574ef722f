package service_test

import (
	"strings"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/internal/testutil"
)

func (s *ServiceTestSuite) register(email, password string) *service.AuthResult {
	s.T().Helper()
	result, err := s.tourists.Register(s.ctx, service.RegisterInput{Email: email, Password: password})
	s.Require().NoError(err)
	return result
}

func (s *ServiceTestSuite) TestTouristRegisterThenLogin() {
	result := s.register("a@x.com", "pw")
	s.NotEmpty(result.Token)
	s.Equal("a@x.com", result.Tourist.Email)

	token, err := s.tourists.Login(s.ctx, "a@x.com", "pw")
	s.Require().NoError(err)

	principal, err := s.credentials.VerifyToken(token)
	s.Require().NoError(err)
	s.Equal(result.Tourist.ID, principal.ID)
	s.Equal("a@x.com", principal.Email)

	stored, err := s.touristRepo.FindByID(s.ctx, result.Tourist.ID)
	s.Require().NoError(err)
	s.NotEqual("pw", stored.Password, "password is stored hashed")
	s.assertPublished(broker.EventCreated, models.EntityTourist, result.Tourist.ID)
}

func (s *ServiceTestSuite) TestTouristRegister_TokenPrincipalMatches() {
	result := s.register("b@x.com", "secret")

	principal, err := s.credentials.VerifyToken(result.Token)

	s.Require().NoError(err)
	s.Equal(result.Tourist.ID, principal.ID)
}

func (s *ServiceTestSuite) TestTouristRegister_DuplicateEmail() {
	s.register("a@x.com", "pw")

	_, err := s.tourists.Register(s.ctx, service.RegisterInput{Email: " A@X.com ", Password: "other"})

	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeTouristAlreadyExists)
}

func (s *ServiceTestSuite) TestTouristRegister_Validation() {
	testCases := []struct {
		name  string
		input service.RegisterInput
	}{
		{name: "invalid_email", input: service.RegisterInput{Email: "not-an-email", Password: "pw"}},
		{name: "empty_password", input: service.RegisterInput{Email: "a@x.com", Password: ""}},
		{name: "password_too_long", input: service.RegisterInput{Email: "a@x.com", Password: strings.Repeat("p", 129)}},
		{name: "name_too_long", input: service.RegisterInput{Name: testutil.StrPtr(strings.Repeat("n", 101)), Email: "a@x.com", Password: "pw"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.tourists.Register(s.ctx, tc.input)
			s.requireAppError(err, apperror.KindValidation, apperror.CodeValidation)
		})
	}
}

func (s *ServiceTestSuite) TestTouristLogin_WrongPassword() {
	s.register("a@x.com", "pw")

	token, err := s.tourists.Login(s.ctx, "a@x.com", "wrong")

	s.Empty(token, "no token is issued on a failed login")
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)
}

func (s *ServiceTestSuite) TestTouristLogin_UnknownOrDeletedEmail() {
	result := s.register("a@x.com", "pw")

	_, err := s.tourists.Login(s.ctx, "nobody@x.com", "pw")
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)

	_, err = s.tourists.Delete(s.ctx, result.Tourist.ID, false)
	s.Require().NoError(err)

	_, err = s.tourists.Login(s.ctx, "a@x.com", "pw")
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)
}

func (s *ServiceTestSuite) TestTouristLogin_EmailIsCaseInsensitive() {
	s.register("Mixed@Example.com", "pw")

	_, err := s.tourists.Login(s.ctx, "MIXED@example.COM", "pw")

	s.NoError(err)
}

func (s *ServiceTestSuite) TestTouristGetAndList() {
	alice := s.register("alice@x.com", "pw")
	bob := s.register("bob@x.com", "pw")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Tourist{}, bob.Tourist.ID)

	out, err := s.tourists.Get(s.ctx, alice.Tourist.ID)
	s.Require().NoError(err)
	s.Equal("alice@x.com", out.Email)

	_, err = s.tourists.Get(s.ctx, bob.Tourist.ID)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeTouristDeleted)

	_, err = s.tourists.Get(s.ctx, 999999)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)

	list, err := s.tourists.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(alice.Tourist.ID, list[0].ID)
}

func (s *ServiceTestSuite) TestTouristUpdate() {
	alice := s.register("alice@x.com", "pw")
	s.register("bob@x.com", "pw")

	out, err := s.tourists.Update(s.ctx, alice.Tourist.ID, service.TouristPatch{
		Name:     testutil.StrPtr("Alice"),
		Password: testutil.StrPtr("new-password"),
	})
	s.Require().NoError(err)
	s.Equal("Alice", *out.Name)

	_, err = s.tourists.Login(s.ctx, "alice@x.com", "pw")
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)
	_, err = s.tourists.Login(s.ctx, "alice@x.com", "new-password")
	s.NoError(err)

	_, err = s.tourists.Update(s.ctx, alice.Tourist.ID, service.TouristPatch{Email: testutil.StrPtr("BOB@x.com")})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeTouristAlreadyExists)

	// Re-submitting the current email is not a collision
	_, err = s.tourists.Update(s.ctx, alice.Tourist.ID, service.TouristPatch{Email: testutil.StrPtr("alice@x.com")})
	s.NoError(err)
	s.assertPublished(broker.EventUpdated, models.EntityTourist, alice.Tourist.ID)
}

func (s *ServiceTestSuite) TestTouristUpdate_SoftDeletedIsUnauthorized() {
	alice := s.register("alice@x.com", "pw")
	_, err := s.tourists.Delete(s.ctx, alice.Tourist.ID, false)
	s.Require().NoError(err)

	_, err = s.tourists.Update(s.ctx, alice.Tourist.ID, service.TouristPatch{Name: testutil.StrPtr("Ghost")})

	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeTouristDeleted)
}

func (s *ServiceTestSuite) TestTouristDelete_SoftCascadesAndRejectsRepeat() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	alice := s.register("alice@x.com", "pw")
	bob := s.register("bob@x.com", "pw")
	testutil.CreateTestVisit(s.T(), s.testDB.DB, alice.Tourist.ID, es.ID, nil)
	bobVisit := testutil.CreateTestVisit(s.T(), s.testDB.DB, bob.Tourist.ID, es.ID, nil)

	_, err := s.tourists.Delete(s.ctx, alice.Tourist.ID, false)
	s.Require().NoError(err)

	var active int64
	s.testDB.DB.Model(&models.Visit{}).Where("tourist_id = ? AND deleted = ?", alice.Tourist.ID, false).Count(&active)
	s.Zero(active)

	kept, err := s.visitRepo.FindByID(s.ctx, bobVisit.ID)
	s.Require().NoError(err)
	s.False(kept.Deleted, "other tourists' visits are untouched")

	_, err = s.tourists.Delete(s.ctx, alice.Tourist.ID, false)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeTouristDeleted)

	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.Require().NotNil(entries[0].ActorID)
	s.Equal(alice.Tourist.ID, *entries[0].ActorID)
	s.Equal(int64(1), entries[0].CascadedVisits)
}

func (s *ServiceTestSuite) TestTouristDelete_Hard() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	alice := s.register("alice@x.com", "pw")
	testutil.CreateTestVisit(s.T(), s.testDB.DB, alice.Tourist.ID, es.ID, nil)

	out, err := s.tourists.Delete(s.ctx, alice.Tourist.ID, true)
	s.Require().NoError(err)
	s.Equal("alice@x.com", out.Email)

	gone, err := s.touristRepo.FindByID(s.ctx, alice.Tourist.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	var visits int64
	s.testDB.DB.Model(&models.Visit{}).Where("tourist_id = ?", alice.Tourist.ID).Count(&visits)
	s.Zero(visits)

	_, err = s.tourists.Delete(s.ctx, alice.Tourist.ID, true)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)
	s.assertPublished(broker.EventHardDeleted, models.EntityTourist, alice.Tourist.ID)
}
