package service_test

import (
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/internal/testutil"
)

type visitFixture struct {
	alice, bob *models.Tourist
	es, fr     *models.Country
}

func (s *ServiceTestSuite) visitFixture() visitFixture {
	s.T().Helper()
	return visitFixture{
		alice: testutil.CreateTestTourist(s.T(), s.testDB.DB, "alice@x.com", "pw"),
		bob:   testutil.CreateTestTourist(s.T(), s.testDB.DB, "bob@x.com", "pw"),
		es:    testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain"),
		fr:    testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France"),
	}
}

func (s *ServiceTestSuite) TestVisitCreate_DuplicateTriple() {
	f := s.visitFixture()
	date := time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC)

	first, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.Require().NoError(err)
	s.Equal(f.alice.ID, first.TouristID)
	s.assertPublished(broker.EventCreated, models.EntityVisit, first.ID)

	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeVisitAlreadyExists)

	// Same country on another day, or another tourist on the same day, is fine
	nextDay := date.Add(24 * time.Hour)
	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &nextDay})
	s.NoError(err)
	_, err = s.visits.Create(s.ctx, f.bob.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestVisitCreate_DateIsNormalized() {
	f := s.visitFixture()
	madrid := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2024, 7, 14, 11, 0, 0, 123456789, madrid)
	sameInstant := time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC)

	out, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &local})
	s.Require().NoError(err)
	s.Equal(time.UTC, out.Date.Location())
	s.True(out.Date.Equal(sameInstant))

	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &sameInstant})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeVisitAlreadyExists)
}

func (s *ServiceTestSuite) TestVisitCreate_WithoutDateTwice() {
	f := s.visitFixture()

	_, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID})
	s.Require().NoError(err)

	second, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID})
	s.Require().NoError(err)
	s.Nil(second.Date)

	visits, err := s.visits.List(s.ctx, f.alice.ID, &f.es.ID)
	s.Require().NoError(err)
	s.Len(visits, 2)
}

func (s *ServiceTestSuite) TestVisitCreate_UnresolvedReferences() {
	f := s.visitFixture()
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, f.fr.ID)
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Tourist{}, f.bob.ID)

	_, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: 999999})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)

	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.fr.ID})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)

	_, err = s.visits.Create(s.ctx, f.bob.ID, service.VisitInput{CountryID: f.es.ID})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)

	_, err = s.visits.Create(s.ctx, 999999, service.VisitInput{CountryID: f.es.ID})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeTouristNotFound)
}

func (s *ServiceTestSuite) TestVisitGet() {
	f := s.visitFixture()
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, nil)
	deleted := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.fr.ID, nil)
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Visit{}, deleted.ID)

	out, err := s.visits.Get(s.ctx, visit.ID, f.alice.ID)
	s.Require().NoError(err)
	s.Equal(f.es.ID, out.CountryID)

	_, err = s.visits.Get(s.ctx, visit.ID, f.bob.ID)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeUnauthorized)

	_, err = s.visits.Get(s.ctx, deleted.ID, f.alice.ID)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeVisitDeleted)

	_, err = s.visits.Get(s.ctx, 999999, f.alice.ID)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeVisitNotFound)
}

func (s *ServiceTestSuite) TestVisitList() {
	f := s.visitFixture()

	empty, err := s.visits.List(s.ctx, f.alice.ID, nil)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, nil)
	testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.fr.ID, nil)
	testutil.CreateTestVisit(s.T(), s.testDB.DB, f.bob.ID, f.fr.ID, nil)

	all, err := s.visits.List(s.ctx, f.alice.ID, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	filtered, err := s.visits.List(s.ctx, f.alice.ID, &f.fr.ID)
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(f.fr.ID, filtered[0].CountryID)
	s.Equal(f.alice.ID, filtered[0].TouristID)
}

func (s *ServiceTestSuite) TestVisitMutationByOtherTourist_LeavesVisitUnchanged() {
	f := s.visitFixture()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, &date)

	_, err := s.visits.Update(s.ctx, visit.ID, f.bob.ID, service.VisitPatch{CountryID: &f.fr.ID})
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeUnauthorized)

	_, err = s.visits.Delete(s.ctx, visit.ID, f.bob.ID, false)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeUnauthorized)

	_, err = s.visits.Delete(s.ctx, visit.ID, f.bob.ID, true)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeUnauthorized)

	stored, err := s.visitRepo.FindByID(s.ctx, visit.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(f.es.ID, stored.CountryID)
	s.False(stored.Deleted)
	s.True(stored.Date.Equal(date))
	s.Empty(s.journalEntries())
}

func (s *ServiceTestSuite) TestVisitUpdate() {
	f := s.visitFixture()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, &date)

	newDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out, err := s.visits.Update(s.ctx, visit.ID, f.alice.ID, service.VisitPatch{CountryID: &f.fr.ID, Date: &newDate})
	s.Require().NoError(err)
	s.Equal(f.fr.ID, out.CountryID)
	s.True(out.Date.Equal(newDate))
	s.assertPublished(broker.EventUpdated, models.EntityVisit, visit.ID)

	stored, err := s.visitRepo.FindByID(s.ctx, visit.ID)
	s.Require().NoError(err)
	s.Equal(f.fr.ID, stored.CountryID)
}

func (s *ServiceTestSuite) TestVisitUpdate_ClearDate() {
	f := s.visitFixture()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, &date)
	testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, nil)

	// ClearDate wins over a date sent alongside it
	out, err := s.visits.Update(s.ctx, visit.ID, f.alice.ID, service.VisitPatch{ClearDate: true, Date: &date})
	s.Require().NoError(err)
	s.Nil(out.Date)

	stored, err := s.visitRepo.FindByID(s.ctx, visit.ID)
	s.Require().NoError(err)
	s.Nil(stored.Date)
	s.Equal(f.es.ID, stored.CountryID)
}

func (s *ServiceTestSuite) TestVisitCreate_SoftDeletedDatedVisitKeepsTripleTaken() {
	f := s.visitFixture()
	date := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	visit, err := s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.Require().NoError(err)
	_, err = s.visits.Delete(s.ctx, visit.ID, f.alice.ID, false)
	s.Require().NoError(err)

	// The unique index still holds the soft-deleted row
	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeVisitAlreadyExists)

	// Only a hard delete frees the triple
	_, err = s.visits.Delete(s.ctx, visit.ID, f.alice.ID, true)
	s.Require().NoError(err)
	_, err = s.visits.Create(s.ctx, f.alice.ID, service.VisitInput{CountryID: f.es.ID, Date: &date})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestVisitUpdate_Failures() {
	f := s.visitFixture()
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, &date)
	testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.fr.ID, &date)
	deletedCountry := testutil.CreateTestCountry(s.T(), s.testDB.DB, "PT", "Portugal")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, deletedCountry.ID)

	_, err := s.visits.Update(s.ctx, 999999, f.alice.ID, service.VisitPatch{})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeVisitNotFound)

	_, err = s.visits.Update(s.ctx, visit.ID, f.alice.ID, service.VisitPatch{CountryID: &deletedCountry.ID})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)

	_, err = s.visits.Update(s.ctx, visit.ID, f.alice.ID, service.VisitPatch{CountryID: &f.fr.ID})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeVisitAlreadyExists)

	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Visit{}, visit.ID)
	_, err = s.visits.Update(s.ctx, visit.ID, f.alice.ID, service.VisitPatch{Date: &date})
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeVisitDeleted)
}

func (s *ServiceTestSuite) TestVisitDelete() {
	f := s.visitFixture()
	visit := testutil.CreateTestVisit(s.T(), s.testDB.DB, f.alice.ID, f.es.ID, nil)

	_, err := s.visits.Delete(s.ctx, visit.ID, f.alice.ID, false)
	s.Require().NoError(err)

	_, err = s.visits.Delete(s.ctx, visit.ID, f.alice.ID, false)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeVisitDeleted)

	_, err = s.visits.Delete(s.ctx, visit.ID, f.alice.ID, true)
	s.Require().NoError(err)

	gone, err := s.visitRepo.FindByID(s.ctx, visit.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	_, err = s.visits.Delete(s.ctx, visit.ID, f.alice.ID, true)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeVisitNotFound)

	entries := s.journalEntries()
	s.Require().Len(entries, 2)
	s.False(entries[0].Hard)
	s.True(entries[1].Hard)
	s.assertPublished(broker.EventHardDeleted, models.EntityVisit, visit.ID)
}
