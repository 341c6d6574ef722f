package service_test

import (
	"errors"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/external"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
)

func (s *ServiceTestSuite) TestCountryCreate_Success() {
	out, err := s.countries.Create(s.ctx, service.CountryInput{
		Abbreviation: " ES ",
		Name:         "Spain",
		Capital:      testutil.StrPtr("Madrid"),
	})

	s.Require().NoError(err)
	s.NotZero(out.ID)
	s.Equal("ES", out.Abbreviation, "abbreviation should be trimmed")
	s.Equal("Madrid", *out.Capital)
	s.assertPublished(broker.EventCreated, models.EntityCountry, out.ID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.LifecycleTransitions.WithLabelValues("country", "created")))
}

func (s *ServiceTestSuite) TestCountryCreate_DuplicateAbbreviation() {
	_, err := s.countries.Create(s.ctx, service.CountryInput{Abbreviation: "ES", Name: "Spain"})
	s.Require().NoError(err)

	_, err = s.countries.Create(s.ctx, service.CountryInput{Abbreviation: "ES", Name: "España"})

	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeCountryAlreadyExists)
}

func (s *ServiceTestSuite) TestCountryCreate_DuplicateNameEvenWhenDeleted() {
	fr := testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, fr.ID)

	_, err := s.countries.Create(s.ctx, service.CountryInput{Abbreviation: "FX", Name: "France"})

	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeCountryAlreadyExists)
}

func (s *ServiceTestSuite) TestCountryCreate_Validation() {
	_, err := s.countries.Create(s.ctx, service.CountryInput{Abbreviation: "  ", Name: "Nowhere"})

	s.requireAppError(err, apperror.KindValidation, apperror.CodeValidation)
}

func (s *ServiceTestSuite) TestCountryGet() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	fr := testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, fr.ID)

	out, err := s.countries.Get(s.ctx, es.ID)
	s.Require().NoError(err)
	s.Equal("Spain", out.Name)

	_, err = s.countries.Get(s.ctx, fr.ID)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeCountryDeleted)

	_, err = s.countries.Get(s.ctx, 999999)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)
}

func (s *ServiceTestSuite) TestCountryList() {
	empty, err := s.countries.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	fr := testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, fr.ID)

	list, err := s.countries.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("ES", list[0].Abbreviation)
}

func (s *ServiceTestSuite) TestCountryUpdate() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France")

	out, err := s.countries.Update(s.ctx, es.ID, service.CountryPatch{Capital: testutil.StrPtr("Madrid")})
	s.Require().NoError(err)
	s.Equal("Madrid", *out.Capital)
	s.Equal("Spain", out.Name, "unset fields stay unchanged")

	_, err = s.countries.Update(s.ctx, es.ID, service.CountryPatch{Name: testutil.StrPtr("France")})
	s.requireAppError(err, apperror.KindAlreadyExists, apperror.CodeCountryAlreadyExists)

	_, err = s.countries.Update(s.ctx, 999999, service.CountryPatch{Name: testutil.StrPtr("X")})
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)

	stored, err := s.countryRepo.FindByID(s.ctx, es.ID)
	s.Require().NoError(err)
	s.False(stored.Deleted, "update never alters the deleted flag")
	s.assertPublished(broker.EventUpdated, models.EntityCountry, es.ID)
}

func (s *ServiceTestSuite) TestCountryUpdate_SoftDeletedIsUnauthorized() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, es.ID)

	_, err := s.countries.Update(s.ctx, es.ID, service.CountryPatch{Capital: testutil.StrPtr("Madrid")})

	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeCountryDeleted)
}

func (s *ServiceTestSuite) TestCountryDelete_SecondSoftDeleteFails() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")

	_, err := s.countries.Delete(s.ctx, es.ID, false)
	s.Require().NoError(err)

	_, err = s.countries.Delete(s.ctx, es.ID, false)
	s.requireAppError(err, apperror.KindUnauthorized, apperror.CodeCountryDeleted)
}

func (s *ServiceTestSuite) TestCountryDelete_SoftCascadesToVisits() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	fr := testutil.CreateTestCountry(s.T(), s.testDB.DB, "FR", "France")
	alice := testutil.CreateTestTourist(s.T(), s.testDB.DB, "alice@x.com", "pw")
	bob := testutil.CreateTestTourist(s.T(), s.testDB.DB, "bob@x.com", "pw")
	testutil.CreateTestVisit(s.T(), s.testDB.DB, alice.ID, es.ID, nil)
	testutil.CreateTestVisit(s.T(), s.testDB.DB, bob.ID, es.ID, testutil.TimePtr(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	frVisit := testutil.CreateTestVisit(s.T(), s.testDB.DB, alice.ID, fr.ID, nil)

	out, err := s.countries.Delete(s.ctx, es.ID, false)
	s.Require().NoError(err)
	s.Equal(es.ID, out.ID)

	var active int64
	s.testDB.DB.Model(&models.Visit{}).Where("country_id = ? AND deleted = ?", es.ID, false).Count(&active)
	s.Zero(active, "every visit to the country is soft deleted")

	untouched, err := s.visitRepo.FindByID(s.ctx, frVisit.ID)
	s.Require().NoError(err)
	s.False(untouched.Deleted)

	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.Equal(models.EntityCountry, entries[0].Entity)
	s.Equal(int64(2), entries[0].CascadedVisits)
	s.False(entries[0].Hard)
	s.Nil(entries[0].ActorID)
	s.assertPublished(broker.EventSoftDeleted, models.EntityCountry, es.ID)
}

func (s *ServiceTestSuite) TestCountryDelete_HardRemovesVisitsThenRow() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	alice := testutil.CreateTestTourist(s.T(), s.testDB.DB, "alice@x.com", "pw")
	testutil.CreateTestVisit(s.T(), s.testDB.DB, alice.ID, es.ID, nil)

	_, err := s.countries.Delete(s.ctx, es.ID, true)
	s.Require().NoError(err)

	var visits int64
	s.testDB.DB.Model(&models.Visit{}).Where("country_id = ?", es.ID).Count(&visits)
	s.Zero(visits)

	gone, err := s.countryRepo.FindByID(s.ctx, es.ID)
	s.Require().NoError(err)
	s.Nil(gone)

	_, err = s.countries.Delete(s.ctx, es.ID, true)
	s.requireAppError(err, apperror.KindNotFound, apperror.CodeCountryNotFound)

	entries := s.journalEntries()
	s.Require().Len(entries, 1)
	s.True(entries[0].Hard)
	s.Equal(int64(1), entries[0].CascadedVisits)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.LifecycleTransitions.WithLabelValues("country", "hard_deleted")))
}

func (s *ServiceTestSuite) TestCountryDelete_HardAfterSoft() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")

	_, err := s.countries.Delete(s.ctx, es.ID, false)
	s.Require().NoError(err)
	_, err = s.countries.Delete(s.ctx, es.ID, true)
	s.Require().NoError(err)

	gone, err := s.countryRepo.FindByID(s.ctx, es.ID)
	s.Require().NoError(err)
	s.Nil(gone)
}

func (s *ServiceTestSuite) TestCountryDelete_PublishFailureDoesNotUndo() {
	es := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	failing := new(mockPublisher)
	failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	countries := service.NewCountryService(s.countryRepo, s.source, service.Hooks{Publisher: failing})

	_, err := countries.Delete(s.ctx, es.ID, false)

	s.Require().NoError(err)
	stored, err := s.countryRepo.FindByID(s.ctx, es.ID)
	s.Require().NoError(err)
	s.True(stored.Deleted)
	failing.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestCountrySyncFromSource() {
	existing := testutil.CreateTestCountry(s.T(), s.testDB.DB, "ES", "Spain")
	testutil.MarkDeleted(s.T(), s.testDB.DB, &models.Country{}, existing.ID)
	testutil.CreateTestCountry(s.T(), s.testDB.DB, "GB", "United Kingdom")

	s.source.On("Fetch", mock.Anything).Return([]external.RawCountry{
		{ID: 1, Abbreviation: "ES", Name: "Spain", Capital: "Madrid", Currency: "EUR"},
		{ID: 2, Abbreviation: "PT", Name: "Portugal", Capital: "Lisbon"},
		{ID: 3, Abbreviation: "", Name: "Nameless"},
		{ID: 4, Abbreviation: "UK", Name: "United Kingdom"},
		{ID: 5, Abbreviation: "AQ", Name: "Antarctica", Capital: ""},
	}, nil).Once()

	result, err := s.countries.SyncFromSource(s.ctx)

	s.Require().NoError(err)
	s.Equal(service.SyncResult{Fetched: 5, Upserted: 3, Skipped: 2}, *result)

	es, err := s.countryRepo.FindByAbbreviation(s.ctx, "ES")
	s.Require().NoError(err)
	s.Equal("Madrid", *es.Capital)
	s.True(es.Deleted, "sync must not restore a soft-deleted country")

	aq, err := s.countryRepo.FindByAbbreviation(s.ctx, "AQ")
	s.Require().NoError(err)
	s.Nil(aq.Capital, "empty upstream capital is stored as null")

	uk, err := s.countryRepo.FindByAbbreviation(s.ctx, "UK")
	s.Require().NoError(err)
	s.Nil(uk, "record whose name belongs to GB is skipped")

	s.Equal(3.0, promtest.ToFloat64(s.metrics.CountrySyncRecords.WithLabelValues(metrics.SyncUpserted)))
	s.Equal(2.0, promtest.ToFloat64(s.metrics.CountrySyncRecords.WithLabelValues(metrics.SyncSkipped)))
	s.source.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestCountrySyncFromSource_IsIdempotent() {
	records := []external.RawCountry{
		{Abbreviation: "ES", Name: "Spain", Capital: "Madrid"},
		{Abbreviation: "PT", Name: "Portugal", Capital: "Lisbon"},
	}
	s.source.On("Fetch", mock.Anything).Return(records, nil).Twice()

	_, err := s.countries.SyncFromSource(s.ctx)
	s.Require().NoError(err)
	_, err = s.countries.SyncFromSource(s.ctx)
	s.Require().NoError(err)

	list, err := s.countries.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 2)
}

func (s *ServiceTestSuite) TestCountrySyncFromSource_FetchFailure() {
	s.source.On("Fetch", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	result, err := s.countries.SyncFromSource(s.ctx)

	s.Nil(result)
	s.requireAppError(err, apperror.KindExternal, apperror.CodeExternalService)
}
