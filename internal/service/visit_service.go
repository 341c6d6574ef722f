package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/repository"
	"github.com/Baaaki/travel-log/pkg/logger"
	"go.uber.org/zap"
)

type VisitInput struct {
	CountryID uint
	Date      *time.Time
}

// VisitPatch holds the fields to change; nil means unchanged.
// ClearDate removes the date and wins over Date.
type VisitPatch struct {
	CountryID *uint
	Date      *time.Time
	ClearDate bool
}

type VisitService struct {
	visits    *repository.VisitRepository
	countries *repository.CountryRepository
	tourists  *repository.TouristRepository
	hooks     Hooks
}

func NewVisitService(
	visits *repository.VisitRepository,
	countries *repository.CountryRepository,
	tourists *repository.TouristRepository,
	hooks Hooks,
) *VisitService {
	return &VisitService{
		visits:    visits,
		countries: countries,
		tourists:  tourists,
		hooks:     hooks,
	}
}

// Create records a visit for the principal. Tourist and country must both be
// active and the (date, country, tourist) triple must be unused.
func (s *VisitService) Create(ctx context.Context, touristID uint, in VisitInput) (*models.VisitOutput, error) {
	tourist, err := s.tourists.FindByID(ctx, touristID)
	if err != nil {
		return nil, err
	}
	if tourist == nil || tourist.Deleted {
		return nil, touristNotFound(touristID)
	}

	if err := s.requireActiveCountry(ctx, in.CountryID); err != nil {
		return nil, err
	}

	date := models.NormalizeVisitDate(in.Date)
	if err := s.requireFreeTriple(ctx, touristID, in.CountryID, date, 0); err != nil {
		return nil, err
	}

	visit := &models.Visit{
		TouristID: touristID,
		CountryID: in.CountryID,
		Date:      date,
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, visitExists()
		}
		return nil, err
	}

	logger.Log.Info("Visit created",
		zap.Uint("visit_id", visit.ID),
		zap.Uint("tourist_id", touristID),
		zap.Uint("country_id", in.CountryID),
	)
	s.hooks.transitioned(ctx, broker.EventCreated, models.EntityVisit, visit.ID, uintPtr(touristID))

	out := models.SanitizeVisit(visit)
	return &out, nil
}

func (s *VisitService) Get(ctx context.Context, visitID, touristID uint) (*models.VisitOutput, error) {
	visit, err := s.loadOwned(ctx, visitID, touristID)
	if err != nil {
		return nil, err
	}
	if visit.Deleted {
		return nil, visitDeleted(visitID)
	}
	out := models.SanitizeVisit(visit)
	return &out, nil
}

// List returns the tourist's active visits, optionally for one country
func (s *VisitService) List(ctx context.Context, touristID uint, countryID *uint) ([]models.VisitOutput, error) {
	visits, err := s.visits.ListActiveByTourist(ctx, touristID, countryID)
	if err != nil {
		return nil, err
	}
	return models.SanitizeVisits(visits), nil
}

func (s *VisitService) Update(ctx context.Context, visitID, touristID uint, patch VisitPatch) (*models.VisitOutput, error) {
	visit, err := s.loadOwned(ctx, visitID, touristID)
	if err != nil {
		return nil, err
	}
	if visit.Deleted {
		return nil, visitDeleted(visitID)
	}

	if patch.CountryID != nil {
		if err := s.requireActiveCountry(ctx, *patch.CountryID); err != nil {
			return nil, err
		}
		visit.CountryID = *patch.CountryID
	}
	switch {
	case patch.ClearDate:
		visit.Date = nil
	case patch.Date != nil:
		visit.Date = models.NormalizeVisitDate(patch.Date)
	}

	if err := s.requireFreeTriple(ctx, touristID, visit.CountryID, visit.Date, visit.ID); err != nil {
		return nil, err
	}

	if err := s.visits.Save(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, visitExists()
		}
		return nil, err
	}

	logger.Log.Info("Visit updated",
		zap.Uint("visit_id", visit.ID),
		zap.Uint("tourist_id", touristID),
	)
	s.hooks.transitioned(ctx, broker.EventUpdated, models.EntityVisit, visit.ID, uintPtr(touristID))

	out := models.SanitizeVisit(visit)
	return &out, nil
}

func (s *VisitService) Delete(ctx context.Context, visitID, touristID uint, hard bool) (*models.VisitOutput, error) {
	visit, err := s.loadOwned(ctx, visitID, touristID)
	if err != nil {
		return nil, err
	}

	if hard {
		err = s.visits.HardDelete(ctx, visitID)
	} else {
		if visit.Deleted {
			return nil, visitDeleted(visitID)
		}
		err = s.visits.SoftDelete(ctx, visitID)
	}
	if err != nil {
		logger.Log.Error("Failed to delete visit",
			zap.Uint("visit_id", visitID),
			zap.Bool("hard", hard),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Visit deleted",
		zap.Uint("visit_id", visitID),
		zap.Uint("tourist_id", touristID),
		zap.Bool("hard", hard),
	)
	s.hooks.deleted(ctx, models.EntityVisit, visitID, uintPtr(touristID), uintPtr(touristID), hard, 0)

	out := models.SanitizeVisit(visit)
	return &out, nil
}

// loadOwned resolves the visit and checks ownership before anything else,
// so other tourists learn nothing about its state.
func (s *VisitService) loadOwned(ctx context.Context, visitID, touristID uint) (*models.Visit, error) {
	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, apperror.NotFound(apperror.CodeVisitNotFound, fmt.Sprintf("visit %d not found", visitID))
	}
	if visit.TouristID != touristID {
		logger.Log.Warn("Visit access denied",
			zap.Uint("visit_id", visitID),
			zap.Uint("owner_id", visit.TouristID),
			zap.Uint("principal_id", touristID),
		)
		return nil, apperror.Unauthorized(apperror.CodeUnauthorized, "visit belongs to another tourist")
	}
	return visit, nil
}

func (s *VisitService) requireActiveCountry(ctx context.Context, countryID uint) error {
	country, err := s.countries.FindByID(ctx, countryID)
	if err != nil {
		return err
	}
	if country == nil || country.Deleted {
		return countryNotFound(countryID)
	}
	return nil
}

func (s *VisitService) requireFreeTriple(ctx context.Context, touristID, countryID uint, date *time.Time, excludeID uint) error {
	existing, err := s.visits.FindByTriple(ctx, touristID, countryID, date, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return visitExists()
	}
	return nil
}

func visitDeleted(id uint) error {
	return apperror.Unauthorized(apperror.CodeVisitDeleted, fmt.Sprintf("visit %d is deleted", id))
}

func visitExists() error {
	return apperror.AlreadyExists(apperror.CodeVisitAlreadyExists, "a visit with this date and country already exists")
}
