package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/external"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/repository"
	"github.com/Baaaki/travel-log/pkg/logger"
	"go.uber.org/zap"
)

type CountrySource interface {
	Fetch(ctx context.Context) ([]external.RawCountry, error)
}

type CountryInput struct {
	Abbreviation string
	Name         string
	Capital      *string
}

// CountryPatch holds the fields to change; nil means unchanged
type CountryPatch struct {
	Abbreviation *string
	Name         *string
	Capital      *string
}

type SyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

type CountryService struct {
	repo   *repository.CountryRepository
	source CountrySource
	hooks  Hooks
}

func NewCountryService(repo *repository.CountryRepository, source CountrySource, hooks Hooks) *CountryService {
	return &CountryService{
		repo:   repo,
		source: source,
		hooks:  hooks,
	}
}

func (s *CountryService) Create(ctx context.Context, in CountryInput) (*models.CountryOutput, error) {
	abbreviation := strings.TrimSpace(in.Abbreviation)
	name := strings.TrimSpace(in.Name)
	if abbreviation == "" || name == "" {
		return nil, apperror.Validation("abbreviation and name are required")
	}

	conflict, err := s.repo.FindConflict(ctx, abbreviation, name, 0)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		logger.Log.Warn("Country already exists",
			zap.String("abbreviation", abbreviation),
			zap.String("name", name),
		)
		return nil, countryExists(abbreviation, name)
	}

	country := &models.Country{
		Abbreviation: abbreviation,
		Name:         name,
		Capital:      in.Capital,
	}
	if err := s.repo.Create(ctx, country); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, countryExists(abbreviation, name)
		}
		return nil, err
	}

	logger.Log.Info("Country created",
		zap.Uint("country_id", country.ID),
		zap.String("abbreviation", abbreviation),
	)
	s.hooks.transitioned(ctx, broker.EventCreated, models.EntityCountry, country.ID, nil)

	out := models.SanitizeCountry(country)
	return &out, nil
}

func (s *CountryService) Get(ctx context.Context, id uint) (*models.CountryOutput, error) {
	country, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	out := models.SanitizeCountry(country)
	return &out, nil
}

// List returns active countries; an empty catalogue is not an error
func (s *CountryService) List(ctx context.Context) ([]models.CountryOutput, error) {
	countries, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return models.SanitizeCountries(countries), nil
}

func (s *CountryService) Update(ctx context.Context, id uint, patch CountryPatch) (*models.CountryOutput, error) {
	country, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Abbreviation != nil {
		country.Abbreviation = strings.TrimSpace(*patch.Abbreviation)
	}
	if patch.Name != nil {
		country.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Capital != nil {
		country.Capital = patch.Capital
	}
	if country.Abbreviation == "" || country.Name == "" {
		return nil, apperror.Validation("abbreviation and name cannot be empty")
	}

	conflict, err := s.repo.FindConflict(ctx, country.Abbreviation, country.Name, country.ID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, countryExists(country.Abbreviation, country.Name)
	}

	if err := s.repo.Save(ctx, country); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, countryExists(country.Abbreviation, country.Name)
		}
		return nil, err
	}

	logger.Log.Info("Country updated", zap.Uint("country_id", country.ID))
	s.hooks.transitioned(ctx, broker.EventUpdated, models.EntityCountry, country.ID, nil)

	out := models.SanitizeCountry(country)
	return &out, nil
}

// Delete soft deletes (cascading the flag to visits) or hard deletes
// (removing visits first). A second soft delete is rejected; a hard
// delete is accepted from either state.
func (s *CountryService) Delete(ctx context.Context, id uint, hard bool) (*models.CountryOutput, error) {
	country, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if country == nil {
		return nil, countryNotFound(id)
	}

	var cascaded int64
	if hard {
		cascaded, err = s.repo.HardDeleteCascade(ctx, id)
	} else {
		if country.Deleted {
			return nil, countryDeleted(id)
		}
		cascaded, err = s.repo.SoftDeleteCascade(ctx, id)
	}
	if err != nil {
		logger.Log.Error("Failed to delete country",
			zap.Uint("country_id", id),
			zap.Bool("hard", hard),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Country deleted",
		zap.Uint("country_id", id),
		zap.Bool("hard", hard),
		zap.Int64("cascaded_visits", cascaded),
	)
	s.hooks.deleted(ctx, models.EntityCountry, id, nil, nil, hard, cascaded)

	out := models.SanitizeCountry(country)
	return &out, nil
}

// SyncFromSource upserts the external catalogue keyed on abbreviation.
// Records without abbreviation or name, or whose name belongs to another
// abbreviation, are skipped. Soft-deleted rows are refreshed but stay deleted.
func (s *CountryService) SyncFromSource(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	records, err := s.source.Fetch(ctx)
	if err != nil {
		logger.Log.Error("Country source fetch failed", zap.Error(err))
		return nil, apperror.External("country source unavailable", err)
	}

	result := &SyncResult{Fetched: len(records)}

	for _, record := range records {
		country := toCountry(record)
		if country == nil {
			result.Skipped++
			continue
		}

		owner, err := s.repo.FindByName(ctx, country.Name)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.Abbreviation != country.Abbreviation {
			logger.Log.Warn("Skipping country with name owned by another abbreviation",
				zap.String("abbreviation", country.Abbreviation),
				zap.String("name", country.Name),
				zap.String("owner_abbreviation", owner.Abbreviation),
			)
			result.Skipped++
			continue
		}

		if err := s.repo.UpsertByAbbreviation(ctx, country); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Upserted++
	}

	s.hooks.Metrics.AddSyncRecords(metrics.SyncUpserted, result.Upserted)
	s.hooks.Metrics.AddSyncRecords(metrics.SyncSkipped, result.Skipped)

	logger.Log.Info("Country sync completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("upserted", result.Upserted),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// loadActive resolves id to a non-deleted country
func (s *CountryService) loadActive(ctx context.Context, id uint) (*models.Country, error) {
	country, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if country == nil {
		return nil, countryNotFound(id)
	}
	if country.Deleted {
		return nil, countryDeleted(id)
	}
	return country, nil
}

// toCountry keeps only the stored fields of a raw record, nil if unusable
func toCountry(record external.RawCountry) *models.Country {
	abbreviation := strings.TrimSpace(record.Abbreviation)
	name := strings.TrimSpace(record.Name)
	if abbreviation == "" || name == "" {
		return nil
	}

	country := &models.Country{Abbreviation: abbreviation, Name: name}
	if capital := strings.TrimSpace(record.Capital); capital != "" {
		country.Capital = &capital
	}
	return country
}

func countryNotFound(id uint) error {
	return apperror.NotFound(apperror.CodeCountryNotFound, fmt.Sprintf("country %d not found", id))
}

func countryDeleted(id uint) error {
	return apperror.Unauthorized(apperror.CodeCountryDeleted, fmt.Sprintf("country %d is deleted", id))
}

func countryExists(abbreviation, name string) error {
	return apperror.AlreadyExists(apperror.CodeCountryAlreadyExists,
		fmt.Sprintf("a country with abbreviation %q or name %q already exists", abbreviation, name))
}
