package repository

import (
	"context"
	"time"

	"github.com/Baaaki/travel-log/internal/models"
	"gorm.io/gorm"
)

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	return translate(r.db.WithContext(ctx).Create(visit).Error)
}

// FindByID returns the row even when soft deleted, nil when absent
func (r *VisitRepository) FindByID(ctx context.Context, id uint) (*models.Visit, error) {
	return first[models.Visit](r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByTriple looks up any other visit (deleted or not) with the same
// (date, country, tourist). Undated visits never collide, so a nil date
// always finds nothing.
func (r *VisitRepository) FindByTriple(ctx context.Context, touristID, countryID uint, date *time.Time, excludeID uint) (*models.Visit, error) {
	if date == nil {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Where("tourist_id = ? AND country_id = ? AND id <> ? AND date = ?", touristID, countryID, excludeID, *date)
	return first[models.Visit](q)
}

// ListActiveByTourist returns the tourist's non-deleted visits, optionally for one country
func (r *VisitRepository) ListActiveByTourist(ctx context.Context, touristID uint, countryID *uint) ([]models.Visit, error) {
	q := r.db.WithContext(ctx).Where("tourist_id = ? AND deleted = ?", touristID, false)
	if countryID != nil {
		q = q.Where("country_id = ?", *countryID)
	}

	visits := []models.Visit{}
	err := q.Order("id ASC").Find(&visits).Error
	return visits, err
}

func (r *VisitRepository) Save(ctx context.Context, visit *models.Visit) error {
	return translate(r.db.WithContext(ctx).
		Model(visit).
		Select("CountryID", "Date", "UpdatedAt").
		Updates(visit).Error)
}

func (r *VisitRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Visit{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

func (r *VisitRepository) HardDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Visit{}, id).Error
}
