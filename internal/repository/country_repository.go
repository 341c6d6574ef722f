package repository

import (
	"context"

	"github.com/Baaaki/travel-log/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CountryRepository struct {
	db *gorm.DB
}

func NewCountryRepository(db *gorm.DB) *CountryRepository {
	return &CountryRepository{db: db}
}

func (r *CountryRepository) Create(ctx context.Context, country *models.Country) error {
	return translate(r.db.WithContext(ctx).Create(country).Error)
}

// FindByID returns the row even when soft deleted, nil when absent
func (r *CountryRepository) FindByID(ctx context.Context, id uint) (*models.Country, error) {
	return first[models.Country](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *CountryRepository) FindByAbbreviation(ctx context.Context, abbreviation string) (*models.Country, error) {
	return first[models.Country](r.db.WithContext(ctx).Where("abbreviation = ?", abbreviation))
}

func (r *CountryRepository) FindByName(ctx context.Context, name string) (*models.Country, error) {
	return first[models.Country](r.db.WithContext(ctx).Where("name = ?", name))
}

// FindConflict returns any other row (deleted or not) holding the name or abbreviation
func (r *CountryRepository) FindConflict(ctx context.Context, abbreviation, name string, excludeID uint) (*models.Country, error) {
	return first[models.Country](r.db.WithContext(ctx).
		Where("(abbreviation = ? OR name = ?) AND id <> ?", abbreviation, name, excludeID))
}

// ListActive returns non-deleted countries ordered by id
func (r *CountryRepository) ListActive(ctx context.Context) ([]models.Country, error) {
	countries := []models.Country{}
	err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("id ASC").
		Find(&countries).Error
	return countries, err
}

// Save writes the mutable columns. The deleted flag is never touched here.
func (r *CountryRepository) Save(ctx context.Context, country *models.Country) error {
	return translate(r.db.WithContext(ctx).
		Model(country).
		Select("Abbreviation", "Name", "Capital", "UpdatedAt").
		Updates(country).Error)
}

// SoftDeleteCascade flags the country and every visit to it in one
// transaction. It returns how many visits were newly flagged.
func (r *CountryRepository) SoftDeleteCascade(ctx context.Context, id uint) (int64, error) {
	var cascaded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Visit{}).
			Where("country_id = ? AND deleted = ?", id, false).
			Update("deleted", true)
		if res.Error != nil {
			return res.Error
		}
		cascaded = res.RowsAffected

		return tx.Model(&models.Country{}).
			Where("id = ?", id).
			Update("deleted", true).Error
	})
	return cascaded, err
}

// HardDeleteCascade removes every visit to the country, then the country row.
// It returns how many visits were removed.
func (r *CountryRepository) HardDeleteCascade(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("country_id = ?", id).Delete(&models.Visit{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Delete(&models.Country{}, id).Error
	})
	return removed, err
}

// UpsertByAbbreviation inserts the country or overwrites name and capital of
// the row with the same abbreviation. The deleted flag of an existing row is kept.
func (r *CountryRepository) UpsertByAbbreviation(ctx context.Context, country *models.Country) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "abbreviation"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "capital", "updated_at"}),
		}).
		Create(country).Error)
}
