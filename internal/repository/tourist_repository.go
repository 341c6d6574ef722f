package repository

import (
	"context"

	"github.com/Baaaki/travel-log/internal/models"
	"gorm.io/gorm"
)

type TouristRepository struct {
	db *gorm.DB
}

func NewTouristRepository(db *gorm.DB) *TouristRepository {
	return &TouristRepository{db: db}
}

func (r *TouristRepository) Create(ctx context.Context, tourist *models.Tourist) error {
	return translate(r.db.WithContext(ctx).Create(tourist).Error)
}

// FindByID returns the row even when soft deleted, nil when absent
func (r *TouristRepository) FindByID(ctx context.Context, id uint) (*models.Tourist, error) {
	return first[models.Tourist](r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByEmail matches any row, deleted or not. Emails stay reserved after a soft delete.
func (r *TouristRepository) FindByEmail(ctx context.Context, email string) (*models.Tourist, error) {
	return first[models.Tourist](r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *TouristRepository) FindActiveByEmail(ctx context.Context, email string) (*models.Tourist, error) {
	return first[models.Tourist](r.db.WithContext(ctx).Where("email = ? AND deleted = ?", email, false))
}

func (r *TouristRepository) ListActive(ctx context.Context) ([]models.Tourist, error) {
	tourists := []models.Tourist{}
	err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("id ASC").
		Find(&tourists).Error
	return tourists, err
}

func (r *TouristRepository) Save(ctx context.Context, tourist *models.Tourist) error {
	return translate(r.db.WithContext(ctx).
		Model(tourist).
		Select("Name", "Email", "Password", "UpdatedAt").
		Updates(tourist).Error)
}

// SoftDeleteCascade flags the tourist and all of their visits in one transaction
func (r *TouristRepository) SoftDeleteCascade(ctx context.Context, id uint) (int64, error) {
	var cascaded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Visit{}).
			Where("tourist_id = ? AND deleted = ?", id, false).
			Update("deleted", true)
		if res.Error != nil {
			return res.Error
		}
		cascaded = res.RowsAffected

		return tx.Model(&models.Tourist{}).
			Where("id = ?", id).
			Update("deleted", true).Error
	})
	return cascaded, err
}

// HardDeleteCascade removes all of the tourist's visits, then the tourist row
func (r *TouristRepository) HardDeleteCascade(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tourist_id = ?", id).Delete(&models.Visit{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Delete(&models.Tourist{}, id).Error
	})
	return removed, err
}
