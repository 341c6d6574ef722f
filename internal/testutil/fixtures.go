package testutil

import (
	"testing"
	"time"

	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/internal/utils"
	"gorm.io/gorm"
)

// Low bcrypt cost keeps fixture hashing fast
const FixtureBcryptCost = 4

func StrPtr(s string) *string { return &s }

func TimePtr(t time.Time) *time.Time { return &t }

// CreateTestCountry inserts a country row directly
func CreateTestCountry(t *testing.T, db *gorm.DB, abbreviation, name string) *models.Country {
	country := &models.Country{
		Abbreviation: abbreviation,
		Name:         name,
	}
	if err := db.Create(country).Error; err != nil {
		t.Fatalf("Failed to create test country %s: %v", abbreviation, err)
	}
	return country
}

// CreateTestTourist inserts a tourist with a bcrypt-hashed password
func CreateTestTourist(t *testing.T, db *gorm.DB, email, password string) *models.Tourist {
	hash, err := utils.HashPasswordBcrypt(password, FixtureBcryptCost)
	if err != nil {
		t.Fatalf("Failed to hash fixture password: %v", err)
	}

	tourist := &models.Tourist{
		Email:    email,
		Password: hash,
	}
	if err := db.Create(tourist).Error; err != nil {
		t.Fatalf("Failed to create test tourist %s: %v", email, err)
	}
	return tourist
}

// CreateTestVisit inserts a visit row directly
func CreateTestVisit(t *testing.T, db *gorm.DB, touristID, countryID uint, date *time.Time) *models.Visit {
	visit := &models.Visit{
		TouristID: touristID,
		CountryID: countryID,
		Date:      models.NormalizeVisitDate(date),
	}
	if err := db.Create(visit).Error; err != nil {
		t.Fatalf("Failed to create test visit: %v", err)
	}
	return visit
}

// MarkDeleted flips the soft delete flag of any model row
func MarkDeleted(t *testing.T, db *gorm.DB, model any, id uint) {
	if err := db.Model(model).Where("id = ?", id).Update("deleted", true).Error; err != nil {
		t.Fatalf("Failed to soft delete fixture: %v", err)
	}
}
