package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the tables in dependency order
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Country{}, &Tourist{}, &Visit{})
}
