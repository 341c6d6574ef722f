package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when a write violates a unique index.
// The storage constraint is the final authority on uniqueness.
var ErrDuplicateKey = errors.New("duplicate key")

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// first runs q.First and maps "no row" to (nil, nil)
func first[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
