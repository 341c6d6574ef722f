package models

import "time"

type Tourist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      *string   `gorm:"type:varchar(100)" json:"name"`
	Email     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose password hash in JSON
	Deleted   bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TouristOutput is the public projection of a Tourist. It has no password or deleted field.
type TouristOutput struct {
	ID    uint    `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
}

func SanitizeTourist(t *Tourist) TouristOutput {
	return TouristOutput{
		ID:    t.ID,
		Name:  t.Name,
		Email: t.Email,
	}
}

func SanitizeTourists(tourists []Tourist) []TouristOutput {
	out := make([]TouristOutput, 0, len(tourists))
	for i := range tourists {
		out = append(out, SanitizeTourist(&tourists[i]))
	}
	return out
}
