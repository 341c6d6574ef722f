package models

import "time"

type Country struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Abbreviation string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"abbreviation"`
	Name         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Capital      *string   `gorm:"type:varchar(100)" json:"capital"`
	Deleted      bool      `gorm:"not null;default:false;index" json:"-"` // Soft delete flag, never exposed
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// CountryOutput is the public projection of a Country
type CountryOutput struct {
	ID           uint    `json:"id"`
	Abbreviation string  `json:"abbreviation"`
	Name         string  `json:"name"`
	Capital      *string `json:"capital"`
}

func SanitizeCountry(c *Country) CountryOutput {
	return CountryOutput{
		ID:           c.ID,
		Abbreviation: c.Abbreviation,
		Name:         c.Name,
		Capital:      c.Capital,
	}
}

func SanitizeCountries(countries []Country) []CountryOutput {
	out := make([]CountryOutput, 0, len(countries))
	for i := range countries {
		out = append(out, SanitizeCountry(&countries[i]))
	}
	return out
}
