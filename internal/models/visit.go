package models

import "time"

// Visit is owned by a Tourist and references a Country.
// (date, country_id, tourist_id) is unique; NULL dates never collide.
type Visit struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TouristID uint       `gorm:"not null;index;uniqueIndex:idx_visit_triple,priority:3" json:"touristId"`
	CountryID uint       `gorm:"not null;index;uniqueIndex:idx_visit_triple,priority:2" json:"countryId"`
	Date      *time.Time `gorm:"uniqueIndex:idx_visit_triple,priority:1" json:"date"`
	Deleted   bool       `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`

	// Foreign Key Relationships
	Tourist *Tourist `gorm:"foreignKey:TouristID;constraint:OnDelete:RESTRICT" json:"-"`
	Country *Country `gorm:"foreignKey:CountryID;constraint:OnDelete:RESTRICT" json:"-"`
}

type VisitOutput struct {
	ID        uint       `json:"id"`
	TouristID uint       `json:"touristId"`
	CountryID uint       `json:"countryId"`
	Date      *time.Time `json:"date"`
}

func SanitizeVisit(v *Visit) VisitOutput {
	return VisitOutput{
		ID:        v.ID,
		TouristID: v.TouristID,
		CountryID: v.CountryID,
		Date:      v.Date,
	}
}

func SanitizeVisits(visits []Visit) []VisitOutput {
	out := make([]VisitOutput, 0, len(visits))
	for i := range visits {
		out = append(out, SanitizeVisit(&visits[i]))
	}
	return out
}

// NormalizeVisitDate pins a visit date to UTC with second precision so the
// uniqueness triple compares equal across drivers.
func NormalizeVisitDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	n := d.UTC().Truncate(time.Second)
	return &n
}
