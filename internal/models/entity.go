package models

// Entity names used in lifecycle events, journal entries and metric labels
const (
	EntityCountry = "country"
	EntityTourist = "tourist"
	EntityVisit   = "visit"
)
