package models

import (
	"time"

	"github.com/google/uuid"
)

// Roommate preference values
const (
	RoommatePrefNo      = "no"
	RoommatePrefLooking = "looking"
	RoommatePrefOpen    = "open"
)

// RoommatePreferences holds the free-form compatibility preferences a
// seeker states about potential roommates.
type RoommatePreferences struct {
	Gender   string `json:"gender,omitempty"` // "", "any", "male", "female", "other"
	SmokerOK *bool  `json:"smoker_ok,omitempty"`
	AgeMin   *int   `json:"age_min,omitempty"`
	AgeMax   *int   `json:"age_max,omitempty"`
}

// SearchProfile represents a user's stored preferences for finding a
// property or roommate. One per user, created on onboarding.
type SearchProfile struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	UserID         uuid.UUID           `json:"user_id" db:"user_id"`
	PreferredZones []uuid.UUID         `json:"preferred_zones" db:"preferred_zones"`
	Lat            *float64            `json:"lat" db:"lat"`
	Lng            *float64            `json:"lng" db:"lng"`
	BudgetMin      *float64            `json:"budget_min" db:"budget_min"`
	BudgetMax      *float64            `json:"budget_max" db:"budget_max"`
	DesiredTypes   []string            `json:"desired_types" db:"desired_types"`
	BedroomsMin    *int                `json:"bedrooms_min" db:"bedrooms_min"`
	BedroomsMax    *int                `json:"bedrooms_max" db:"bedrooms_max"`
	Amenities      []string            `json:"amenities" db:"amenities"`
	RoommatePref   string              `json:"roommate_pref" db:"roommate_pref"` // no, looking, open
	RoommatePrefs  RoommatePreferences `json:"roommate_prefs" db:"roommate_prefs"`
	Vibes          []string            `json:"vibes" db:"vibes"`
	Age            *int                `json:"age" db:"age"`
	ChildrenCount  int                 `json:"children_count" db:"children_count"`
	Smoker         bool                `json:"smoker" db:"smoker"`
	PetsCount      int                 `json:"pets_count" db:"pets_count"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
}

// WantsRoommate reports whether the profile is open to sharing.
func (p *SearchProfile) WantsRoommate() bool {
	return p.RoommatePref != "" && p.RoommatePref != RoommatePrefNo
}
