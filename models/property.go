package models

import (
	"time"

	"github.com/google/uuid"
)

// Property represents a rental listing owned by a user. The zone
// reference is derived from the coordinates on save, never set directly.
type Property struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	OwnerID         uuid.UUID  `json:"owner_id" db:"owner_id"`
	PropertyType    string     `json:"property_type" db:"property_type"` // apartment, house, room, studio
	Lat             *float64   `json:"lat" db:"lat"`
	Lng             *float64   `json:"lng" db:"lng"`
	ZoneID          *uuid.UUID `json:"zone_id" db:"zone_id"`
	Price           float64    `json:"price" db:"price"`
	Bedrooms        int        `json:"bedrooms" db:"bedrooms"`
	Amenities       []string   `json:"amenities" db:"amenities"`
	Tags            []string   `json:"tags" db:"tags"`
	AllowsRoommates bool       `json:"allows_roommates" db:"allows_roommates"`
	MaxOccupancy    int        `json:"max_occupancy" db:"max_occupancy"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	AvgRating       *float64   `json:"avg_rating" db:"avg_rating"` // 1-5, maintained by the review system
	ReviewCount     int        `json:"review_count" db:"review_count"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
