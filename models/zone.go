package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Zone represents a bounded geographic market area with rolling
// statistics. offer_count and demand_count are recomputed wholesale from
// active properties and recent search logs, never hand-incremented.
// match_activity_score is a monotonic accumulator bumped on match creation.
type Zone struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	LatMin             float64   `json:"lat_min" db:"lat_min"`
	LatMax             float64   `json:"lat_max" db:"lat_max"`
	LngMin             float64   `json:"lng_min" db:"lng_min"`
	LngMax             float64   `json:"lng_max" db:"lng_max"`
	AvgPrice           float64   `json:"avg_price" db:"avg_price"`
	OfferCount         int       `json:"offer_count" db:"offer_count"`
	DemandCount        int       `json:"demand_count" db:"demand_count"`
	MatchActivityScore float64   `json:"match_activity_score" db:"match_activity_score"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// ZoneSearchLog records a search against a zone; recent entries drive the
// zone's demand_count.
type ZoneSearchLog struct {
	ID        int64           `json:"id" db:"id"`
	ZoneID    uuid.UUID       `json:"zone_id" db:"zone_id"`
	UserID    *uuid.UUID      `json:"user_id" db:"user_id"` // nil for anonymous searches
	Params    json.RawMessage `json:"params" db:"params"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
