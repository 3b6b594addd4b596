package models

import (
	"time"

	"github.com/google/uuid"
)

type IncentiveType string

const (
	IncentiveHighDemand    IncentiveType = "high_demand"
	IncentiveLowSupply     IncentiveType = "low_supply"
	IncentiveMarketBalance IncentiveType = "market_balance"
	IncentiveZonePromotion IncentiveType = "zone_promotion"
)

// KnownIncentiveTypes lists the closed set of types the engine models.
var KnownIncentiveTypes = []IncentiveType{
	IncentiveHighDemand,
	IncentiveLowSupply,
	IncentiveMarketBalance,
	IncentiveZonePromotion,
}

func (t IncentiveType) Known() bool {
	for _, known := range KnownIncentiveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IncentiveRule is a configurable condition-and-payout definition.
// Threshold pointers are nil when unconstrained. Mutated only by
// administrators.
type IncentiveRule struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	Name                string        `json:"name" db:"name"`
	Description         string        `json:"description" db:"description"`
	IncentiveType       IncentiveType `json:"incentive_type" db:"incentive_type"`
	MinDemandCount      *int          `json:"min_demand_count" db:"min_demand_count"`
	MaxDemandCount      *int          `json:"max_demand_count" db:"max_demand_count"`
	MaxOfferCount       *int          `json:"max_offer_count" db:"max_offer_count"`
	MinOfferDemandRatio *float64      `json:"min_offer_demand_ratio" db:"min_offer_demand_ratio"`
	MaxOfferDemandRatio *float64      `json:"max_offer_demand_ratio" db:"max_offer_demand_ratio"`
	BaseAmount          float64       `json:"base_amount" db:"base_amount"`
	Multiplier          float64       `json:"multiplier" db:"multiplier"`
	MaxAmount           float64       `json:"max_amount" db:"max_amount"`
	DurationDays        int           `json:"duration_days" db:"duration_days"`
	CooldownDays        int           `json:"cooldown_days" db:"cooldown_days"`
	IsActive            bool          `json:"is_active" db:"is_active"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// Incentive is a monetary nudge granted to a user. The triggering market
// snapshot (ratio, activity score) is frozen at creation time.
type Incentive struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	UserID            uuid.UUID     `json:"user_id" db:"user_id"`
	ZoneID            *uuid.UUID    `json:"zone_id" db:"zone_id"`
	Amount            float64       `json:"amount" db:"amount"`
	Description       string        `json:"description" db:"description"`
	IncentiveType     IncentiveType `json:"incentive_type" db:"incentive_type"`
	IsActive          bool          `json:"is_active" db:"is_active"`
	ValidUntil        time.Time     `json:"valid_until" db:"valid_until"`
	OfferDemandRatio  float64       `json:"offer_demand_ratio" db:"offer_demand_ratio"`
	ZoneActivityScore float64       `json:"zone_activity_score" db:"zone_activity_score"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}
