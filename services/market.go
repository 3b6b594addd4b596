package services

import "rentmatch/models"

// MarketConditions summarizes a zone's supply/demand state, derived
// entirely from the zone's two counters.
type MarketConditions struct {
	HighDemand       bool    `json:"high_demand"`
	LowSupply        bool    `json:"low_supply"`
	BalancedMarket   bool    `json:"balanced_market"`
	Oversupply       bool    `json:"oversupply"`
	LowActivity      bool    `json:"low_activity"`
	OfferDemandRatio float64 `json:"offer_demand_ratio"`
	ActivityScore    float64 `json:"activity_score"`
}

// AnalyzeZone computes market-condition flags from a zone's offer and
// demand counters.
func AnalyzeZone(zone *models.Zone) MarketConditions {
	demand := float64(zone.DemandCount)
	offer := float64(zone.OfferCount)

	ratio := offer / max(demand, 1)
	activity := (offer + demand) / 2

	return MarketConditions{
		HighDemand:       zone.DemandCount > 10 && ratio < 0.5,
		LowSupply:        zone.OfferCount < 5 && zone.DemandCount > 5,
		BalancedMarket:   ratio >= 0.5 && ratio <= 2.0,
		Oversupply:       ratio > 3.0,
		LowActivity:      activity < 3,
		OfferDemandRatio: ratio,
		ActivityScore:    activity,
	}
}

// Urgent reports whether the zone's conditions warrant immediate
// incentive generation outside the scheduled cadence.
func (c MarketConditions) Urgent(zone *models.Zone) bool {
	switch {
	case c.HighDemand && c.OfferDemandRatio < 0.2:
		return true
	case c.LowSupply && zone.DemandCount > 15:
		return true
	case c.LowActivity && zone.AvgPrice > 0:
		return true
	}
	return false
}
