package services

import (
	"testing"

	"rentmatch/models"
)

func TestAnalyzeZoneHighDemandLowSupply(t *testing.T) {
	zone := &models.Zone{OfferCount: 3, DemandCount: 12}

	c := AnalyzeZone(zone)
	if c.OfferDemandRatio != 0.25 {
		t.Fatalf("expected ratio 0.25, got %v", c.OfferDemandRatio)
	}
	if !c.HighDemand {
		t.Fatalf("expected high_demand with demand 12 and ratio 0.25")
	}
	if !c.LowSupply {
		t.Fatalf("expected low_supply with offer 3 and demand 12")
	}
	if c.BalancedMarket {
		t.Fatalf("ratio 0.25 should not be balanced")
	}
	if c.ActivityScore != 7.5 {
		t.Fatalf("expected activity 7.5, got %v", c.ActivityScore)
	}
}

func TestAnalyzeZoneZeroCounters(t *testing.T) {
	zone := &models.Zone{}

	c := AnalyzeZone(zone)
	if c.OfferDemandRatio != 0 {
		t.Fatalf("expected ratio 0 with zero demand, got %v", c.OfferDemandRatio)
	}
	if !c.LowActivity {
		t.Fatalf("expected low_activity for an empty zone")
	}
	if c.HighDemand || c.LowSupply || c.Oversupply {
		t.Fatalf("empty zone should not trip demand/supply flags: %+v", c)
	}
}

func TestAnalyzeZoneOversupply(t *testing.T) {
	zone := &models.Zone{OfferCount: 40, DemandCount: 10}

	c := AnalyzeZone(zone)
	if !c.Oversupply {
		t.Fatalf("expected oversupply at ratio 4.0")
	}
	if c.BalancedMarket {
		t.Fatalf("ratio 4.0 should not be balanced")
	}
}

func TestAnalyzeZoneBalanced(t *testing.T) {
	zone := &models.Zone{OfferCount: 10, DemandCount: 10}

	c := AnalyzeZone(zone)
	if !c.BalancedMarket {
		t.Fatalf("expected balanced market at ratio 1.0")
	}
}

func TestUrgentConditions(t *testing.T) {
	// Extreme demand imbalance.
	zone := &models.Zone{OfferCount: 2, DemandCount: 20}
	if !AnalyzeZone(zone).Urgent(zone) {
		t.Fatalf("expected urgency at ratio 0.1 with high demand")
	}

	// Low supply with heavy demand.
	zone = &models.Zone{OfferCount: 4, DemandCount: 16}
	if !AnalyzeZone(zone).Urgent(zone) {
		t.Fatalf("expected urgency with low supply and demand 16")
	}

	// Quiet zone with a known price level.
	zone = &models.Zone{OfferCount: 1, DemandCount: 1, AvgPrice: 900}
	if !AnalyzeZone(zone).Urgent(zone) {
		t.Fatalf("expected urgency for low activity with avg price set")
	}

	// Quiet zone with no price data is not urgent.
	zone = &models.Zone{OfferCount: 1, DemandCount: 1}
	if AnalyzeZone(zone).Urgent(zone) {
		t.Fatalf("did not expect urgency without price data")
	}

	// Healthy zone.
	zone = &models.Zone{OfferCount: 10, DemandCount: 10}
	if AnalyzeZone(zone).Urgent(zone) {
		t.Fatalf("did not expect urgency for a balanced zone")
	}
}
