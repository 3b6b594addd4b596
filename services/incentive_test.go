package services

import (
	"strings"
	"testing"
	"time"

	"rentmatch/models"
)

func TestCooldownWindow(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// One day after creation the 3-day cooldown still blocks.
	if !cooldownActive(&created, 3, created.AddDate(0, 0, 1)) {
		t.Fatalf("expected cooldown active at T+1 day")
	}
	// Four days after creation it no longer does.
	if cooldownActive(&created, 3, created.AddDate(0, 0, 4)) {
		t.Fatalf("expected cooldown expired at T+4 days")
	}
	// No prior incentive means no cooldown.
	if cooldownActive(nil, 3, created) {
		t.Fatalf("expected no cooldown without prior incentives")
	}
}

func TestDescribeIncentiveQualifiers(t *testing.T) {
	rule := highDemandRule()
	zone := &models.Zone{Name: "Malasaña"}
	strategy := incentiveStrategies[models.IncentiveHighDemand]

	// ratio 0.25 < 0.3 picks up the very-high-demand qualifier.
	desc := describeIncentive(rule, zone, MarketConditions{OfferDemandRatio: 0.25}, strategy)
	if !strings.Contains(desc, "Malasaña") {
		t.Fatalf("expected zone name in description, got %q", desc)
	}
	if !strings.Contains(desc, "very high demand") {
		t.Fatalf("expected very-high-demand qualifier at ratio 0.25, got %q", desc)
	}

	// ratio 4.0 > 3.0 picks up the good-moment qualifier instead.
	desc = describeIncentive(rule, zone, MarketConditions{OfferDemandRatio: 4.0}, strategy)
	if !strings.Contains(desc, "excellent moment") {
		t.Fatalf("expected good-moment qualifier at ratio 4.0, got %q", desc)
	}

	// Mid-range ratios add nothing.
	desc = describeIncentive(rule, zone, MarketConditions{OfferDemandRatio: 1.0}, strategy)
	if strings.Contains(desc, "very high demand") || strings.Contains(desc, "excellent moment") {
		t.Fatalf("did not expect qualifiers at ratio 1.0, got %q", desc)
	}
}

func TestDescribeIncentiveFallsBackToRuleDescription(t *testing.T) {
	rule := &models.IncentiveRule{Description: "Custom payout", IncentiveType: "mystery"}
	zone := &models.Zone{Name: "Chueca"}

	desc := describeIncentive(rule, zone, MarketConditions{OfferDemandRatio: 1.0}, incentiveStrategy{})
	if desc != "Custom payout" {
		t.Fatalf("expected rule description fallback, got %q", desc)
	}
}

func TestStrategyTableCoversKnownTypes(t *testing.T) {
	for _, incentiveType := range models.KnownIncentiveTypes {
		if _, ok := incentiveStrategies[incentiveType]; !ok {
			t.Fatalf("no strategy registered for %s", incentiveType)
		}
	}
}

func TestMarketBalanceHasNoRecipients(t *testing.T) {
	// Market-balance rules can fire but select nobody: no blind incentive
	// creation for types without an eligibility selector.
	strategy := incentiveStrategies[models.IncentiveMarketBalance]
	if strategy.selectUsers != nil {
		t.Fatalf("market_balance must not select eligible users")
	}
}
