package services

import (
	"strings"
	"testing"

	"rentmatch/models"
)

func intPtr(v int) *int { return &v }

func highDemandRule() *models.IncentiveRule {
	return &models.IncentiveRule{
		Name:                "High Demand",
		IncentiveType:       models.IncentiveHighDemand,
		MinDemandCount:      intPtr(10),
		MaxOfferDemandRatio: floatPtr(0.5),
		BaseAmount:          50,
		Multiplier:          1.0,
		MaxAmount:           150,
		DurationDays:        7,
		CooldownDays:        3,
		IsActive:            true,
	}
}

func TestCheckConditionsThresholds(t *testing.T) {
	rule := highDemandRule()

	if !CheckConditions(rule, &models.Zone{OfferCount: 3, DemandCount: 12}) {
		t.Fatalf("expected rule to apply at demand 12, ratio 0.25")
	}
	if CheckConditions(rule, &models.Zone{OfferCount: 3, DemandCount: 8}) {
		t.Fatalf("expected rule rejected below min demand")
	}
	if CheckConditions(rule, &models.Zone{OfferCount: 10, DemandCount: 12}) {
		t.Fatalf("expected rule rejected above max ratio")
	}
}

func TestCheckConditionsInactiveRule(t *testing.T) {
	rule := highDemandRule()
	rule.IsActive = false

	if CheckConditions(rule, &models.Zone{OfferCount: 3, DemandCount: 12}) {
		t.Fatalf("inactive rule must never apply")
	}
}

func TestCheckConditionsUnsetThresholdsAreUnconstrained(t *testing.T) {
	rule := &models.IncentiveRule{
		Name:          "Promo",
		IncentiveType: models.IncentiveZonePromotion,
		BaseAmount:    40,
		Multiplier:    1,
		MaxAmount:     120,
		DurationDays:  14,
		IsActive:      true,
	}

	if !CheckConditions(rule, &models.Zone{}) {
		t.Fatalf("rule without thresholds should apply to any zone")
	}
}

func TestCalculateAmountCappedAtMax(t *testing.T) {
	rule := highDemandRule()
	zone := &models.Zone{OfferCount: 3, DemandCount: 40}

	// intensity = min(40/10, 3.0) = 3.0 => 50*3.0*1.0 = 150, exactly at cap
	amount := CalculateAmount(rule, zone)
	if amount != 150 {
		t.Fatalf("expected amount capped at 150, got %v", amount)
	}
}

func TestCalculateAmountLowSupplyIntensity(t *testing.T) {
	rule := &models.IncentiveRule{
		IncentiveType: models.IncentiveLowSupply,
		BaseAmount:    30,
		Multiplier:    1.0,
		MaxAmount:     100,
	}

	// intensity = max(1.0, 10/2) = 5 => 30*5 = 150 => capped at 100
	amount := CalculateAmount(rule, &models.Zone{OfferCount: 2, DemandCount: 10})
	if amount != 100 {
		t.Fatalf("expected amount capped at 100, got %v", amount)
	}

	// Zero offers must not divide by zero; intensity = max(1, 10/1) = 10.
	amount = CalculateAmount(rule, &models.Zone{OfferCount: 0, DemandCount: 10})
	if amount != 100 {
		t.Fatalf("expected amount capped at 100 for zero offers, got %v", amount)
	}
}

func TestCalculateAmountStaticMultiplier(t *testing.T) {
	rule := &models.IncentiveRule{
		IncentiveType: models.IncentiveMarketBalance,
		BaseAmount:    25,
		Multiplier:    2.0,
		MaxAmount:     75,
	}

	amount := CalculateAmount(rule, &models.Zone{OfferCount: 10, DemandCount: 10})
	if amount != 50 {
		t.Fatalf("expected 25*2.0 = 50, got %v", amount)
	}
}

func TestCalculateAmountNeverExceedsCap(t *testing.T) {
	zones := []*models.Zone{
		{},
		{OfferCount: 0, DemandCount: 0},
		{OfferCount: 1, DemandCount: 1000},
		{OfferCount: 1000, DemandCount: 1},
	}

	for _, incentiveType := range models.KnownIncentiveTypes {
		rule := &models.IncentiveRule{
			IncentiveType: incentiveType,
			BaseAmount:    50,
			Multiplier:    10,
			MaxAmount:     150,
		}
		for _, zone := range zones {
			if amount := CalculateAmount(rule, zone); amount > rule.MaxAmount {
				t.Fatalf("%s: amount %v exceeds cap %v", incentiveType, amount, rule.MaxAmount)
			}
		}
	}
}

func TestValidateRuleRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.IncentiveRule)
		want   string
	}{
		{"empty name", func(r *models.IncentiveRule) { r.Name = "" }, "name"},
		{"unknown type", func(r *models.IncentiveRule) { r.IncentiveType = "mystery" }, "incentive type"},
		{"base over max", func(r *models.IncentiveRule) { r.BaseAmount = 200 }, "max_amount"},
		{"zero multiplier", func(r *models.IncentiveRule) { r.Multiplier = 0 }, "multiplier"},
		{"zero duration", func(r *models.IncentiveRule) { r.DurationDays = 0 }, "duration_days"},
		{"negative cooldown", func(r *models.IncentiveRule) { r.CooldownDays = -1 }, "cooldown_days"},
		{"inverted ratio bounds", func(r *models.IncentiveRule) {
			r.MinOfferDemandRatio = floatPtr(2.0)
			r.MaxOfferDemandRatio = floatPtr(0.5)
		}, "ratio"},
	}

	for _, tc := range cases {
		rule := highDemandRule()
		tc.mutate(rule)

		err := ValidateRule(rule)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateRuleAcceptsSeedDefaults(t *testing.T) {
	if err := ValidateRule(highDemandRule()); err != nil {
		t.Fatalf("expected default rule to validate, got %v", err)
	}
}
