package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"rentmatch/config"
	"rentmatch/models"
	"rentmatch/storage"
)

var ErrNotAuthorized = errors.New("caller is not authorized to manage rules")

// RuleService evaluates incentive rules against zone metrics and owns
// the administrative rule CRUD.
type RuleService struct {
	store *storage.PostgresStore
}

func NewRuleService(store *storage.PostgresStore) *RuleService {
	return &RuleService{store: store}
}

// CheckConditions reports whether a rule's activation thresholds hold
// for a zone. Unset thresholds are not constraints.
func CheckConditions(rule *models.IncentiveRule, zone *models.Zone) bool {
	if !rule.IsActive {
		return false
	}

	if rule.MinDemandCount != nil && zone.DemandCount < *rule.MinDemandCount {
		return false
	}
	if rule.MaxDemandCount != nil && zone.DemandCount > *rule.MaxDemandCount {
		return false
	}
	if rule.MaxOfferCount != nil && zone.OfferCount > *rule.MaxOfferCount {
		return false
	}

	ratio := float64(zone.OfferCount) / math.Max(float64(zone.DemandCount), 1)
	if rule.MinOfferDemandRatio != nil && ratio < *rule.MinOfferDemandRatio {
		return false
	}
	if rule.MaxOfferDemandRatio != nil && ratio > *rule.MaxOfferDemandRatio {
		return false
	}

	return true
}

// CalculateAmount computes the incentive payout for a rule applied to a
// zone. The intensity factor scales with how pronounced the market
// condition is; the rule's max_amount is a hard cap.
func CalculateAmount(rule *models.IncentiveRule, zone *models.Zone) float64 {
	intensity := 1.0
	switch rule.IncentiveType {
	case models.IncentiveHighDemand:
		intensity = math.Min(float64(zone.DemandCount)/10, 3.0)
	case models.IncentiveLowSupply:
		intensity = math.Max(1.0, 10/math.Max(float64(zone.OfferCount), 1))
	}

	amount := rule.BaseAmount * intensity * rule.Multiplier
	return math.Min(amount, rule.MaxAmount)
}

// ValidateRule rejects malformed threshold or payout configuration.
func ValidateRule(r *models.IncentiveRule) error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.IncentiveType.Known() {
		return fmt.Errorf("unknown incentive type %q", r.IncentiveType)
	}
	if r.BaseAmount < 0 || r.MaxAmount < 0 {
		return fmt.Errorf("amounts must be non-negative")
	}
	if r.BaseAmount > r.MaxAmount {
		return fmt.Errorf("base_amount %.2f exceeds max_amount %.2f", r.BaseAmount, r.MaxAmount)
	}
	if r.Multiplier <= 0 {
		return fmt.Errorf("multiplier must be positive")
	}
	if r.DurationDays <= 0 {
		return fmt.Errorf("duration_days must be positive")
	}
	if r.CooldownDays < 0 {
		return fmt.Errorf("cooldown_days must be non-negative")
	}
	if r.MinDemandCount != nil && *r.MinDemandCount < 0 {
		return fmt.Errorf("min_demand_count must be non-negative")
	}
	if r.MaxOfferCount != nil && *r.MaxOfferCount < 0 {
		return fmt.Errorf("max_offer_count must be non-negative")
	}
	if r.MinOfferDemandRatio != nil && r.MaxOfferDemandRatio != nil &&
		*r.MinOfferDemandRatio > *r.MaxOfferDemandRatio {
		return fmt.Errorf("min_offer_demand_ratio exceeds max_offer_demand_ratio")
	}
	return nil
}

// SaveRule creates or updates a rule. Only privileged callers may
// mutate rules; the authorization decision itself is made upstream.
func (s *RuleService) SaveRule(ctx context.Context, isAdmin bool, rule *models.IncentiveRule) error {
	if !isAdmin {
		return ErrNotAuthorized
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	return s.store.UpsertRule(ctx, rule)
}

func (s *RuleService) DeleteRule(ctx context.Context, isAdmin bool, id uuid.UUID) error {
	if !isAdmin {
		return ErrNotAuthorized
	}
	return s.store.DeleteRule(ctx, id)
}

func (s *RuleService) ListRules(ctx context.Context, activeOnly bool) ([]models.IncentiveRule, error) {
	return s.store.ListRules(ctx, activeOnly)
}

// SeedRules inserts the configured default rules, skipping names that
// already exist so administrator edits survive restarts.
func (s *RuleService) SeedRules(ctx context.Context, seeds []config.RuleSeed) (int, error) {
	created := 0
	now := time.Now()

	for _, seed := range seeds {
		rule := &models.IncentiveRule{
			ID:                  uuid.New(),
			Name:                seed.Name,
			Description:         seed.Description,
			IncentiveType:       models.IncentiveType(seed.IncentiveType),
			MinDemandCount:      seed.MinDemandCount,
			MaxDemandCount:      seed.MaxDemandCount,
			MaxOfferCount:       seed.MaxOfferCount,
			MinOfferDemandRatio: seed.MinOfferDemandRatio,
			MaxOfferDemandRatio: seed.MaxOfferDemandRatio,
			BaseAmount:          seed.BaseAmount,
			Multiplier:          seed.Multiplier,
			MaxAmount:           seed.MaxAmount,
			DurationDays:        seed.DurationDays,
			CooldownDays:        seed.CooldownDays,
			IsActive:            seed.Active,
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		if err := ValidateRule(rule); err != nil {
			log.Printf("Skipping invalid rule seed %q: %v", seed.Name, err)
			continue
		}

		inserted, err := s.store.InsertRuleIfAbsent(ctx, rule)
		if err != nil {
			return created, fmt.Errorf("seed rule %q: %w", seed.Name, err)
		}
		if inserted {
			created++
		}
	}

	return created, nil
}
