package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"rentmatch/config"
	"rentmatch/models"
	"rentmatch/storage"
)

var ErrIncentiveNotFound = errors.New("no active incentive found")

// incentiveStrategy bundles the per-type behavior: who receives the
// incentive and how it is described. Amount intensity lives in
// CalculateAmount. Types without a strategy never generate incentives.
type incentiveStrategy struct {
	selectUsers func(ctx context.Context, s *IncentiveService, zone *models.Zone) ([]uuid.UUID, error)
	describe    func(zoneName string) string
}

var incentiveStrategies = map[models.IncentiveType]incentiveStrategy{
	models.IncentiveHighDemand: {
		selectUsers: func(ctx context.Context, s *IncentiveService, zone *models.Zone) ([]uuid.UUID, error) {
			// Owners already listing in the zone.
			return s.store.ListZoneOwnerIDs(ctx, zone.ID, 5)
		},
		describe: func(zoneName string) string {
			return fmt.Sprintf("High demand in %s! Incentive for listing your property in this popular zone.", zoneName)
		},
	},
	models.IncentiveLowSupply: {
		selectUsers: func(ctx context.Context, s *IncentiveService, zone *models.Zone) ([]uuid.UUID, error) {
			// Users who searched the zone in the last 30 days.
			since := time.Now().AddDate(0, 0, -30)
			return s.store.ListZoneSearcherIDs(ctx, zone.ID, since, 10)
		},
		describe: func(zoneName string) string {
			return fmt.Sprintf("Few options in %s. This incentive helps you find your ideal home.", zoneName)
		},
	},
	models.IncentiveMarketBalance: {
		describe: func(zoneName string) string {
			return fmt.Sprintf("Market balance incentive for %s.", zoneName)
		},
	},
	models.IncentiveZonePromotion: {
		selectUsers: func(ctx context.Context, s *IncentiveService, zone *models.Zone) ([]uuid.UUID, error) {
			// Generally active users, logged in within the last week.
			since := time.Now().AddDate(0, 0, -7)
			return s.store.ListRecentlyActiveUserIDs(ctx, since, 3)
		},
		describe: func(zoneName string) string {
			return fmt.Sprintf("Discover the opportunities in %s! Special promotional incentive.", zoneName)
		},
	},
}

// IncentiveService generates, expires and cleans up incentives based on
// zone market conditions and the configured rules.
type IncentiveService struct {
	store *storage.PostgresStore
	cfg   config.IncentiveConfig
}

func NewIncentiveService(store *storage.PostgresStore, cfg config.IncentiveConfig) *IncentiveService {
	return &IncentiveService{store: store, cfg: cfg}
}

// GenerateAll runs incentive generation over every zone. A zone's
// failure is logged and does not stop the batch.
func (s *IncentiveService) GenerateAll(ctx context.Context) (int, error) {
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range zones {
		created, err := s.GenerateForZone(ctx, &zones[i])
		if err != nil {
			log.Printf("Incentive generation failed for zone %s: %v", zones[i].Name, err)
			continue
		}
		total += created
	}
	return total, nil
}

// GenerateForZone evaluates every active rule against a zone and creates
// incentives for eligible users. Cooldown and per-user duplicate guards
// keep generation from running away; per-user failures are logged and
// skipped.
func (s *IncentiveService) GenerateForZone(ctx context.Context, zone *models.Zone) (int, error) {
	rules, err := s.store.ListRules(ctx, true)
	if err != nil {
		return 0, err
	}

	conditions := AnalyzeZone(zone)
	created := 0

	for i := range rules {
		rule := &rules[i]
		if !CheckConditions(rule, zone) {
			continue
		}

		inCooldown, err := s.isInCooldown(ctx, rule, zone)
		if err != nil {
			log.Printf("Cooldown check failed for rule %q in zone %s: %v", rule.Name, zone.Name, err)
			continue
		}
		if inCooldown {
			continue
		}

		strategy, ok := incentiveStrategies[rule.IncentiveType]
		if !ok || strategy.selectUsers == nil {
			continue
		}

		userIDs, err := strategy.selectUsers(ctx, s, zone)
		if err != nil {
			log.Printf("Eligible-user selection failed for rule %q in zone %s: %v", rule.Name, zone.Name, err)
			continue
		}

		for _, userID := range userIDs {
			ok, err := s.createIncentive(ctx, userID, zone, rule, conditions, strategy)
			if err != nil {
				log.Printf("Failed to create incentive for user %s in zone %s: %v", userID, zone.Name, err)
				continue
			}
			if ok {
				created++
			}
		}
	}

	return created, nil
}

// isInCooldown reports whether an incentive of this rule's type was
// created for the zone within the cooldown window. Best-effort: a narrow
// race with a concurrent generator can slip through; the per-user
// duplicate guard still bounds the damage.
func (s *IncentiveService) isInCooldown(ctx context.Context, rule *models.IncentiveRule, zone *models.Zone) (bool, error) {
	latest, err := s.store.LatestIncentiveTime(ctx, zone.ID, rule.IncentiveType)
	if err != nil {
		return false, err
	}
	return cooldownActive(latest, rule.CooldownDays, time.Now()), nil
}

// cooldownActive reports whether the latest incentive of a type for a
// zone still blocks generation at the given time.
func cooldownActive(latest *time.Time, cooldownDays int, now time.Time) bool {
	if latest == nil {
		return false
	}
	return latest.After(now.AddDate(0, 0, -cooldownDays))
}

func (s *IncentiveService) createIncentive(ctx context.Context, userID uuid.UUID, zone *models.Zone, rule *models.IncentiveRule, conditions MarketConditions, strategy incentiveStrategy) (bool, error) {
	now := time.Now()
	zoneID := zone.ID

	incentive := &models.Incentive{
		ID:                uuid.New(),
		UserID:            userID,
		ZoneID:            &zoneID,
		Amount:            CalculateAmount(rule, zone),
		Description:       describeIncentive(rule, zone, conditions, strategy),
		IncentiveType:     rule.IncentiveType,
		IsActive:          true,
		ValidUntil:        now.AddDate(0, 0, rule.DurationDays),
		OfferDemandRatio:  conditions.OfferDemandRatio,
		ZoneActivityScore: conditions.ActivityScore,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Insert no-ops when the user already holds an active, unexpired
	// incentive of this type for the zone.
	return s.store.InsertIncentive(ctx, incentive)
}

// describeIncentive renders the human-readable description: the type's
// template decorated with ratio-derived qualifiers.
func describeIncentive(rule *models.IncentiveRule, zone *models.Zone, conditions MarketConditions, strategy incentiveStrategy) string {
	description := rule.Description
	if strategy.describe != nil {
		description = strategy.describe(zone.Name)
	}

	if conditions.OfferDemandRatio < 0.3 {
		description += " Zone with very high demand."
	} else if conditions.OfferDemandRatio > 3.0 {
		description += " An excellent moment to find options."
	}

	return description
}

// ProcessZoneActivity reacts to a zone's counters changing: when the
// market conditions look urgent, generation runs immediately instead of
// waiting for the next scheduled pass.
func (s *IncentiveService) ProcessZoneActivity(ctx context.Context, zone *models.Zone) (int, error) {
	conditions := AnalyzeZone(zone)
	if !conditions.Urgent(zone) {
		return 0, nil
	}

	log.Printf("Urgent market conditions in zone %s (ratio=%.2f), generating incentives", zone.Name, conditions.OfferDemandRatio)
	return s.GenerateForZone(ctx, zone)
}

// ExpireOld deactivates incentives past their validity window and
// returns how many were flipped.
func (s *IncentiveService) ExpireOld(ctx context.Context) (int64, error) {
	count, err := s.store.ExpireIncentives(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("Expired %d incentives", count)
	}
	return count, nil
}

// Cleanup deletes inactive incentives past the retention window.
func (s *IncentiveService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	count, err := s.store.DeleteInactiveIncentivesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("Cleaned up %d inactive incentives", count)
	}
	return count, nil
}

// ActiveIncentivesForUser returns a user's active, unexpired incentives.
func (s *IncentiveService) ActiveIncentivesForUser(ctx context.Context, userID uuid.UUID) ([]models.Incentive, error) {
	return s.store.ListActiveIncentivesForUser(ctx, userID, time.Now())
}

// UseIncentive consumes an incentive, flipping it inactive. Only the
// holder may use it.
func (s *IncentiveService) UseIncentive(ctx context.Context, userID, incentiveID uuid.UUID) error {
	used, err := s.store.DeactivateIncentive(ctx, incentiveID, userID)
	if err != nil {
		return err
	}
	if !used {
		return ErrIncentiveNotFound
	}
	return nil
}
