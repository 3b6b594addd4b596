package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"rentmatch/models"
	"rentmatch/storage"
)

// ZoneService owns zone assignment, statistics recomputation and search
// logging.
type ZoneService struct {
	store *storage.PostgresStore
}

func NewZoneService(store *storage.PostgresStore) *ZoneService {
	return &ZoneService{store: store}
}

// AssignZone derives a property's zone from its coordinates. The zone
// reference is never authoritative input; properties without coordinates
// or outside every zone get a nil zone.
func (s *ZoneService) AssignZone(ctx context.Context, prop *models.Property) error {
	prop.ZoneID = nil
	if prop.Lat == nil || prop.Lng == nil {
		return nil
	}

	zone, err := s.store.FindZoneContaining(ctx, *prop.Lat, *prop.Lng)
	if err != nil {
		return err
	}
	if zone != nil {
		prop.ZoneID = &zone.ID
	}
	return nil
}

// RecomputeZoneStatistics rebuilds a zone's avg_price, offer_count and
// demand_count wholesale from the underlying facts. Idempotent and
// order-independent, so concurrent or repeated runs converge on the
// same values.
func (s *ZoneService) RecomputeZoneStatistics(ctx context.Context, zone *models.Zone) error {
	avgPrice, offerCount, err := s.store.GetZonePropertyAggregates(ctx, zone.ID)
	if err != nil {
		return err
	}

	since := time.Now().AddDate(0, 0, -30)
	demandCount, err := s.store.CountZoneSearchesSince(ctx, zone.ID, since)
	if err != nil {
		return err
	}

	return s.store.UpdateZoneStatistics(ctx, zone.ID, avgPrice, offerCount, demandCount)
}

// RecomputeAll sweeps every zone; per-zone failures are logged and do
// not stop the batch. Returns the number of zones recomputed.
func (s *ZoneService) RecomputeAll(ctx context.Context) (int, error) {
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range zones {
		if err := s.RecomputeZoneStatistics(ctx, &zones[i]); err != nil {
			log.Printf("Failed to recompute statistics for zone %s: %v", zones[i].Name, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// LogZoneSearch records a search event against a zone; these logs feed
// the demand counter and low-supply eligibility.
func (s *ZoneService) LogZoneSearch(ctx context.Context, zoneID uuid.UUID, userID *uuid.UUID, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	entry := &models.ZoneSearchLog{
		ZoneID:    zoneID,
		UserID:    userID,
		Params:    raw,
		CreatedAt: time.Now(),
	}
	return s.store.InsertZoneSearchLog(ctx, entry)
}
