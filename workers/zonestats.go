package workers

import (
	"context"
	"log"
	"time"

	"rentmatch/services"
	"rentmatch/storage"
)

// ZoneStatsWorker rebuilds every zone's counters from the underlying
// facts and hands zones with urgent market conditions to the incentive
// service. It has no ticker of its own: the scheduler's zone sweep cron
// and queued commands drive it through Trigger.
type ZoneStatsWorker struct {
	store      *storage.PostgresStore
	ops        *storage.SQLiteStore
	zones      *services.ZoneService
	incentives *services.IncentiveService
	triggerCh  chan struct{}
}

func NewZoneStatsWorker(store *storage.PostgresStore, ops *storage.SQLiteStore, zones *services.ZoneService, incentives *services.IncentiveService) *ZoneStatsWorker {
	return &ZoneStatsWorker{
		store:      store,
		ops:        ops,
		zones:      zones,
		incentives: incentives,
		triggerCh:  make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately.
func (w *ZoneStatsWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *ZoneStatsWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Zone stats worker stopping")
			return
		case <-w.triggerCh:
			w.Sweep(ctx)
		}
	}
}

// Sweep recomputes statistics for every zone, then re-reads the fresh
// counters and triggers urgent incentive generation where warranted.
// Per-zone failures are logged and skipped.
func (w *ZoneStatsWorker) Sweep(ctx context.Context) {
	zones, err := w.store.ListZones(ctx)
	if err != nil {
		log.Printf("Zone stats worker: query error: %v", err)
		return
	}

	if len(zones) == 0 {
		return
	}

	runID, err := w.ops.CreateRun("zonestats", time.Now())
	if err != nil {
		log.Printf("Zone stats worker: run log error: %v", err)
	}

	var processed, failed int
	for i := range zones {
		zone := &zones[i]

		if err := w.zones.RecomputeZoneStatistics(ctx, zone); err != nil {
			log.Printf("Zone stats worker: recompute failed for %s: %v", zone.Name, err)
			failed++
			continue
		}

		fresh, err := w.store.GetZoneByID(ctx, zone.ID)
		if err != nil || fresh == nil {
			log.Printf("Zone stats worker: reload failed for %s: %v", zone.Name, err)
			failed++
			continue
		}

		if _, err := w.incentives.ProcessZoneActivity(ctx, fresh); err != nil {
			log.Printf("Zone stats worker: urgent generation failed for %s: %v", zone.Name, err)
			failed++
			continue
		}

		processed++
	}

	log.Printf("Zone stats worker: recomputed %d zones (%d failed)", processed, failed)

	if runID != 0 {
		status := "completed"
		if failed > 0 {
			status = "completed_with_errors"
		}
		if err := w.ops.FinishRun(runID, status, processed, failed); err != nil {
			log.Printf("Zone stats worker: run log error: %v", err)
		}
	}
}
