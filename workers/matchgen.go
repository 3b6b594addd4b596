package workers

import (
	"context"
	"log"
	"time"

	"rentmatch/services"
	"rentmatch/storage"
)

// MatchGenWorker drains the reactive match-generation queue: properties
// created or updated since their last fan-out are scored against stored
// profiles in bounded batches, decoupling listing latency from match
// cost.
type MatchGenWorker struct {
	store     *storage.PostgresStore
	ops       *storage.SQLiteStore
	matches   *services.MatchService
	triggerCh chan struct{}
}

func NewMatchGenWorker(store *storage.PostgresStore, ops *storage.SQLiteStore, matches *services.MatchService) *MatchGenWorker {
	return &MatchGenWorker{
		store:     store,
		ops:       ops,
		matches:   matches,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately.
func (w *MatchGenWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *MatchGenWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Match generation worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *MatchGenWorker) processBatch(ctx context.Context, batchSize int) {
	properties, err := w.store.ListPropertiesNeedingMatchGen(ctx, batchSize)
	if err != nil {
		log.Printf("Match generation worker: query error: %v", err)
		return
	}

	if len(properties) == 0 {
		return
	}

	runID, err := w.ops.CreateRun("matchgen", time.Now())
	if err != nil {
		log.Printf("Match generation worker: run log error: %v", err)
	}

	log.Printf("Match generation worker: processing %d properties", len(properties))

	var processed, failed int
	for i := range properties {
		prop := &properties[i]

		stored, err := w.matches.GenerateMatchesForProperty(ctx, prop)
		if err != nil {
			log.Printf("Match generation worker: failed %s: %v", prop.ID, err)
			failed++
			continue
		}

		// Mark done even when zero matches cleared the threshold; the
		// fan-out for this version of the property is complete.
		if err := w.store.MarkPropertyMatchGenerated(ctx, prop.ID); err != nil {
			log.Printf("Match generation worker: mark error %s: %v", prop.ID, err)
			failed++
			continue
		}

		processed++
		if stored > 0 {
			log.Printf("Match generation worker: property %s produced %d matches", prop.ID, stored)
		}
	}

	if runID != 0 {
		status := "completed"
		if failed > 0 {
			status = "completed_with_errors"
		}
		if err := w.ops.FinishRun(runID, status, processed, failed); err != nil {
			log.Printf("Match generation worker: run log error: %v", err)
		}
	}
}
