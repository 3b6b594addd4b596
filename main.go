package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentmatch/config"
	"rentmatch/logging"
	"rentmatch/scheduler"
	"rentmatch/services"
	"rentmatch/storage"
	"rentmatch/workers"
)

var (
	generateNow  = flag.Bool("generate", false, "Run incentive generation once and exit")
	expireNow    = flag.Bool("expire", false, "Expire old incentives once and exit")
	cleanupNow   = flag.Bool("cleanup", false, "Delete stale inactive incentives once and exit")
	recomputeNow = flag.Bool("recompute", false, "Recompute zone statistics once and exit")
	seedRules    = flag.Bool("seed-rules", false, "Seed default incentive rules and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("engine.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting rentmatch engine...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	matchService := services.NewMatchService(pgStore, cfg.Matching)
	incentiveService := services.NewIncentiveService(pgStore, cfg.Incentives)
	zoneService := services.NewZoneService(pgStore)
	ruleService := services.NewRuleService(pgStore)

	log.Println("Services initialized")

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	// Handle one-shot commands
	switch {
	case *seedRules:
		seeds, err := config.LoadRuleSeeds(cfg.Incentives.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load rule seeds: %v", err)
		}
		created, err := ruleService.SeedRules(ctx, seeds)
		if err != nil {
			log.Fatalf("Failed to seed rules: %v", err)
		}
		log.Printf("Seeded %d rules", created)
		return

	case *generateNow:
		created, err := incentiveService.GenerateAll(ctx)
		if err != nil {
			log.Fatalf("Incentive generation failed: %v", err)
		}
		log.Printf("Generated %d incentives", created)
		return

	case *expireNow:
		count, err := incentiveService.ExpireOld(ctx)
		if err != nil {
			log.Fatalf("Expiry failed: %v", err)
		}
		log.Printf("Expired %d incentives", count)
		return

	case *cleanupNow:
		count, err := incentiveService.Cleanup(ctx)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Printf("Deleted %d incentives", count)
		return

	case *recomputeNow:
		updated, err := zoneService.RecomputeAll(ctx)
		if err != nil {
			log.Fatalf("Recompute failed: %v", err)
		}
		log.Printf("Recomputed statistics for %d zones", updated)
		return
	}

	// Daemon mode: seed rules idempotently, then run the scheduler and
	// background workers.
	if seeds, err := config.LoadRuleSeeds(cfg.Incentives.RulesPath); err != nil {
		log.Printf("Warning: could not load rule seeds: %v", err)
	} else if len(seeds) > 0 {
		if created, err := ruleService.SeedRules(ctx, seeds); err != nil {
			log.Printf("Warning: rule seeding failed: %v", err)
		} else if created > 0 {
			log.Printf("Seeded %d rules", created)
		}
	}

	sched := scheduler.New(cfg, pgStore, sqliteStore, incentiveService)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matchGenWorker := workers.NewMatchGenWorker(pgStore, sqliteStore, matchService)
	zoneStatsWorker := workers.NewZoneStatsWorker(pgStore, sqliteStore, zoneService, incentiveService)
	sched.SetWorkers(matchGenWorker, zoneStatsWorker)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go matchGenWorker.Run(ctx, cfg.Matching.FanoutBatchSize, 30*time.Second)
	log.Println("Match generation worker started")

	go zoneStatsWorker.Run(ctx)
	log.Println("Zone stats worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
