package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"rentmatch/config"
	"rentmatch/models"
	"rentmatch/services"
	"rentmatch/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Scheduler drives the periodic jobs (incentive generation, expiry,
// zone sweep, cleanup) and polls the local command queue for manual
// triggers.
type Scheduler struct {
	cfg        *config.Config
	store      *storage.PostgresStore
	ops        *storage.SQLiteStore
	incentives *services.IncentiveService
	cron       *cron.Cron
	stopCh     chan struct{}

	matchGenWorker  Triggerable
	zoneStatsWorker Triggerable
}

func New(cfg *config.Config, store *storage.PostgresStore, ops *storage.SQLiteStore, incentives *services.IncentiveService) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      store,
		ops:        ops,
		incentives: incentives,
		cron:       cron.New(),
		stopCh:     make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(matchGen, zoneStats Triggerable) {
	s.matchGenWorker = matchGen
	s.zoneStatsWorker = zoneStats
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"incentive generation", s.cfg.Scheduler.GenerateCron, func() {
			if created, err := s.incentives.GenerateAll(ctx); err != nil {
				log.Printf("Scheduled incentive generation error: %v", err)
			} else if created > 0 {
				log.Printf("Scheduled incentive generation created %d incentives", created)
			}
		}},
		{"incentive expiry", s.cfg.Scheduler.ExpireCron, func() {
			if _, err := s.incentives.ExpireOld(ctx); err != nil {
				log.Printf("Scheduled expiry error: %v", err)
			}
		}},
		{"zone sweep", s.cfg.Scheduler.ZoneSweepCron, func() {
			if s.zoneStatsWorker != nil {
				s.zoneStatsWorker.Trigger()
			}
		}},
		{"incentive cleanup", s.cfg.Scheduler.CleanupCron, func() {
			if _, err := s.incentives.Cleanup(ctx); err != nil {
				log.Printf("Scheduled cleanup error: %v", err)
			}
		}},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		log.Printf("Scheduling %s: %s", job.name, job.spec)
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("invalid cron expression for %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdGenerateIncentives:
		created, err := s.incentives.GenerateAll(ctx)
		if err != nil {
			return err
		}
		log.Printf("Generated %d incentives via command", created)
		return nil

	case models.CmdGenerateZone:
		params, err := s.ops.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		if params.Zone == "" {
			return fmt.Errorf("generate_zone requires a zone name")
		}
		zone, err := s.store.GetZoneByName(ctx, params.Zone)
		if err != nil {
			return err
		}
		if zone == nil {
			return fmt.Errorf("zone %q not found", params.Zone)
		}
		created, err := s.incentives.GenerateForZone(ctx, zone)
		if err != nil {
			return err
		}
		log.Printf("Generated %d incentives for zone %s via command", created, zone.Name)
		return nil

	case models.CmdExpireIncentives:
		_, err := s.incentives.ExpireOld(ctx)
		return err

	case models.CmdCleanupIncentives:
		_, err := s.incentives.Cleanup(ctx)
		return err

	case models.CmdRecomputeStats:
		if s.zoneStatsWorker != nil {
			s.zoneStatsWorker.Trigger()
			log.Println("Zone stats worker triggered via command")
		}
		return nil

	case models.CmdRunMatchGen:
		if s.matchGenWorker != nil {
			s.matchGenWorker.Trigger()
			log.Println("Match generation worker triggered via command")
		}
		return nil

	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}
