package storage

import (
	"path/filepath"
	"testing"
	"time"

	"rentmatch/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCommandQueueRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.EnqueueCommand(models.CmdGenerateZone, &models.CommandParams{Zone: "Malasaña"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdExpireIncentives, nil); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 pending commands, got %d", len(cmds))
	}
	if cmds[0].Command != models.CmdGenerateZone {
		t.Fatalf("expected generate_zone first, got %s", cmds[0].Command)
	}

	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("parse params failed: %v", err)
	}
	if params.Zone != "Malasaña" {
		t.Fatalf("expected zone Malasaña, got %q", params.Zone)
	}

	// Nil params parse to an empty struct, not an error.
	params, err = store.ParseCommandParams(&cmds[1])
	if err != nil {
		t.Fatalf("parse nil params failed: %v", err)
	}
	if params.Zone != "" {
		t.Fatalf("expected empty zone, got %q", params.Zone)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("mark processed failed: %v", err)
	}

	cmds, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 pending command after processing, got %d", len(cmds))
	}
	if cmds[0].Command != models.CmdExpireIncentives {
		t.Fatalf("expected expire_incentives to remain, got %s", cmds[0].Command)
	}
}

func TestJobRunLifecycle(t *testing.T) {
	store := openTestStore(t)

	started := time.Now()
	runID, err := store.CreateRun("matchgen", started)
	if err != nil {
		t.Fatalf("create run failed: %v", err)
	}
	if runID == 0 {
		t.Fatalf("expected non-zero run id")
	}

	if err := store.FinishRun(runID, "completed", 12, 0); err != nil {
		t.Fatalf("finish run failed: %v", err)
	}

	lastRun, err := store.GetLastRunTime("matchgen")
	if err != nil {
		t.Fatalf("get last run failed: %v", err)
	}
	if lastRun.IsZero() {
		t.Fatalf("expected recorded run time")
	}

	lastRun, err = store.GetLastRunTime("unknown-job")
	if err != nil {
		t.Fatalf("get last run for unknown job failed: %v", err)
	}
	if !lastRun.IsZero() {
		t.Fatalf("expected zero time for a job that never ran")
	}
}
