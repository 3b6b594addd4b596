package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdGenerateIncentives CommandType = "generate_incentives"
	CmdGenerateZone       CommandType = "generate_zone"
	CmdExpireIncentives   CommandType = "expire_incentives"
	CmdRecomputeStats     CommandType = "recompute_stats"
	CmdCleanupIncentives  CommandType = "cleanup_incentives"
	CmdRunMatchGen        CommandType = "run_matchgen"
)

// Command is a manual trigger queued in the local operational store and
// picked up by the scheduler's polling loop.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Zone string `json:"zone,omitempty"` // zone name for zone-scoped commands
}
