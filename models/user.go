package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a marketplace account (seeker, owner or agent)
type User struct {
	ID                  uuid.UUID   `json:"id" db:"id"`
	Username            string      `json:"username" db:"username"`
	Email               string      `json:"email" db:"email"`
	IsAgent             bool        `json:"is_agent" db:"is_agent"`
	AgentCommissionRate *float64    `json:"agent_commission_rate" db:"agent_commission_rate"` // percent, agents only
	ManagedZones        []uuid.UUID `json:"managed_zones" db:"managed_zones"`
	IsActive            bool        `json:"is_active" db:"is_active"`
	LastLoginAt         *time.Time  `json:"last_login_at" db:"last_login_at"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
}
