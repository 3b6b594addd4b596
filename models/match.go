package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MatchType string

const (
	MatchTypeProperty MatchType = "property"
	MatchTypeRoommate MatchType = "roommate"
	MatchTypeAgent    MatchType = "agent"
)

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
)

// Terminal reports whether the status admits no further transition.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusAccepted || s == MatchStatusRejected
}

// Match is a persisted, scored link between a seeker and a candidate.
// At most one row exists per (match_type, subject_id, target_user) triple;
// re-scoring updates score and metadata but never resurrects a terminal
// status. The subject is a property, another search profile, or an agent
// user depending on the type.
type Match struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	MatchType    MatchType       `json:"match_type" db:"match_type"`
	SubjectID    uuid.UUID       `json:"subject_id" db:"subject_id"`
	TargetUserID uuid.UUID       `json:"target_user_id" db:"target_user_id"`
	Score        float64         `json:"score" db:"score"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"` // factor breakdown
	Status       MatchStatus     `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type FeedbackType string

const (
	FeedbackLike    FeedbackType = "like"
	FeedbackDislike FeedbackType = "dislike"
	FeedbackNeutral FeedbackType = "neutral"
)

// MatchFeedback is an append-only log entry; never mutated or deleted.
type MatchFeedback struct {
	ID           int64        `json:"id" db:"id"`
	MatchID      uuid.UUID    `json:"match_id" db:"match_id"`
	UserID       uuid.UUID    `json:"user_id" db:"user_id"`
	FeedbackType FeedbackType `json:"feedback_type" db:"feedback_type"`
	Reason       string       `json:"reason" db:"reason"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
