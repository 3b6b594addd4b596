package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"rentmatch/config"
	"rentmatch/models"
	"rentmatch/storage"
)

var (
	ErrNoProfile     = errors.New("no search profile on file")
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchClosed   = errors.New("match already accepted or rejected")
)

// MatchService orchestrates scoring and match persistence over bounded
// candidate sets.
type MatchService struct {
	store *storage.PostgresStore
	cfg   config.MatchingConfig
}

func NewMatchService(store *storage.PostgresStore, cfg config.MatchingConfig) *MatchService {
	return &MatchService{store: store, cfg: cfg}
}

// upsertScored persists a match when the score clears the configured
// threshold. Below-threshold scores are a no-op; existing rows are never
// deleted by a re-score. Property matches feed the zone activity
// accumulator as a side effect.
func (s *MatchService) upsertScored(ctx context.Context, matchType models.MatchType, subjectID, targetUserID uuid.UUID, score float64, breakdown interface{}) (bool, error) {
	if score < s.cfg.MinScore {
		return false, nil
	}

	metadata, err := json.Marshal(map[string]interface{}{"details": breakdown})
	if err != nil {
		return false, fmt.Errorf("marshal breakdown: %w", err)
	}

	now := time.Now()
	match := &models.Match{
		ID:           uuid.New(),
		MatchType:    matchType,
		SubjectID:    subjectID,
		TargetUserID: targetUserID,
		Score:        score,
		Metadata:     metadata,
		Status:       models.MatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.UpsertMatch(ctx, match); err != nil {
		return false, err
	}

	if matchType == models.MatchTypeProperty {
		if err := s.bumpZoneActivity(ctx, subjectID, score); err != nil {
			log.Printf("Failed to bump zone activity for property %s: %v", subjectID, err)
		}
	}

	return true, nil
}

func (s *MatchService) bumpZoneActivity(ctx context.Context, propertyID uuid.UUID, score float64) error {
	prop, err := s.store.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if prop == nil || prop.ZoneID == nil {
		return nil
	}
	return s.store.BumpZoneMatchActivity(ctx, *prop.ZoneID, score/100)
}

// GeneratePropertyMatches scores active properties against a user's
// profile and persists the ones above threshold. Returns the number of
// matches stored. Idempotent: re-running with unchanged data rewrites
// the same rows.
func (s *MatchService) GeneratePropertyMatches(ctx context.Context, userID uuid.UUID) (int, error) {
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, ErrNoProfile
	}
	return s.generateForProfile(ctx, profile)
}

func (s *MatchService) generateForProfile(ctx context.Context, profile *models.SearchProfile) (int, error) {
	var candidates []models.Property
	var err error

	if profile.Lat != nil && profile.Lng != nil {
		latMin, latMax, lngMin, lngMax := boundingBox(*profile.Lat, *profile.Lng, s.cfg.RadiusKm)
		candidates, err = s.store.ListActivePropertiesInBox(ctx, latMin, latMax, lngMin, lngMax, s.cfg.PropertyCap)
	} else {
		candidates, err = s.store.ListActiveProperties(ctx, s.cfg.PropertyCap)
	}
	if err != nil {
		return 0, err
	}

	now := time.Now()
	stored := 0
	for i := range candidates {
		prop := &candidates[i]
		score, breakdown := ScoreProperty(profile, prop, now)
		ok, err := s.upsertScored(ctx, models.MatchTypeProperty, prop.ID, profile.UserID, score, breakdown)
		if err != nil {
			log.Printf("Failed to store property match %s for user %s: %v", prop.ID, profile.UserID, err)
			continue
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// GenerateRoommateMatches scores other seekers' profiles against a
// user's profile. The match subject is the other profile's id, not the
// other user's id.
func (s *MatchService) GenerateRoommateMatches(ctx context.Context, userID uuid.UUID) (int, error) {
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, ErrNoProfile
	}

	others, err := s.store.ListProfilesExcept(ctx, userID, s.cfg.RoommateCap)
	if err != nil {
		return 0, err
	}

	stored := 0
	for i := range others {
		other := &others[i]
		score, breakdown := ScoreRoommate(profile, other)
		ok, err := s.upsertScored(ctx, models.MatchTypeRoommate, other.ID, userID, score, breakdown)
		if err != nil {
			log.Printf("Failed to store roommate match %s for user %s: %v", other.ID, userID, err)
			continue
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// GenerateAgentMatches scores listed agents against a user's profile.
func (s *MatchService) GenerateAgentMatches(ctx context.Context, userID uuid.UUID) (int, error) {
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, ErrNoProfile
	}

	agents, err := s.store.ListAgents(ctx, s.cfg.AgentCap)
	if err != nil {
		return 0, err
	}

	stored := 0
	for i := range agents {
		agent := &agents[i]
		score, breakdown := ScoreAgent(profile, agent)
		ok, err := s.upsertScored(ctx, models.MatchTypeAgent, agent.ID, userID, score, breakdown)
		if err != nil {
			log.Printf("Failed to store agent match %s for user %s: %v", agent.ID, userID, err)
			continue
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// GenerateMatchesForProperty fans a single property out against stored
// profiles, used by the reactive worker when a property is created or
// updated.
func (s *MatchService) GenerateMatchesForProperty(ctx context.Context, prop *models.Property) (int, error) {
	profiles, err := s.store.ListProfilesExcept(ctx, prop.OwnerID, s.cfg.RoommateCap)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	stored := 0
	for i := range profiles {
		profile := &profiles[i]
		score, breakdown := ScoreProperty(profile, prop, now)
		ok, err := s.upsertScored(ctx, models.MatchTypeProperty, prop.ID, profile.UserID, score, breakdown)
		if err != nil {
			log.Printf("Failed to store property match %s for user %s: %v", prop.ID, profile.UserID, err)
			continue
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// AcceptMatch moves a pending match to accepted. Only the match's
// target user may act on it; terminal states are final.
func (s *MatchService) AcceptMatch(ctx context.Context, userID, matchID uuid.UUID) error {
	return s.transition(ctx, userID, matchID, models.MatchStatusAccepted)
}

// RejectMatch moves a pending match to rejected.
func (s *MatchService) RejectMatch(ctx context.Context, userID, matchID uuid.UUID) error {
	return s.transition(ctx, userID, matchID, models.MatchStatusRejected)
}

func (s *MatchService) transition(ctx context.Context, userID, matchID uuid.UUID, status models.MatchStatus) error {
	match, err := s.store.GetMatchByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if match.TargetUserID != userID {
		return ErrNotAuthorized
	}
	if match.Status.Terminal() {
		return ErrMatchClosed
	}

	updated, err := s.store.TransitionMatchStatus(ctx, matchID, status)
	if err != nil {
		return err
	}
	if !updated {
		// Lost the race with a concurrent accept/reject.
		return ErrMatchClosed
	}

	// Notification delivery belongs to the messaging layer; the engine
	// only records the state change.
	log.Printf("Match %s %s by user %s", matchID, status, userID)
	return nil
}

// RecordFeedback appends a feedback entry for a match. The log is
// append-only; entries are never mutated.
func (s *MatchService) RecordFeedback(ctx context.Context, userID, matchID uuid.UUID, feedbackType models.FeedbackType, reason string) error {
	match, err := s.store.GetMatchByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return ErrMatchNotFound
	}
	if match.TargetUserID != userID {
		return ErrNotAuthorized
	}

	feedback := &models.MatchFeedback{
		MatchID:      matchID,
		UserID:       userID,
		FeedbackType: feedbackType,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}
	return s.store.InsertMatchFeedback(ctx, feedback)
}

func (s *MatchService) ListMatches(ctx context.Context, userID uuid.UUID, matchType models.MatchType, status models.MatchStatus, limit int) ([]models.Match, error) {
	return s.store.ListMatchesForUser(ctx, userID, matchType, status, limit)
}

// boundingBox converts a radius in km around a point into lat/lng
// bounds. One degree of latitude is ~111km; longitude shrinks with the
// cosine of the latitude.
func boundingBox(lat, lng, radiusKm float64) (latMin, latMax, lngMin, lngMax float64) {
	dLat := radiusKm / 111.0
	dLng := radiusKm / (111.0 * math.Max(math.Cos(lat*math.Pi/180), 0.01))
	return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}
