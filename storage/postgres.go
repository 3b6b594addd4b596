package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"rentmatch/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		is_agent BOOLEAN DEFAULT FALSE,
		agent_commission_rate DOUBLE PRECISION,
		managed_zones UUID[] DEFAULT '{}',
		is_active BOOLEAN DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS zones (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		lat_min DOUBLE PRECISION NOT NULL,
		lat_max DOUBLE PRECISION NOT NULL,
		lng_min DOUBLE PRECISION NOT NULL,
		lng_max DOUBLE PRECISION NOT NULL,
		avg_price DOUBLE PRECISION DEFAULT 0,
		offer_count INTEGER DEFAULT 0,
		demand_count INTEGER DEFAULT 0,
		match_activity_score DOUBLE PRECISION DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS search_profiles (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE,
		preferred_zones UUID[] DEFAULT '{}',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		budget_min DOUBLE PRECISION,
		budget_max DOUBLE PRECISION,
		desired_types TEXT[] DEFAULT '{}',
		bedrooms_min INTEGER,
		bedrooms_max INTEGER,
		amenities TEXT[] DEFAULT '{}',
		roommate_pref TEXT DEFAULT '',
		roommate_prefs JSONB DEFAULT '{}',
		vibes TEXT[] DEFAULT '{}',
		age INTEGER,
		children_count INTEGER DEFAULT 0,
		smoker BOOLEAN DEFAULT FALSE,
		pets_count INTEGER DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		property_type TEXT DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		zone_id UUID,
		price DOUBLE PRECISION DEFAULT 0,
		bedrooms INTEGER DEFAULT 0,
		amenities TEXT[] DEFAULT '{}',
		tags TEXT[] DEFAULT '{}',
		allows_roommates BOOLEAN DEFAULT FALSE,
		max_occupancy INTEGER DEFAULT 0,
		is_active BOOLEAN DEFAULT TRUE,
		avg_rating DOUBLE PRECISION,
		review_count INTEGER DEFAULT 0,
		match_generated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS zone_search_logs (
		id BIGSERIAL PRIMARY KEY,
		zone_id UUID NOT NULL,
		user_id UUID,
		params JSONB,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS matches (
		id UUID PRIMARY KEY,
		match_type TEXT NOT NULL,
		subject_id UUID NOT NULL,
		target_user_id UUID NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		metadata JSONB,
		status TEXT DEFAULT 'pending',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS match_feedback (
		id BIGSERIAL PRIMARY KEY,
		match_id UUID NOT NULL,
		user_id UUID NOT NULL,
		feedback_type TEXT NOT NULL,
		reason TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS incentive_rules (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT DEFAULT '',
		incentive_type TEXT NOT NULL,
		min_demand_count INTEGER,
		max_demand_count INTEGER,
		max_offer_count INTEGER,
		min_offer_demand_ratio DOUBLE PRECISION,
		max_offer_demand_ratio DOUBLE PRECISION,
		base_amount DOUBLE PRECISION NOT NULL,
		multiplier DOUBLE PRECISION DEFAULT 1,
		max_amount DOUBLE PRECISION NOT NULL,
		duration_days INTEGER NOT NULL,
		cooldown_days INTEGER DEFAULT 0,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS incentives (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		zone_id UUID,
		amount DOUBLE PRECISION NOT NULL,
		description TEXT DEFAULT '',
		incentive_type TEXT NOT NULL,
		is_active BOOLEAN DEFAULT TRUE,
		valid_until TIMESTAMPTZ NOT NULL,
		offer_demand_ratio DOUBLE PRECISION DEFAULT 0,
		zone_activity_score DOUBLE PRECISION DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- One match row per identity triple; UpsertMatch's ON CONFLICT
	-- depends on this index.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_identity
		ON matches(match_type, subject_id, target_user_id);

	-- One active incentive per (user, zone, type); InsertIncentive's
	-- conditional insert depends on this partial index.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_incentives_active
		ON incentives(user_id, zone_id, incentive_type) WHERE is_active;

	CREATE INDEX IF NOT EXISTS idx_matches_target ON matches(target_user_id, match_type, score DESC);
	CREATE INDEX IF NOT EXISTS idx_properties_zone ON properties(zone_id) WHERE is_active;
	CREATE INDEX IF NOT EXISTS idx_properties_matchgen ON properties(updated_at) WHERE is_active;
	CREATE INDEX IF NOT EXISTS idx_search_logs_zone ON zone_search_logs(zone_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_incentives_user ON incentives(user_id) WHERE is_active;
	CREATE INDEX IF NOT EXISTS idx_incentives_zone_type ON incentives(zone_id, incentive_type, created_at DESC);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Users
// =============================================================================

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, email, is_agent, agent_commission_rate, managed_zones,
			is_active, last_login_at, created_at
		FROM users WHERE id = $1`

	var u models.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.IsAgent, &u.AgentCommissionRate, &u.ManagedZones,
		&u.IsActive, &u.LastLoginAt, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) ListAgents(ctx context.Context, limit int) ([]models.User, error) {
	query := `
		SELECT id, username, email, is_agent, agent_commission_rate, managed_zones,
			is_active, last_login_at, created_at
		FROM users
		WHERE is_agent = TRUE AND is_active = TRUE
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.IsAgent, &u.AgentCommissionRate, &u.ManagedZones,
			&u.IsActive, &u.LastLoginAt, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListRecentlyActiveUserIDs returns users who logged in since the given time.
func (s *PostgresStore) ListRecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM users
		WHERE is_active = TRUE AND last_login_at >= $1
		ORDER BY last_login_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// Search Profiles
// =============================================================================

const profileColumns = `id, user_id, preferred_zones, lat, lng, budget_min, budget_max,
	desired_types, bedrooms_min, bedrooms_max, amenities, roommate_pref, roommate_prefs,
	vibes, age, children_count, smoker, pets_count, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.SearchProfile, error) {
	var p models.SearchProfile
	var prefs []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.PreferredZones, &p.Lat, &p.Lng, &p.BudgetMin, &p.BudgetMax,
		&p.DesiredTypes, &p.BedroomsMin, &p.BedroomsMax, &p.Amenities, &p.RoommatePref, &prefs,
		&p.Vibes, &p.Age, &p.ChildrenCount, &p.Smoker, &p.PetsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &p.RoommatePrefs); err != nil {
			return nil, fmt.Errorf("unmarshal roommate prefs: %w", err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p *models.SearchProfile) error {
	prefs, err := json.Marshal(p.RoommatePrefs)
	if err != nil {
		return fmt.Errorf("marshal roommate prefs: %w", err)
	}

	query := `
		INSERT INTO search_profiles (
			id, user_id, preferred_zones, lat, lng, budget_min, budget_max,
			desired_types, bedrooms_min, bedrooms_max, amenities, roommate_pref,
			roommate_prefs, vibes, age, children_count, smoker, pets_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_zones = EXCLUDED.preferred_zones,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			desired_types = EXCLUDED.desired_types,
			bedrooms_min = EXCLUDED.bedrooms_min,
			bedrooms_max = EXCLUDED.bedrooms_max,
			amenities = EXCLUDED.amenities,
			roommate_pref = EXCLUDED.roommate_pref,
			roommate_prefs = EXCLUDED.roommate_prefs,
			vibes = EXCLUDED.vibes,
			age = EXCLUDED.age,
			children_count = EXCLUDED.children_count,
			smoker = EXCLUDED.smoker,
			pets_count = EXCLUDED.pets_count,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.PreferredZones, p.Lat, p.Lng, p.BudgetMin, p.BudgetMax,
		p.DesiredTypes, p.BedroomsMin, p.BedroomsMax, p.Amenities, p.RoommatePref,
		prefs, p.Vibes, p.Age, p.ChildrenCount, p.Smoker, p.PetsCount,
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (s *PostgresStore) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.SearchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM search_profiles WHERE user_id = $1`
	p, err := scanProfile(s.pool.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.SearchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM search_profiles WHERE id = $1`
	p, err := scanProfile(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfilesExcept returns other users' profiles, oldest first for stable
// candidate ordering.
func (s *PostgresStore) ListProfilesExcept(ctx context.Context, excludeUserID uuid.UUID, limit int) ([]models.SearchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM search_profiles
		WHERE user_id != $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, excludeUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.SearchProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// =============================================================================
// Properties
// =============================================================================

const propertyColumns = `id, owner_id, property_type, lat, lng, zone_id, price, bedrooms,
	amenities, tags, allows_roommates, max_occupancy, is_active, avg_rating, review_count,
	created_at, updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.PropertyType, &p.Lat, &p.Lng, &p.ZoneID, &p.Price, &p.Bedrooms,
		&p.Amenities, &p.Tags, &p.AllowsRoommates, &p.MaxOccupancy, &p.IsActive, &p.AvgRating,
		&p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProperty(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (
			id, owner_id, property_type, lat, lng, zone_id, price, bedrooms,
			amenities, tags, allows_roommates, max_occupancy, is_active,
			avg_rating, review_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (id) DO UPDATE SET
			property_type = EXCLUDED.property_type,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			zone_id = EXCLUDED.zone_id,
			price = EXCLUDED.price,
			bedrooms = EXCLUDED.bedrooms,
			amenities = EXCLUDED.amenities,
			tags = EXCLUDED.tags,
			allows_roommates = EXCLUDED.allows_roommates,
			max_occupancy = EXCLUDED.max_occupancy,
			is_active = EXCLUDED.is_active,
			avg_rating = EXCLUDED.avg_rating,
			review_count = EXCLUDED.review_count,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.PropertyType, p.Lat, p.Lng, p.ZoneID, p.Price, p.Bedrooms,
		p.Amenities, p.Tags, p.AllowsRoommates, p.MaxOccupancy, p.IsActive,
		p.AvgRating, p.ReviewCount, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (s *PostgresStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListActiveProperties(ctx context.Context, limit int) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE is_active = TRUE
		ORDER BY created_at
		LIMIT $1`
	return s.queryProperties(ctx, query, limit)
}

// ListActivePropertiesInBox returns active properties inside a lat/lng
// bounding box, used as the 10km candidate prefilter.
func (s *PostgresStore) ListActivePropertiesInBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64, limit int) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE is_active = TRUE
			AND lat IS NOT NULL AND lng IS NOT NULL
			AND lat BETWEEN $1 AND $2
			AND lng BETWEEN $3 AND $4
		ORDER BY created_at
		LIMIT $5`
	return s.queryProperties(ctx, query, latMin, latMax, lngMin, lngMax, limit)
}

func (s *PostgresStore) queryProperties(ctx context.Context, query string, args ...interface{}) ([]models.Property, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

// ListZoneOwnerIDs returns distinct owners of active properties in a zone.
func (s *PostgresStore) ListZoneOwnerIDs(ctx context.Context, zoneID uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT owner_id FROM properties
		WHERE zone_id = $1 AND is_active = TRUE
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, zoneID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPropertiesNeedingMatchGen returns active properties whose match
// fan-out has not caught up with their latest update.
func (s *PostgresStore) ListPropertiesNeedingMatchGen(ctx context.Context, limit int) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE is_active = TRUE
			AND (match_generated_at IS NULL OR updated_at > match_generated_at)
		ORDER BY updated_at
		LIMIT $1`
	return s.queryProperties(ctx, query, limit)
}

func (s *PostgresStore) MarkPropertyMatchGenerated(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE properties SET match_generated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return err
}

// =============================================================================
// Zones
// =============================================================================

const zoneColumns = `id, name, lat_min, lat_max, lng_min, lng_max, avg_price,
	offer_count, demand_count, match_activity_score, created_at, updated_at`

func scanZone(row pgx.Row) (*models.Zone, error) {
	var z models.Zone
	err := row.Scan(
		&z.ID, &z.Name, &z.LatMin, &z.LatMax, &z.LngMin, &z.LngMax, &z.AvgPrice,
		&z.OfferCount, &z.DemandCount, &z.MatchActivityScore, &z.CreatedAt, &z.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *PostgresStore) ListZones(ctx context.Context) ([]models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

func (s *PostgresStore) GetZoneByID(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id = $1`
	z, err := scanZone(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return z, nil
}

func (s *PostgresStore) GetZoneByName(ctx context.Context, name string) (*models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE name = $1`
	z, err := scanZone(s.pool.QueryRow(ctx, query, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return z, nil
}

// FindZoneContaining returns the zone whose bounding box contains the
// point, or nil when the point falls outside every zone.
func (s *PostgresStore) FindZoneContaining(ctx context.Context, lat, lng float64) (*models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones
		WHERE $1 BETWEEN lat_min AND lat_max
			AND $2 BETWEEN lng_min AND lng_max
		ORDER BY (lat_max - lat_min) * (lng_max - lng_min)
		LIMIT 1`

	z, err := scanZone(s.pool.QueryRow(ctx, query, lat, lng))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return z, nil
}

// GetZonePropertyAggregates computes avg price and count of active
// properties in a zone.
func (s *PostgresStore) GetZonePropertyAggregates(ctx context.Context, zoneID uuid.UUID) (avgPrice float64, count int, err error) {
	query := `
		SELECT COALESCE(AVG(price), 0), COUNT(*)
		FROM properties
		WHERE zone_id = $1 AND is_active = TRUE`

	err = s.pool.QueryRow(ctx, query, zoneID).Scan(&avgPrice, &count)
	return avgPrice, count, err
}

func (s *PostgresStore) CountZoneSearchesSince(ctx context.Context, zoneID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM zone_search_logs WHERE zone_id = $1 AND created_at >= $2`

	var count int
	err := s.pool.QueryRow(ctx, query, zoneID, since).Scan(&count)
	return count, err
}

// UpdateZoneStatistics writes a wholesale recompute result. It never
// touches match_activity_score, which only ever accumulates.
func (s *PostgresStore) UpdateZoneStatistics(ctx context.Context, zoneID uuid.UUID, avgPrice float64, offerCount, demandCount int) error {
	query := `
		UPDATE zones SET avg_price = $2, offer_count = $3, demand_count = $4, updated_at = NOW()
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, zoneID, avgPrice, offerCount, demandCount)
	return err
}

// BumpZoneMatchActivity atomically adds delta to the zone's activity
// accumulator, safe under concurrent writers.
func (s *PostgresStore) BumpZoneMatchActivity(ctx context.Context, zoneID uuid.UUID, delta float64) error {
	query := `UPDATE zones SET match_activity_score = match_activity_score + $2 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, zoneID, delta)
	return err
}

func (s *PostgresStore) InsertZoneSearchLog(ctx context.Context, l *models.ZoneSearchLog) error {
	query := `
		INSERT INTO zone_search_logs (zone_id, user_id, params, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, l.ZoneID, l.UserID, l.Params, l.CreatedAt).Scan(&l.ID)
}

// ListZoneSearcherIDs returns distinct users who searched the zone since
// the given time.
func (s *PostgresStore) ListZoneSearcherIDs(ctx context.Context, zoneID uuid.UUID, since time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id FROM zone_search_logs
		WHERE zone_id = $1 AND user_id IS NOT NULL AND created_at >= $2
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, zoneID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// Matches
// =============================================================================

const matchColumns = `id, match_type, subject_id, target_user_id, score, metadata, status,
	created_at, updated_at`

// UpsertMatch inserts or refreshes the single match row for the identity
// triple. On conflict only score, metadata and updated_at change; status
// is preserved so accept/reject decisions survive re-scoring.
func (s *PostgresStore) UpsertMatch(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (
			id, match_type, subject_id, target_user_id, score, metadata, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_type, subject_id, target_user_id) DO UPDATE SET
			score = EXCLUDED.score,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id, status, created_at`

	return s.pool.QueryRow(ctx, query,
		m.ID, m.MatchType, m.SubjectID, m.TargetUserID, m.Score, m.Metadata, m.Status,
		m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID, &m.Status, &m.CreatedAt)
}

func (s *PostgresStore) GetMatchByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	var m models.Match
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.MatchType, &m.SubjectID, &m.TargetUserID, &m.Score, &m.Metadata, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) ListMatchesForUser(ctx context.Context, userID uuid.UUID, matchType models.MatchType, status models.MatchStatus, limit int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE target_user_id = $1 AND match_type = $2
			AND ($3 = '' OR status = $3)
		ORDER BY score DESC
		LIMIT $4`

	rows, err := s.pool.Query(ctx, query, userID, matchType, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID, &m.MatchType, &m.SubjectID, &m.TargetUserID, &m.Score, &m.Metadata, &m.Status,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// TransitionMatchStatus moves a pending match to a terminal status.
// Returns false when the match was not pending (terminal states are final).
func (s *PostgresStore) TransitionMatchStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) (bool, error) {
	query := `
		UPDATE matches SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertMatchFeedback(ctx context.Context, f *models.MatchFeedback) error {
	query := `
		INSERT INTO match_feedback (match_id, user_id, feedback_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		f.MatchID, f.UserID, f.FeedbackType, f.Reason, f.CreatedAt,
	).Scan(&f.ID)
}

// =============================================================================
// Incentive Rules
// =============================================================================

const ruleColumns = `id, name, description, incentive_type, min_demand_count, max_demand_count,
	max_offer_count, min_offer_demand_ratio, max_offer_demand_ratio, base_amount, multiplier,
	max_amount, duration_days, cooldown_days, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*models.IncentiveRule, error) {
	var r models.IncentiveRule
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.IncentiveType, &r.MinDemandCount, &r.MaxDemandCount,
		&r.MaxOfferCount, &r.MinOfferDemandRatio, &r.MaxOfferDemandRatio, &r.BaseAmount, &r.Multiplier,
		&r.MaxAmount, &r.DurationDays, &r.CooldownDays, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRules(ctx context.Context, activeOnly bool) ([]models.IncentiveRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM incentive_rules
		WHERE ($1 = FALSE OR is_active = TRUE)
		ORDER BY name`

	rows, err := s.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.IncentiveRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func (s *PostgresStore) GetRuleByID(ctx context.Context, id uuid.UUID) (*models.IncentiveRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM incentive_rules WHERE id = $1`
	r, err := scanRule(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) UpsertRule(ctx context.Context, r *models.IncentiveRule) error {
	query := `
		INSERT INTO incentive_rules (
			id, name, description, incentive_type, min_demand_count, max_demand_count,
			max_offer_count, min_offer_demand_ratio, max_offer_demand_ratio, base_amount,
			multiplier, max_amount, duration_days, cooldown_days, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			incentive_type = EXCLUDED.incentive_type,
			min_demand_count = EXCLUDED.min_demand_count,
			max_demand_count = EXCLUDED.max_demand_count,
			max_offer_count = EXCLUDED.max_offer_count,
			min_offer_demand_ratio = EXCLUDED.min_offer_demand_ratio,
			max_offer_demand_ratio = EXCLUDED.max_offer_demand_ratio,
			base_amount = EXCLUDED.base_amount,
			multiplier = EXCLUDED.multiplier,
			max_amount = EXCLUDED.max_amount,
			duration_days = EXCLUDED.duration_days,
			cooldown_days = EXCLUDED.cooldown_days,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		r.ID, r.Name, r.Description, r.IncentiveType, r.MinDemandCount, r.MaxDemandCount,
		r.MaxOfferCount, r.MinOfferDemandRatio, r.MaxOfferDemandRatio, r.BaseAmount,
		r.Multiplier, r.MaxAmount, r.DurationDays, r.CooldownDays, r.IsActive,
		r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
}

// InsertRuleIfAbsent seeds a rule without overwriting administrator edits.
// Returns true when a new rule was created.
func (s *PostgresStore) InsertRuleIfAbsent(ctx context.Context, r *models.IncentiveRule) (bool, error) {
	query := `
		INSERT INTO incentive_rules (
			id, name, description, incentive_type, min_demand_count, max_demand_count,
			max_offer_count, min_offer_demand_ratio, max_offer_demand_ratio, base_amount,
			multiplier, max_amount, duration_days, cooldown_days, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		r.ID, r.Name, r.Description, r.IncentiveType, r.MinDemandCount, r.MaxDemandCount,
		r.MaxOfferCount, r.MinOfferDemandRatio, r.MaxOfferDemandRatio, r.BaseAmount,
		r.Multiplier, r.MaxAmount, r.DurationDays, r.CooldownDays, r.IsActive,
		r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)

	if err == pgx.ErrNoRows {
		return false, nil // name already configured
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) DeleteRule(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM incentive_rules WHERE id = $1`, id)
	return err
}

// =============================================================================
// Incentives
// =============================================================================

const incentiveColumns = `id, user_id, zone_id, amount, description, incentive_type, is_active,
	valid_until, offer_demand_ratio, zone_activity_score, created_at, updated_at`

// InsertIncentive creates an incentive unless the user already holds an
// active, unexpired one of the same type for the zone (partial unique
// index on (user_id, zone_id, incentive_type) WHERE is_active). An
// active row whose validity window has already lapsed does not block:
// the new grant overwrites it in place rather than waiting for the
// expiry sweep. Returns false on the duplicate-guard skip.
func (s *PostgresStore) InsertIncentive(ctx context.Context, inc *models.Incentive) (bool, error) {
	query := `
		INSERT INTO incentives (
			id, user_id, zone_id, amount, description, incentive_type, is_active,
			valid_until, offer_demand_ratio, zone_activity_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, zone_id, incentive_type) WHERE is_active DO UPDATE SET
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			valid_until = EXCLUDED.valid_until,
			offer_demand_ratio = EXCLUDED.offer_demand_ratio,
			zone_activity_score = EXCLUDED.zone_activity_score,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
		WHERE incentives.valid_until <= EXCLUDED.created_at
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		inc.ID, inc.UserID, inc.ZoneID, inc.Amount, inc.Description, inc.IncentiveType, inc.IsActive,
		inc.ValidUntil, inc.OfferDemandRatio, inc.ZoneActivityScore, inc.CreatedAt, inc.UpdatedAt,
	).Scan(&inc.ID)

	if err == pgx.ErrNoRows {
		return false, nil // duplicate guard
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LatestIncentiveTime returns the creation time of the most recent
// incentive of the given type for a zone, for cooldown checks.
func (s *PostgresStore) LatestIncentiveTime(ctx context.Context, zoneID uuid.UUID, incentiveType models.IncentiveType) (*time.Time, error) {
	query := `
		SELECT created_at FROM incentives
		WHERE zone_id = $1 AND incentive_type = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var t time.Time
	err := s.pool.QueryRow(ctx, query, zoneID, incentiveType).Scan(&t)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) ListActiveIncentivesForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Incentive, error) {
	query := `SELECT ` + incentiveColumns + ` FROM incentives
		WHERE user_id = $1 AND is_active = TRUE AND valid_until > $2
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incentives []models.Incentive
	for rows.Next() {
		var inc models.Incentive
		if err := rows.Scan(
			&inc.ID, &inc.UserID, &inc.ZoneID, &inc.Amount, &inc.Description, &inc.IncentiveType,
			&inc.IsActive, &inc.ValidUntil, &inc.OfferDemandRatio, &inc.ZoneActivityScore,
			&inc.CreatedAt, &inc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		incentives = append(incentives, inc)
	}
	return incentives, rows.Err()
}

// DeactivateIncentive flips a user's active incentive off (consumption).
// Returns false when no active incentive matched.
func (s *PostgresStore) DeactivateIncentive(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE incentives SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE`

	tag, err := s.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireIncentives flips all incentives past their validity window.
func (s *PostgresStore) ExpireIncentives(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE incentives SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE AND valid_until < $1`

	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteInactiveIncentivesBefore removes inactive incentives untouched
// since the cutoff.
func (s *PostgresStore) DeleteInactiveIncentivesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM incentives WHERE is_active = FALSE AND updated_at < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
