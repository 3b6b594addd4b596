package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	DBPath      string // local SQLite command queue
	LogLevel    string
	Matching    MatchingConfig
	Incentives  IncentiveConfig
	Scheduler   SchedulerConfig
}

type MatchingConfig struct {
	MinScore        float64 // matches below this score are not persisted
	PropertyCap     int
	RoommateCap     int
	AgentCap        int
	RadiusKm        float64 // property candidate prefilter radius
	FanoutBatchSize int     // profiles per match-gen worker pass
}

type IncentiveConfig struct {
	RulesPath     string // yaml seed file for default rules
	RetentionDays int    // inactive incentives older than this are deleted
}

type SchedulerConfig struct {
	GenerateCron  string
	ExpireCron    string
	ZoneSweepCron string
	CleanupCron   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "engine.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Matching: MatchingConfig{
			MinScore:        getEnvFloat("MATCH_MIN_SCORE", 70),
			PropertyCap:     getEnvInt("MATCH_PROPERTY_CAP", 500),
			RoommateCap:     getEnvInt("MATCH_ROOMMATE_CAP", 500),
			AgentCap:        getEnvInt("MATCH_AGENT_CAP", 200),
			RadiusKm:        getEnvFloat("MATCH_RADIUS_KM", 10),
			FanoutBatchSize: getEnvInt("MATCH_FANOUT_BATCH", 25),
		},
		Incentives: IncentiveConfig{
			RulesPath:     getEnv("INCENTIVE_RULES_PATH", "config/rules.yaml"),
			RetentionDays: getEnvInt("INCENTIVE_RETENTION_DAYS", 30),
		},
		Scheduler: SchedulerConfig{
			GenerateCron:  getEnv("INCENTIVE_GENERATE_CRON", "0 * * * *"),
			ExpireCron:    getEnv("INCENTIVE_EXPIRE_CRON", "*/30 * * * *"),
			ZoneSweepCron: getEnv("ZONE_SWEEP_CRON", "0 */2 * * *"),
			CleanupCron:   getEnv("INCENTIVE_CLEANUP_CRON", "45 3 * * *"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore > 100 {
		return nil, fmt.Errorf("MATCH_MIN_SCORE must be within [0,100], got %v", cfg.Matching.MinScore)
	}

	return cfg, nil
}

// RuleSeed mirrors IncentiveRule for the yaml seed file.
type RuleSeed struct {
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	IncentiveType       string   `yaml:"incentive_type"`
	MinDemandCount      *int     `yaml:"min_demand_count"`
	MaxDemandCount      *int     `yaml:"max_demand_count"`
	MaxOfferCount       *int     `yaml:"max_offer_count"`
	MinOfferDemandRatio *float64 `yaml:"min_offer_demand_ratio"`
	MaxOfferDemandRatio *float64 `yaml:"max_offer_demand_ratio"`
	BaseAmount          float64  `yaml:"base_amount"`
	Multiplier          float64  `yaml:"multiplier"`
	MaxAmount           float64  `yaml:"max_amount"`
	DurationDays        int      `yaml:"duration_days"`
	CooldownDays        int      `yaml:"cooldown_days"`
	Active              bool     `yaml:"active"`
}

// LoadRuleSeeds reads the default incentive rules from a yaml file.
// A missing file is not an error; the engine then runs with whatever
// rules administrators have configured.
func LoadRuleSeeds(path string) ([]RuleSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc struct {
		Rules []RuleSeed `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Rules, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
