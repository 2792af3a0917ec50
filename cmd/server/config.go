package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/pkg/utils"
)

type Config struct {
	DatabaseURL    string `yaml:"-"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
	MLServiceURL   string `yaml:"ml_service_url"`
	Port           string `yaml:"port"`
	Env            string `yaml:"-"`
	IntersectionID string `yaml:"intersection_id"`
	DefaultMode    string `yaml:"default_mode"`
	LoopSources    bool   `yaml:"loop_sources"`
	PushEnabled    bool   `yaml:"sample_push_enabled"`
	PushBuffer     int    `yaml:"sample_push_buffer"`

	Traffic TrafficConfig `yaml:"traffic"`
	Helmet  HelmetConfig  `yaml:"helmet"`

	// Timing overrides the stored timing plan field by field
	Timing domain.TimingPlan `yaml:"timing"`
}

type TrafficConfig struct {
	SourceA       string        `yaml:"source_a"`
	SourceB       string        `yaml:"source_b"`
	Model         string        `yaml:"model"`
	FrameInterval time.Duration `yaml:"frame_interval"`
}

type HelmetConfig struct {
	Source        string        `yaml:"source"`
	Model         string        `yaml:"model"`
	Cooldown      int           `yaml:"cooldown"`
	Tick          time.Duration `yaml:"tick"`
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// loadConfig reads the environment, then overlays CONTROLLER_CONFIG when set.
func loadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: utils.ParseBool(getEnv("DB_MIGRATE", ""), false),
		MLServiceURL:   getEnv("ML_SERVICE_URL", "http://localhost:8000"),
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("GO_ENV", "development"),
		IntersectionID: getEnv("INTERSECTION_ID", "default"),
		DefaultMode:    getEnv("DEFAULT_MODE", "traffic"),
		LoopSources:    utils.ParseBool(getEnv("LOOP_SOURCES", ""), true),
		PushEnabled:    utils.ParseBool(getEnv("SAMPLE_PUSH_ENABLED", ""), false),
		PushBuffer:     utils.ParseInt(getEnv("SAMPLE_PUSH_BUFFER", ""), 16),
		Traffic: TrafficConfig{
			SourceA:       getEnv("TRAFFIC_SOURCE_A", ""),
			SourceB:       getEnv("TRAFFIC_SOURCE_B", ""),
			Model:         getEnv("TRAFFIC_MODEL", "yolov8n"),
			FrameInterval: utils.ParseDuration(getEnv("FRAME_INTERVAL", ""), 50*time.Millisecond),
		},
		Helmet: HelmetConfig{
			Source:        getEnv("HELMET_SOURCE", ""),
			Model:         getEnv("HELMET_MODEL", "helmet"),
			Cooldown:      utils.ParseInt(getEnv("HELMET_COOLDOWN", ""), 10),
			Tick:          utils.ParseDuration(getEnv("HELMET_TICK", ""), time.Second),
			FrameInterval: utils.ParseDuration(getEnv("FRAME_INTERVAL", ""), 50*time.Millisecond),
		},
	}

	if path := os.Getenv("CONTROLLER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if cfg.PushBuffer <= 0 {
		cfg.PushBuffer = 16
	}
	return cfg, nil
}

// applyTimingOverrides replaces every plan field the config sets
func applyTimingOverrides(plan, override domain.TimingPlan) domain.TimingPlan {
	if override.BaseGreen != 0 {
		plan.BaseGreen = override.BaseGreen
	}
	if override.EmergencyGreen != 0 {
		plan.EmergencyGreen = override.EmergencyGreen
	}
	if override.YellowDuration != 0 {
		plan.YellowDuration = override.YellowDuration
	}
	if override.MinGreen != 0 {
		plan.MinGreen = override.MinGreen
	}
	if override.MaxGreen != 0 {
		plan.MaxGreen = override.MaxGreen
	}
	if override.DemandBasis != "" {
		plan.DemandBasis = override.DemandBasis
	}
	if len(override.Denylist) > 0 {
		plan.Denylist = override.Denylist
	}
	return plan
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
