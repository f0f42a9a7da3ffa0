package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/tension"
)

// #region director-config
// Director is the process configuration for cmd/director and the operator tools.
type Director struct {
	DBPath     string `env:"MISSION_DB" envDefault:"missions.db"`
	JournalDir string `env:"MISSION_EXPORT_DIR" envDefault:"replay_exports"`
	HTTPAddr   string `env:"MISSION_HTTP_ADDR" envDefault:"localhost:8088"`
	GRPCAddr   string `env:"MISSION_GRPC_ADDR" envDefault:"localhost:50061"`

	ExportEndpoint string `env:"MISSION_EXPORT_ENDPOINT"`
	ExportToken    string `env:"MISSION_EXPORT_TOKEN"`

	HeatCap     float64       `env:"MISSION_HEAT_CAP" envDefault:"100"`
	MaxDuration time.Duration `env:"MISSION_MAX_DURATION" envDefault:"20m"`

	HeatWeight  float64 `env:"MISSION_TENSION_HEAT_WEIGHT" envDefault:"0.6"`
	TimeWeight  float64 `env:"MISSION_TENSION_TIME_WEIGHT" envDefault:"0.2"`
	AlertWeight float64 `env:"MISSION_TENSION_ALERT_WEIGHT" envDefault:"0.2"`
	AlertDecay  float64 `env:"MISSION_ALERT_DECAY_PER_SECOND" envDefault:"0.1"`

	MaxRetries     int           `env:"MISSION_EXPORT_MAX_RETRIES" envDefault:"3"`
	BackoffBase    float64       `env:"MISSION_EXPORT_BACKOFF_BASE" envDefault:"2"`
	BackoffUnit    time.Duration `env:"MISSION_EXPORT_BACKOFF_UNIT" envDefault:"1s"`
	MaxBackoff     time.Duration `env:"MISSION_EXPORT_MAX_BACKOFF" envDefault:"5m"`
	AttemptTimeout time.Duration `env:"MISSION_EXPORT_ATTEMPT_TIMEOUT" envDefault:"10s"`

	Tiers    map[string]float64 `env:"MISSION_TIERS" envDefault:"Legendary:0.9,Rare:0.7"`
	BaseTier string             `env:"MISSION_BASE_TIER" envDefault:"Common"`

	Modifiers map[string]float64 `env:"MISSION_HEAT_MODIFIERS" envDefault:"alarmTriggered:20,guardSpotted:15,cameraHacked:-5,datacorePickup:5,hideout:-25"`
}
// #endregion director-config

// #region load
// Load parses the environment and validates the result.
func Load() (Director, error) {
	var cfg Director
	if err := ParseEnv(&cfg); err != nil {
		return Director{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Director{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can fall back from.
func (c Director) Validate() error {
	if c.HeatCap <= 0 {
		return fmt.Errorf("MISSION_HEAT_CAP must be > 0, got %v", c.HeatCap)
	}
	if c.MaxDuration <= 0 {
		return fmt.Errorf("MISSION_MAX_DURATION must be > 0, got %s", c.MaxDuration)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("MISSION_EXPORT_MAX_RETRIES must be > 0, got %d", c.MaxRetries)
	}
	if c.BaseTier == "" {
		return fmt.Errorf("MISSION_BASE_TIER must not be empty")
	}
	for name, th := range c.Tiers {
		if th < 0 || th > 1 {
			return fmt.Errorf("tier %s threshold %v outside [0,1]", name, th)
		}
	}
	return nil
}
// #endregion load

// #region component-configs
// TierTable builds the scorer's tier table, highest threshold first.
func (c Director) TierTable() scoring.TierTable {
	tiers := make([]scoring.Tier, 0, len(c.Tiers))
	for name, th := range c.Tiers {
		tiers = append(tiers, scoring.Tier{Threshold: th, Name: name})
	}
	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].Threshold != tiers[j].Threshold {
			return tiers[i].Threshold > tiers[j].Threshold
		}
		return tiers[i].Name < tiers[j].Name
	})
	return scoring.TierTable{Tiers: tiers, Base: c.BaseTier}
}

// TensionConfig returns the evaluator config with the configured weights
// and the default curves.
func (c Director) TensionConfig() tension.Config {
	tc := tension.DefaultConfig()
	tc.HeatWeight = c.HeatWeight
	tc.TimeWeight = c.TimeWeight
	tc.AlertWeight = c.AlertWeight
	return tc
}

// ExportConfig returns the queue's retry settings.
func (c Director) ExportConfig() export.Config {
	return export.Config{
		MaxRetries:     c.MaxRetries,
		BackoffBase:    c.BackoffBase,
		BackoffUnit:    c.BackoffUnit,
		MaxBackoff:     c.MaxBackoff,
		AttemptTimeout: c.AttemptTimeout,
	}
}
// #endregion component-configs
