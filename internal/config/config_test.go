package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port int `env:"MISSION_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MISSION_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HeatCap != 100 || cfg.MaxRetries != 3 || cfg.BackoffBase != 2 || cfg.BackoffUnit != time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Modifiers["alarmTriggered"] != 20 || cfg.Modifiers["hideout"] != -25 {
		t.Errorf("unexpected modifiers %v", cfg.Modifiers)
	}

	table := cfg.TierTable()
	if len(table.Tiers) != 2 || table.Tiers[0].Name != "Legendary" || table.Tiers[1].Threshold != 0.7 || table.Base != "Common" {
		t.Errorf("unexpected tier table %+v", table)
	}

	tc := cfg.TensionConfig()
	if tc.HeatWeight != 0.6 || tc.TimeWeight != 0.2 || tc.AlertWeight != 0.2 || len(tc.SpawnInterval) == 0 {
		t.Errorf("unexpected tension config %+v", tc)
	}

	ec := cfg.ExportConfig()
	if ec.MaxRetries != 3 || ec.AttemptTimeout != 10*time.Second {
		t.Errorf("unexpected export config %+v", ec)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MISSION_TIERS", "Gold:0.8,Silver:0.5,Bronze:0.2")
	t.Setenv("MISSION_BASE_TIER", "Tin")
	t.Setenv("MISSION_EXPORT_MAX_RETRIES", "5")
	t.Setenv("MISSION_MAX_DURATION", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table := cfg.TierTable()
	names := []string{table.Tiers[0].Name, table.Tiers[1].Name, table.Tiers[2].Name}
	if strings.Join(names, ",") != "Gold,Silver,Bronze" || table.Base != "Tin" {
		t.Errorf("unexpected table %+v", table)
	}
	if cfg.MaxRetries != 5 || cfg.MaxDuration != 90*time.Second {
		t.Errorf("unexpected overrides %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"MISSION_HEAT_CAP":           "0",
		"MISSION_EXPORT_MAX_RETRIES": "0",
		"MISSION_TIERS":              "Mythic:1.5",
		"MISSION_MAX_DURATION":       "0s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected %s=%s rejected", key, val)
			}
		})
	}
}
