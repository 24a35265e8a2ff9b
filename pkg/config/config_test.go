package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://factorlab:pw@localhost:5432/factorlab?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8090" {
		t.Errorf("Port = %s, want 8090", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %s, want development", cfg.Env)
	}
	if cfg.Engine.ICHorizon != 1 {
		t.Errorf("Engine.ICHorizon = %d, want 1", cfg.Engine.ICHorizon)
	}
	if cfg.Engine.ICMethod != "spearman" {
		t.Errorf("Engine.ICMethod = %s, want spearman", cfg.Engine.ICMethod)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without DATABASE_URL")
	}
}

func TestLoad_RejectsBadEnum(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/factorlab")

	t.Run("env", func(t *testing.T) {
		t.Setenv("ENV", "sandbox")
		if _, err := Load(); err == nil {
			t.Error("Load() should reject unknown ENV")
		}
	})

	t.Run("ic method", func(t *testing.T) {
		t.Setenv("ENGINE_IC_METHOD", "kendall")
		if _, err := Load(); err == nil {
			t.Error("Load() should reject unknown ENGINE_IC_METHOD")
		}
	})
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/factorlab")
	t.Setenv("ENGINE_IC_HORIZON", "5")
	t.Setenv("ENGINE_IC_METHOD", "pearson")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Engine.ICHorizon != 5 {
		t.Errorf("Engine.ICHorizon = %d, want 5", cfg.Engine.ICHorizon)
	}
	if cfg.Engine.ICMethod != "pearson" {
		t.Errorf("Engine.ICMethod = %s, want pearson", cfg.Engine.ICMethod)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat = %s, want console", cfg.LogFormat)
	}
}
