package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.MaxRows != 50000 {
		t.Errorf("expected default row cap 50000, got %d", cfg.Store.MaxRows)
	}
	if cfg.Store.LookbackDays != 2 {
		t.Errorf("expected default lookback of 2 days, got %d", cfg.Store.LookbackDays)
	}
	if cfg.Store.QueryTimeout != 30*time.Second {
		t.Errorf("expected default query timeout 30s, got %s", cfg.Store.QueryTimeout)
	}
	if cfg.Scenario.DefaultCountry != "FR" {
		t.Errorf("expected default country FR, got %q", cfg.Scenario.DefaultCountry)
	}
	if len(cfg.Scheduler.ReforecastTimes) != 3 {
		t.Errorf("expected 3 default reforecast times, got %v", cfg.Scheduler.ReforecastTimes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "5433")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SCHEDULER_REFRESH_INTERVAL", "15m")
	t.Setenv("STORE_MAX_ROWS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Port != 5433 {
		t.Errorf("expected port 5433, got %d", cfg.Database.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Scheduler.RefreshInterval != 15*time.Minute {
		t.Errorf("expected 15m refresh, got %s", cfg.Scheduler.RefreshInterval)
	}
	// Unparseable values fall back to the default
	if cfg.Store.MaxRows != 50000 {
		t.Errorf("expected fallback row cap 50000, got %d", cfg.Store.MaxRows)
	}
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "analytics", SSLMode: "require",
	}
	want := "host=db port=5432 user=u password=p dbname=analytics sslmode=require"
	if got := d.ConnectionString(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestModelByKey(t *testing.T) {
	m, err := ModelByKey("ec46")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Members != 99 || m.HorizonDays != 46 {
		t.Errorf("unexpected ec46 registry entry: %+v", m)
	}

	if _, err := ModelByKey("nosuchmodel"); err == nil {
		t.Error("expected an error for an unknown model key")
	}
}
