package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSettingsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeSettingsFile(t, `{"dbName": "firecam"}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.DBPort != 5432 || s.DBSSLMode != "disable" || s.RedisAddr != "localhost:6379" {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if s.WeatherThreshold != 0.25 || s.MinCycleSeconds != 13 || s.ArchiveMaxAgeMin != 60 {
		t.Fatalf("numeric defaults not applied: %+v", s)
	}
	if s.ClassifierMinScore != 0.05 || s.ModelID == "" || s.ServiceID == "" {
		t.Fatalf("new-field defaults not applied: %+v", s)
	}
	if s.MaxFetchInterval != 120*time.Second {
		t.Fatalf("MaxFetchInterval = %v; want 120s", s.MaxFetchInterval)
	}
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	path := writeSettingsFile(t, `{"dbName": "firecam", "dbPort": 5433, "weatherThreshold": 0.5, "serviceId": "detector-1"}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.DBPort != 5433 || s.WeatherThreshold != 0.5 || s.ServiceID != "detector-1" {
		t.Fatalf("explicit values overwritten by defaults: %+v", s)
	}
}

func TestDSNFormatsConnectionString(t *testing.T) {
	s := Settings{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "n", DBSSLMode: "disable"}
	want := "postgres://u:p@h:5432/n?sslmode=disable"
	if got := s.DSN(); got != want {
		t.Fatalf("DSN() = %q; want %q", got, want)
	}
}
