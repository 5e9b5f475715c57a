// Package config loads the settings shared by the detector, archiver, and
// replay binaries: a JSON settings file overlaid with CLI flags, constructed
// once at startup and passed by reference.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Settings is the JSON-file-backed portion of the configuration. It mirrors
// the original project's settings module: one value, loaded once, never a
// package-level global.
type Settings struct {
	DBHost     string `json:"dbHost"`
	DBPort     int    `json:"dbPort"`
	DBUser     string `json:"dbUser"`
	DBPassword string `json:"dbPassword"`
	DBName     string `json:"dbName"`
	DBSSLMode  string `json:"dbSslMode"`

	RedisAddr string `json:"redisAddr"`

	NotificationSubject string `json:"notificationSubject"`
	NATSAddr            string `json:"natsAddr"`

	BlobNotificationsPrefix string `json:"blobNotificationsPrefix"`
	BlobProbablesPrefix     string `json:"blobProbablesPrefix"`

	ClassifierURL    string `json:"classifierUrl"`
	WeatherURL       string `json:"weatherUrl"`
	WeatherModelURL  string `json:"weatherModelUrl"`
	WeatherThreshold float64 `json:"weatherThreshold"`

	OrchestratorURL    string `json:"orchestratorUrl"`
	OrchestratorSecret string `json:"orchestratorSecret"`
	ServiceID          string `json:"serviceId"`

	FleetConfigPath string `json:"fleetConfigPath"`

	BlobRoot    string `json:"blobRoot"`
	BlobBaseURL string `json:"blobBaseUrl"`

	ClassifierMinScore float64 `json:"classifierMinScore"`
	ModelID            string  `json:"modelId"`

	AdminListenAddr string `json:"adminListenAddr"`

	MaxFetchIntervalSeconds int `json:"maxFetchIntervalSeconds"`

	MaxFetchInterval time.Duration `json:"-"`
	MinCycleSeconds  int           `json:"minCycleSeconds"`
	ArchiveMaxAgeMin int           `json:"archiveMaxAgeMinutes"`
}

// Flags is the CLI overlay named in the external-interfaces contract:
// --archiveDir, --numThreads, --restrictType, --heartbeat, --noState,
// --startTime/--endTime, --limitImages, --randomSeed.
type Flags struct {
	ArchiveDir   string
	NumThreads   int
	RestrictType string
	Heartbeat    string
	NoState      bool
	StartTime    time.Time
	EndTime      time.Time
	LimitImages  int
	RandomSeed   string
}

// Config is the single value constructed in main() and threaded by
// reference through every long-lived component.
type Config struct {
	Settings
	Flags
}

// Load reads the JSON settings file at path and applies defaults for any
// zero-valued field that has a sane fleet-wide default.
func Load(path string) (Settings, error) {
	var s Settings
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings file %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	applyDefaults(&s)
	return s, nil
}

func applyDefaults(s *Settings) {
	if s.DBPort == 0 {
		s.DBPort = 5432
	}
	if s.DBSSLMode == "" {
		s.DBSSLMode = "disable"
	}
	if s.RedisAddr == "" {
		s.RedisAddr = "localhost:6379"
	}
	if s.NotificationSubject == "" {
		s.NotificationSubject = "firecam.alerts"
	}
	if s.WeatherThreshold == 0 {
		s.WeatherThreshold = 0.25
	}
	if s.MinCycleSeconds == 0 {
		s.MinCycleSeconds = 13
	}
	if s.ArchiveMaxAgeMin == 0 {
		s.ArchiveMaxAgeMin = 60
	}
	if s.AdminListenAddr == "" {
		s.AdminListenAddr = ":9090"
	}
	if s.ClassifierMinScore == 0 {
		s.ClassifierMinScore = 0.05
	}
	if s.ModelID == "" {
		s.ModelID = "inception_v3_default"
	}
	if s.ServiceID == "" {
		if host, err := os.Hostname(); err == nil {
			s.ServiceID = host
		}
	}
	if s.MaxFetchIntervalSeconds == 0 {
		s.MaxFetchIntervalSeconds = 120
	}
	s.MaxFetchInterval = time.Duration(s.MaxFetchIntervalSeconds) * time.Second
}

// DSN renders the Postgres connection string lib/pq expects.
func (s Settings) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName, s.DBSSLMode)
}
