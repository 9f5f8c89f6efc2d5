// Package config loads settings for the desk and the development events API.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// EMS_CONFIG, then variables from a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/ems/internal/backup"
)

type Config struct {
	// APIURL is the events service root used by the desk.
	APIURL string `yaml:"api_url"`
	// Port is the desk's HTTP port.
	Port int `yaml:"port"`
	// Debounce is the quiet period before a filter change reloads.
	Debounce   time.Duration `yaml:"debounce"`
	CORSOrigin string        `yaml:"cors_origin"`
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format"`

	// EventsPort and EventsDBPath configure the development events API.
	EventsPort   int    `yaml:"events_port"`
	EventsDBPath string `yaml:"events_db_path"`
	// Backup is disabled unless bucket and credentials are set.
	Backup backup.Config `yaml:"backup"`
}

func Defaults() Config {
	return Config{
		APIURL:       "http://localhost:5000",
		Port:         8080,
		Debounce:     250 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
		EventsPort:   5000,
		EventsDBPath: "events.db",
	}
}

// Load reads configuration. envFile may be empty to skip .env loading; a
// missing .env file is not an error.
func Load(envFile string) (Config, error) {
	cfg := Defaults()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("EMS_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var invalid []string

	if v := strings.TrimSpace(os.Getenv("EMS_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EMS_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			invalid = append(invalid, "EMS_PORT")
		} else {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMS_DEBOUNCE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "EMS_DEBOUNCE")
		} else {
			cfg.Debounce = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMS_CORS_ORIGIN")); v != "" {
		cfg.CORSOrigin = v
	}
	if v := strings.TrimSpace(os.Getenv("EMS_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("EMS_LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTSD_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			invalid = append(invalid, "EVENTSD_PORT")
		} else {
			cfg.EventsPort = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENTSD_DB_PATH")); v != "" {
		cfg.EventsDBPath = v
	}
	invalid = append(invalid, applyBackupEnv(&cfg.Backup)...)

	if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, "EMS_API_URL")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func applyBackupEnv(b *backup.Config) []string {
	var invalid []string

	for name, dst := range map[string]*string{
		"EVENTSD_BACKUP_ENDPOINT":   &b.S3.Endpoint,
		"EVENTSD_BACKUP_BUCKET":     &b.S3.Bucket,
		"EVENTSD_BACKUP_REGION":     &b.S3.Region,
		"EVENTSD_BACKUP_ACCESS_KEY": &b.S3.AccessKey,
		"EVENTSD_BACKUP_SECRET_KEY": &b.S3.SecretKey,
		"EVENTSD_BACKUP_PASSPHRASE": &b.Passphrase,
		"EVENTSD_BACKUP_PREFIX":     &b.Prefix,
	} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENTSD_BACKUP_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, "EVENTSD_BACKUP_INTERVAL")
		} else {
			b.Interval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENTSD_BACKUP_RETENTION_DAYS")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			invalid = append(invalid, "EVENTSD_BACKUP_RETENTION_DAYS")
		} else {
			b.RetentionDays = days
		}
	}
	return invalid
}
