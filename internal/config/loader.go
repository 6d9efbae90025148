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

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Store modes.
const (
	StoreModeRemote = "remote"
	StoreModeMemory = "memory"
)

const envPrefix = "BOOKING_"

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort      int
	StoreMode     string
	StoreURL      string
	StoreTimeout  time.Duration
	Timezone      string
	Location      *time.Location
	SQLiteDSN     string // empty disables the snapshot cache
	RefreshCron   string // empty disables periodic refresh
	SetupAccount  string
	SetupPassword string
	OTelEnabled   bool
	OTelEndpoint  string
	LogLevel      string
}

// Load parses configuration values from the current process environment,
// seeded from the YAML file named by BOOKING_CONFIG_FILE when set. Keys in the
// file are the variable names without the BOOKING_ prefix in lower case
// (store_url, refresh_cron, ...). A variable that is set, even to an empty
// value, wins over the file.
//
// The loader applies defaults for optional fields while validating required
// values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	file, err := readFile(strings.TrimSpace(os.Getenv(envPrefix + "CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			return strings.TrimSpace(v), true
		}
		v, ok := file[strings.ToLower(name)]
		return strings.TrimSpace(v), ok
	}

	cfg := Config{
		HTTPPort:      8080,
		StoreMode:     StoreModeRemote,
		StoreTimeout:  15 * time.Second,
		Timezone:      "Local",
		Location:      time.Local,
		SQLiteDSN:     "file:booking-cache.db",
		RefreshCron:   "*/5 * * * *",
		SetupAccount:  "admin",
		SetupPassword: "admin1234",
		OTelEndpoint:  "localhost:4317",
		LogLevel:      "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v, ok := lookup("STORE_MODE"); ok && v != "" {
		switch mode := strings.ToLower(v); mode {
		case StoreModeRemote, StoreModeMemory:
			cfg.StoreMode = mode
		default:
			invalid = append(invalid, envPrefix+"STORE_MODE")
		}
	}

	if v, _ := lookup("STORE_URL"); v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			invalid = append(invalid, envPrefix+"STORE_URL")
		} else {
			cfg.StoreURL = v
		}
	} else if cfg.StoreMode == StoreModeRemote {
		missing = append(missing, envPrefix+"STORE_URL")
	}

	if v, ok := lookup("STORE_TIMEOUT"); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, envPrefix+"STORE_TIMEOUT")
		} else {
			cfg.StoreTimeout = timeout
		}
	}

	if v, ok := lookup("TIMEZONE"); ok && v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Timezone = v
			cfg.Location = loc
		}
	}

	if v, ok := lookup("SQLITE_DSN"); ok {
		cfg.SQLiteDSN = v
	}

	if v, ok := lookup("REFRESH_CRON"); ok {
		if v != "" {
			if _, err := cron.ParseStandard(v); err != nil {
				invalid = append(invalid, envPrefix+"REFRESH_CRON")
			}
		}
		cfg.RefreshCron = v
	}

	if v, ok := lookup("SETUP_ACCOUNT"); ok && v != "" {
		cfg.SetupAccount = v
	}
	if v, ok := lookup("SETUP_PASSWORD"); ok && v != "" {
		cfg.SetupPassword = v
	}

	if v, ok := lookup("OTEL_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, envPrefix+"OTEL_ENABLED")
		} else {
			cfg.OTelEnabled = enabled
		}
	}
	if v, ok := lookup("OTEL_ENDPOINT"); ok && v != "" {
		cfg.OTelEndpoint = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		switch level := strings.ToLower(v); level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("缺少必要的環境變數: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境變數的值無效: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// readFile loads the optional YAML configuration file. An empty path means no
// file; a named file that cannot be read or parsed is an error.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("找不到設定檔: %s", path)
		}
		return nil, fmt.Errorf("無法讀取設定檔 %s: %w", path, err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("設定檔格式錯誤 %s: %w", path, err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out, nil
}
