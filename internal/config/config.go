package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	LogLevel          string `json:"log_level"`
	LogPretty         bool   `json:"log_pretty"`
}

type Yahoo struct {
	Enabled              bool   `json:"enabled"`
	Endpoint             string `json:"endpoint"`
	Suffix               string `json:"suffix"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
	// MinRequestIntervalSec is the simpler pacing alternative, used when
	// no per-minute budget is set.
	MinRequestIntervalSec int `json:"min_request_interval_sec"`
}

type Brapi struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint"`
	Token                 string `json:"token"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	Burst                 int    `json:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
}

type Finz struct {
	Enabled          bool   `json:"enabled"`
	Endpoint         string `json:"endpoint"`
	APIKey           string `json:"api_key"`
	TableCacheTTLSec int    `json:"table_cache_ttl_sec"`
}

type Cache struct {
	TTLSeconds int `json:"ttl_sec"`
}

type Config struct {
	Server Server `json:"server"`
	Yahoo  Yahoo  `json:"yahoo"`
	Brapi  Brapi  `json:"brapi"`
	Finz   Finz   `json:"finz"`
	Cache  Cache  `json:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "5000", RequestTimeoutSec: 10, LogLevel: "info", LogPretty: true},
		Yahoo: Yahoo{
			Enabled:  true,
			Endpoint: "https://query1.finance.yahoo.com/v8/finance/chart",
			Suffix:   ".SA",
		},
		Brapi: Brapi{
			Enabled:  true,
			Endpoint: "https://brapi.dev/api",
		},
		Finz: Finz{
			Enabled:          true,
			Endpoint:         "https://finz-api-evlu.onrender.com",
			TableCacheTTLSec: 60,
		},
		Cache: Cache{TTLSeconds: 3600},
	}
}

// Load reads JSON config from path. If path is empty or the file does
// not exist, it returns defaults. A .env file and environment variables
// override select fields for secrecy.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Server.LogPretty = b
		}
	}

	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Yahoo.Enabled = b
		}
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v := os.Getenv("YAHOO_SUFFIX"); v != "" {
		cfg.Yahoo.Suffix = v
	}
	if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Yahoo.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("YAHOO_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Yahoo.Burst = x
		}
	}
	if v := os.Getenv("YAHOO_MIN_REQUEST_INTERVAL_SEC"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Yahoo.MinRequestIntervalSec = x
		}
	}

	if v := os.Getenv("BRAPI_ENABLED"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Brapi.Enabled = b
		}
	}
	if v := os.Getenv("BRAPI_ENDPOINT"); v != "" {
		cfg.Brapi.Endpoint = v
	}
	if v := os.Getenv("BRAPI_TOKEN"); v != "" {
		cfg.Brapi.Token = v
	}
	if v := os.Getenv("BRAPI_MAX_RPM"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Brapi.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("BRAPI_BURST"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Brapi.Burst = x
		}
	}
	if v := os.Getenv("BRAPI_MIN_REQUEST_INTERVAL_SEC"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Brapi.MinRequestIntervalSec = x
		}
	}

	if v := os.Getenv("FINZ_ENABLED"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Finz.Enabled = b
		}
	}
	if v := os.Getenv("FINZ_ENDPOINT"); v != "" {
		cfg.Finz.Endpoint = v
	}
	if v := os.Getenv("FINZ_API_KEY"); v != "" {
		cfg.Finz.APIKey = v
	}
	if v := os.Getenv("FINZ_TABLE_CACHE_TTL_SEC"); v != "" {
		if x := atoi(v); x >= 0 {
			cfg.Finz.TableCacheTTLSec = x
		}
	}

	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		if x := atoi(v); x > 0 {
			cfg.Cache.TTLSeconds = x
		}
	}
}

func atoi(s string) int {
	var x int
	_, _ = fmt.Sscanf(strings.TrimSpace(s), "%d", &x)
	return x
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}
