package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type AlphaVantage struct {
	APIKey                string `json:"api_key"`
	BaseURL               string `json:"base_url"` // empty means the client default
	OutputSize            string `json:"output_size"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
}

type Demo struct {
	Enabled bool `json:"enabled"`
	DelayMs int  `json:"delay_ms"`
}

type Snapshot struct {
	OutputFile string `json:"output_file"`
	Cron       string `json:"cron"`
}

type Config struct {
	Server       Server       `json:"server"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Demo         Demo         `json:"demo"`
	Snapshot     Snapshot     `json:"snapshot"`
	Symbols      []string     `json:"symbols"`
	StateFile    string       `json:"state_file"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		AlphaVantage: AlphaVantage{
			OutputSize:           "compact",
			MaxRequestsPerMinute: 0, // 0 disables the token bucket
			Burst:                1,
			CacheTTLSeconds:      300,
		},
		Demo:     Demo{Enabled: false, DelayMs: 350},
		Snapshot: Snapshot{OutputFile: "data/stocks.json"},
		Symbols:  []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA"},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
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

// DemoMode reports whether to run against the synthetic source: demo
// explicitly enabled, no credential, or the placeholder "demo" key.
func (c Config) DemoMode() bool {
	return c.Demo.Enabled || c.AlphaVantage.APIKey == "" || c.AlphaVantage.APIKey == "demo"
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if x := parseInt(v); x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_BASE_URL"); v != "" {
		cfg.AlphaVantage.BaseURL = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_OUTPUT_SIZE"); v != "" {
		cfg.AlphaVantage.OutputSize = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_MAX_RPM"); v != "" {
		if x := parseInt(v); x >= 0 {
			cfg.AlphaVantage.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("ALPHA_VANTAGE_MIN_INTERVAL_SEC"); v != "" {
		if x := parseInt(v); x >= 0 {
			cfg.AlphaVantage.MinRequestIntervalSec = x
		}
	}
	if v := os.Getenv("ALPHA_VANTAGE_BURST"); v != "" {
		if x := parseInt(v); x > 0 {
			cfg.AlphaVantage.Burst = x
		}
	}
	if v := os.Getenv("ALPHA_VANTAGE_CACHE_TTL_SEC"); v != "" {
		if x := parseInt(v); x >= 0 {
			cfg.AlphaVantage.CacheTTLSeconds = x
		}
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Demo.Enabled = true
		case "0", "false", "no", "n":
			cfg.Demo.Enabled = false
		}
	}
	if v := os.Getenv("DEMO_DELAY_MS"); v != "" {
		if x := parseInt(v); x >= 0 {
			cfg.Demo.DelayMs = x
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitCSV(v)
	}
	if v := os.Getenv("SNAPSHOT_OUTPUT_FILE"); v != "" {
		cfg.Snapshot.OutputFile = v
	}
	if v := os.Getenv("SNAPSHOT_CRON"); v != "" {
		cfg.Snapshot.Cron = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
}

func parseInt(s string) int {
	var x int
	fmt.Sscanf(s, "%d", &x)
	return x
}

// splitCSV splits a comma-separated ticker list, trimming and upper-casing
// each entry.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
