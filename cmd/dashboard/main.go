package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"stockboard/internal/config"
	"stockboard/internal/dashboard"
	"stockboard/internal/httpx"
	"stockboard/internal/state"
	"stockboard/internal/stock"
	"stockboard/internal/stock/alphavantage"
	"stockboard/internal/stock/cache"
	"stockboard/internal/stock/demo"
	"stockboard/internal/stock/ratelimit"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

	logPath := filepath.Join(os.TempDir(), fmt.Sprintf("stockboard-%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))

	statePath := cfg.StateFile
	if statePath == "" {
		statePath = state.DefaultPath()
	}
	store, err := state.Open(statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening state file: %v\n", err)
		os.Exit(1)
	}
	prefs := store.Prefs()

	// A key from config or env wins over the stored one; a fresh key is
	// persisted for the next run.
	if cfg.AlphaVantage.APIKey == "" && prefs.APIKey != "" {
		cfg.AlphaVantage.APIKey = prefs.APIKey
	} else if cfg.AlphaVantage.APIKey != "" && cfg.AlphaVantage.APIKey != "demo" && cfg.AlphaVantage.APIKey != prefs.APIKey {
		if err := store.SetAPIKey(cfg.AlphaVantage.APIKey); err != nil {
			logger.Warn("saving api key", "error", err)
		}
	}

	demoMode := cfg.DemoMode()
	var src stock.Source
	if demoMode {
		logger.Info("no api key configured, using demo data")
		src = demo.New(demo.WithDelay(time.Duration(cfg.Demo.DelayMs) * time.Millisecond))
	} else {
		opts := []alphavantage.Option{alphavantage.WithHTTPClient(httpx.New(timeout))}
		if cfg.AlphaVantage.BaseURL != "" {
			opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
		}
		if cfg.AlphaVantage.OutputSize != "" {
			opts = append(opts, alphavantage.WithOutputSize(cfg.AlphaVantage.OutputSize))
		}
		client, err := alphavantage.New(cfg.AlphaVantage.APIKey, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alphavantage client: %v\n", err)
			os.Exit(1)
		}
		src = client
		// Prefer token bucket with burst if RPM is set, otherwise use min-interval
		if cfg.AlphaVantage.MaxRequestsPerMinute > 0 {
			rate := float64(cfg.AlphaVantage.MaxRequestsPerMinute) / 60.0
			burst := cfg.AlphaVantage.Burst
			if burst <= 0 {
				burst = 1
			}
			src = &ratelimit.Source{Next: src, TB: ratelimit.NewTokenBucket(rate, burst)}
		} else if cfg.AlphaVantage.MinRequestIntervalSec > 0 {
			interval := time.Duration(cfg.AlphaVantage.MinRequestIntervalSec) * time.Second
			src = &ratelimit.MinInterval{Next: src, Interval: interval}
		}
		if cfg.AlphaVantage.CacheTTLSeconds > 0 {
			src = cache.New(src, time.Duration(cfg.AlphaVantage.CacheTTLSeconds)*time.Second)
		}
	}

	sess := dashboard.NewSession(src, store, demoMode)
	logger.Info("session ready", "demo", demoMode, "state_file", statePath)

	startSymbol := prefs.LastSymbol
	if startSymbol == "" && len(cfg.Symbols) > 0 {
		startSymbol = cfg.Symbols[0]
	}
	if startSymbol == "" {
		startSymbol = "AAPL"
	}

	p := tea.NewProgram(
		initialModel(sess, logger, timeout, startSymbol),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
