package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"stockboard/internal/config"
	"stockboard/internal/httpx"
	"stockboard/internal/snapshot"
	"stockboard/internal/stock"
	"stockboard/internal/stock/alphavantage"
	"stockboard/internal/stock/demo"
	"stockboard/internal/stock/ratelimit"
)

func main() {
	var symbolsCSV string
	var outPath string
	var cronSpec string
	var demoFlag bool
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", "", "comma-separated tickers (default from config/SYMBOLS)")
	flag.StringVar(&outPath, "out", "", "output file (default from config)")
	flag.StringVar(&cronSpec, "cron", "", "cron schedule; empty runs once and exits")
	flag.BoolVar(&demoFlag, "demo", false, "generate demo data instead of calling the API")
	flag.IntVar(&timeout, "timeout", 0, "per-request timeout seconds")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Override select fields from flags where provided
	if symbolsCSV != "" {
		cfg.Symbols = splitCSV(symbolsCSV)
	}
	if outPath != "" {
		cfg.Snapshot.OutputFile = outPath
	}
	if cronSpec != "" {
		cfg.Snapshot.Cron = cronSpec
	}
	if demoFlag {
		cfg.Demo.Enabled = true
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}
	if len(cfg.Symbols) == 0 {
		log.Fatal("no symbols provided")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var src stock.Source
	if cfg.DemoMode() {
		log.Println("warning: ALPHA_VANTAGE_API_KEY not set; generating demo data")
		// No artificial latency for batch generation.
		src = demo.New(demo.WithDelay(0))
	} else {
		opts := []alphavantage.Option{alphavantage.WithHTTPClient(httpClient)}
		if cfg.AlphaVantage.BaseURL != "" {
			opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
		}
		if cfg.AlphaVantage.OutputSize != "" {
			opts = append(opts, alphavantage.WithOutputSize(cfg.AlphaVantage.OutputSize))
		}
		client, err := alphavantage.New(cfg.AlphaVantage.APIKey, opts...)
		if err != nil {
			log.Fatalf("alphavantage client: %v", err)
		}
		src = client
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
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func(ctx context.Context) error {
		f, err := snapshot.Build(ctx, src, cfg.Symbols)
		if err != nil {
			return err
		}
		if err := snapshot.Write(cfg.Snapshot.OutputFile, f); err != nil {
			return err
		}
		for _, sym := range f.Symbols {
			e := f.Stocks[sym]
			log.Printf("%s: $%.2f (%+.2f)", sym, e.Quote.Price, e.Quote.Change)
		}
		log.Printf("saved %d stocks to %s", len(f.Stocks), cfg.Snapshot.OutputFile)
		return nil
	}

	if cfg.Snapshot.Cron == "" {
		if err := run(ctx); err != nil {
			log.Fatalf("snapshot: %v", err)
		}
		return
	}

	// Cron mode: snapshot immediately, then on schedule until signaled.
	if err := run(ctx); err != nil {
		log.Printf("snapshot: %v", err)
	}
	c := cron.New()
	if _, err := c.AddFunc(cfg.Snapshot.Cron, func() {
		if err := run(ctx); err != nil {
			log.Printf("snapshot: %v", err)
		}
	}); err != nil {
		log.Fatalf("register snapshot task: %v", err)
	}
	c.Start()
	log.Printf("snapshot scheduled %q", cfg.Snapshot.Cron)

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
}

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
