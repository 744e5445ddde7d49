package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stockboard/internal/config"
)

// avdump fetches one raw Alpha Vantage payload and pretty-prints it, for
// inspecting what the API actually returns before the client normalizes it.
func main() {
	var (
		function   string
		symbol     string
		outputSize string
		outPath    string
		timeoutSec int
		cfgPath    string
	)
	flag.StringVar(&function, "function", "GLOBAL_QUOTE", "API function: GLOBAL_QUOTE, TIME_SERIES_DAILY, or OVERVIEW")
	flag.StringVar(&symbol, "symbol", "AAPL", "ticker symbol")
	flag.StringVar(&outputSize, "outputsize", "compact", "outputsize for TIME_SERIES_DAILY")
	flag.StringVar(&outPath, "out", "", "output file (default stdout)")
	flag.IntVar(&timeoutSec, "timeout", 30, "HTTP timeout seconds")
	flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DemoMode() {
		log.Fatal("ALPHA_VANTAGE_API_KEY missing (set in config.json or env)")
	}
	baseURL := cfg.AlphaVantage.BaseURL
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}

	query := url.Values{
		"function": {function},
		"symbol":   {symbol},
		"apikey":   {cfg.AlphaVantage.APIKey},
	}
	if function == "TIME_SERIES_DAILY" {
		query.Set("outputsize", outputSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", baseURL, query.Encode()), http.NoBody)
	if err != nil {
		log.Fatalf("request: %v", err)
	}

	hc := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		log.Fatalf("perform: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		log.Fatalf("http %d: %s", resp.StatusCode, b)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read body: %v", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON after all; dump as-is.
		pretty.Write(raw)
	}
	pretty.WriteByte('\n')

	if outPath == "" {
		_, _ = os.Stdout.Write(pretty.Bytes())
		return
	}
	if err := os.WriteFile(outPath, pretty.Bytes(), 0o644); err != nil {
		log.Fatalf("write out: %v", err)
	}
	log.Printf("done: wrote %s", outPath)
}
