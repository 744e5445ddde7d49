// Package snapshot assembles the dashboard data file: one fetch pass over a
// symbol list, written as a single JSON artifact.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"stockboard/internal/stock"
)

// File is the artifact layout consumed by the dashboard.
type File struct {
	LastUpdated time.Time        `json:"lastUpdated"`
	Symbols     []string         `json:"symbols"`
	Stocks      map[string]Entry `json:"stocks"`
}

// Entry is one symbol's slice of the artifact.
type Entry struct {
	Quote    stock.Quote    `json:"quote"`
	History  stock.History  `json:"history"`
	Overview stock.Overview `json:"overview"`
}

// Build fetches every symbol through src. A symbol whose quote fails is
// skipped with a log line; a failed history keeps the symbol with an empty
// series. The build fails only when nothing was fetched at all.
func Build(ctx context.Context, src stock.Source, symbols []string) (*File, error) {
	stocks := make(map[string]Entry, len(symbols))
	fetched := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q, err := src.Quote(ctx, sym)
		if err != nil {
			log.Printf("skipping %s: %v", sym, err)
			continue
		}
		h, err := src.Daily(ctx, sym)
		if err != nil {
			log.Printf("%s history: %v", sym, err)
			h = stock.History{}
		}
		o, err := src.Overview(ctx, sym)
		if err != nil {
			o = stock.DegradedOverview(sym)
		}

		stocks[sym] = Entry{Quote: q, History: h, Overview: o}
		fetched = append(fetched, sym)
	}

	if len(stocks) == 0 {
		return nil, errors.New("no data fetched")
	}
	return &File{
		LastUpdated: time.Now().UTC(),
		Symbols:     fetched,
		Stocks:      stocks,
	}, nil
}

// Write saves the artifact at path, creating parent directories as needed.
func Write(path string, f *File) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
