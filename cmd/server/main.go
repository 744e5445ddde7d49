package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"stockboard/internal/config"
	"stockboard/internal/dashboard"
	"stockboard/internal/httpx"
	"stockboard/internal/stock"
	"stockboard/internal/stock/alphavantage"
	"stockboard/internal/stock/cache"
	"stockboard/internal/stock/demo"
	"stockboard/internal/stock/ratelimit"
	"stockboard/internal/timerange"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found; using system environment variables")
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

	httpClient := httpx.New(timeout)

	var src stock.Source
	if cfg.DemoMode() {
		log.Println("warning: ALPHA_VANTAGE_API_KEY not set; serving demo data")
		src = demo.New(demo.WithDelay(time.Duration(cfg.Demo.DelayMs) * time.Millisecond))
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

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stock/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		handleGetStock(w, r, src, timeout)
	}).Methods(http.MethodGet)
	api.HandleFunc("/quote/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		handleGetQuote(w, r, src, timeout)
	}).Methods(http.MethodGet)
	api.HandleFunc("/history/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		handleGetHistory(w, r, src, timeout)
	}).Methods(http.MethodGet)
	api.HandleFunc("/overview/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		handleGetOverview(w, r, src, timeout)
	}).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withRequestID(c.Handler(withJSONHeaders(withGzip(recoverPanic(limitBody(router)))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// pathSymbol pulls the normalized ticker out of the route.
func pathSymbol(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
}

// rangeFilter applies the optional ?range= query to a history. No parameter
// means the full series.
func rangeFilter(r *http.Request, h stock.History) stock.History {
	v := r.URL.Query().Get("range")
	if v == "" {
		return h
	}
	return timerange.Filter(h, timerange.Token(strings.ToUpper(v)), time.Now())
}

func handleGetStock(w http.ResponseWriter, r *http.Request, src stock.Source, timeout time.Duration) {
	symbol := pathSymbol(r)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	data, err := dashboard.FetchAll(ctx, src, symbol)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	data.History = rangeFilter(r, data.History)
	writeJSON(w, http.StatusOK, data)
}

func handleGetQuote(w http.ResponseWriter, r *http.Request, src stock.Source, timeout time.Duration) {
	symbol := pathSymbol(r)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	q, err := src.Quote(ctx, symbol)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func handleGetHistory(w http.ResponseWriter, r *http.Request, src stock.Source, timeout time.Duration) {
	symbol := pathSymbol(r)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	h, err := src.Daily(ctx, symbol)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rangeFilter(r, h))
}

func handleGetOverview(w http.ResponseWriter, r *http.Request, src stock.Source, timeout time.Duration) {
	symbol := pathSymbol(r)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	o, err := src.Overview(ctx, symbol)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// writeAPIError maps source errors onto HTTP statuses: unknown or empty
// symbols are 404, exhausted quota is 429, anything else is an upstream
// failure.
func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stock.ErrInvalidSymbol), errors.Is(err, stock.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, stock.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// withRequestID tags every request with an ID, echoes it back, and logs the
// outcome.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %s rid=%s", r.Method, r.URL.Path, sw.status, time.Since(start), id)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
