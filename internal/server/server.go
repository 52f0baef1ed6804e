// Package server exposes the finance-data proxy endpoints over the price
// facade and the feed service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pricefeed/internal/feeds"
	"pricefeed/internal/pricing"
	"pricefeed/internal/quote"
)

// Server wires the HTTP API. It owns no state of its own; everything
// mutable lives in the injected services.
type Server struct {
	quotes         *quote.Service
	feeds          *feeds.Service
	logger         *slog.Logger
	requestTimeout time.Duration
}

// New creates a Server.
func New(quotes *quote.Service, feedSvc *feeds.Service, logger *slog.Logger, requestTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &Server{quotes: quotes, feeds: feedSvc, logger: logger, requestTimeout: requestTimeout}
}

// Handler builds the route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/price/current", s.handleCurrent)
	mux.HandleFunc("GET /api/price/historical", s.handleHistorical)
	mux.HandleFunc("GET /api/yield", s.handleYield)
	mux.HandleFunc("GET /api/news", s.handleNews)

	return s.logRequests(withJSONHeaders(recoverPanic(mux, s.logger)))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	assetType, symbol, ok := s.assetParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	rec, err := s.quotes.GetCurrentPrice(ctx, assetType, symbol)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	assetType, symbol, ok := s.assetParams(w, r)
	if !ok {
		return
	}
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	rec, err := s.quotes.GetHistoricalPrice(ctx, assetType, symbol, date)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	// Exists=false is a confirmed "no trading data" outcome, not an error.
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleYield(w http.ResponseWriter, r *http.Request) {
	assetType, symbol, ok := s.assetParams(w, r)
	if !ok {
		return
	}
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.quotes.Yield(ctx, assetType, symbol, date)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var items []feeds.Item
	var err error
	if source := r.URL.Query().Get("source"); source != "" {
		items, err = s.feeds.Fetch(ctx, source)
	} else {
		items, err = s.feeds.FetchAll(ctx)
	}
	if err != nil {
		if pricing.IsKind(err, pricing.KindUnsupportedSymbol) {
			writeError(w, http.StatusNotFound, "unknown feed source")
			return
		}
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) assetParams(w http.ResponseWriter, r *http.Request) (pricing.AssetType, string, bool) {
	q := r.URL.Query()
	assetType, ok := pricing.ParseAssetType(q.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "type must be one of crypto|stock|index|domestic")
		return "", "", false
	}
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return "", "", false
	}
	return assetType, symbol, true
}

func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	var le *pricing.LookupError
	if errors.As(err, &le) {
		switch le.Kind {
		case pricing.KindAllProvidersUnavailable, pricing.KindProviderUnavailable:
			writeError(w, http.StatusBadGateway, le.Error())
		case pricing.KindRateLimited:
			writeError(w, http.StatusServiceUnavailable, le.Error())
		case pricing.KindUnsupportedSymbol:
			writeError(w, http.StatusNotFound, le.Error())
		default:
			writeError(w, http.StatusInternalServerError, le.Error())
		}
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in handler", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"duration", time.Since(start))
	})
}
