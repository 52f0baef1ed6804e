package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricefeed/internal/binance"
	"pricefeed/internal/coingecko"
	"pricefeed/internal/config"
	"pricefeed/internal/coordinator"
	"pricefeed/internal/feeds"
	"pricefeed/internal/logging"
	"pricefeed/internal/okx"
	"pricefeed/internal/pricecache"
	"pricefeed/internal/pricing"
	"pricefeed/internal/quote"
	"pricefeed/internal/ratelimit"
	"pricefeed/internal/resolver"
	"pricefeed/internal/server"
	"pricefeed/internal/sina"
	"pricefeed/internal/stooq"
	"pricefeed/internal/yahoo"
)

func main() {
	serve := flag.Bool("serve", false, "start the HTTP API instead of a one-shot fetch")
	since := flag.String("since", "", "print yields since this date (YYYY-MM-DD) instead of spot prices")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	governor := ratelimit.New()
	svc := buildService(cfg, governor, logger)
	feedSvc := buildFeeds(cfg, governor, logger)

	if *serve {
		runServer(ctx, cfg, svc, feedSvc, logger)
		return
	}

	lookups := make([]coordinator.Lookup, 0, len(cfg.Watchlist))
	for _, w := range cfg.Watchlist {
		assetType, ok := pricing.ParseAssetType(w.Type)
		if !ok {
			log.Fatalf("watchlist entry %s/%s: unknown asset type", w.Type, w.Symbol)
		}
		lookups = append(lookups, coordinator.Lookup{AssetType: assetType, Symbol: w.Symbol})
	}
	coord := coordinator.New(svc, lookups)

	// Bounded overall run so a hung upstream cannot stall the CLI
	fetchCtx, fetchCancel := context.WithTimeout(ctx, 60*time.Second)
	defer fetchCancel()

	fmt.Println("Fetching prices from configured providers...")
	fmt.Println("============================================")
	if *since != "" {
		date, err := time.ParseInLocation("2006-01-02", *since, time.UTC)
		if err != nil {
			log.Fatalf("invalid -since date %q: %v", *since, err)
		}
		err = coord.RunYield(fetchCtx, date)
		if err != nil {
			log.Fatalf("Coordinator failed: %v", err)
		}
	} else if err := coord.Run(fetchCtx); err != nil {
		log.Fatalf("Coordinator failed: %v", err)
	}
	fmt.Println("============================================")
}

// buildService composes governor, adapters, resolver, cache and facade.
// All shared mutable state is constructor-injected; nothing is a package
// singleton.
func buildService(cfg *config.Config, governor *ratelimit.Governor, logger *slog.Logger) *quote.Service {
	chains := map[pricing.AssetType][]pricing.Adapter{
		pricing.AssetCrypto: {
			binance.New(cfg.ProviderSymbols(binance.Name), cfg.BinanceBaseURL),
			okx.New(cfg.ProviderSymbols(okx.Name), cfg.OKXBaseURL),
			coingecko.New(cfg.ProviderSymbols(coingecko.Name), cfg.CoingeckoBaseURL),
		},
	}
	yahooAdapter := yahoo.New(cfg.ProviderSymbols(yahoo.Name), cfg.YahooBaseURL)
	stooqAdapter := stooq.New(cfg.ProviderSymbols(stooq.Name), cfg.StooqBaseURL)
	chains[pricing.AssetStock] = []pricing.Adapter{yahooAdapter, stooqAdapter}
	chains[pricing.AssetIndex] = []pricing.Adapter{yahooAdapter, stooqAdapter}
	chains[pricing.AssetDomestic] = []pricing.Adapter{
		sina.New(cfg.ProviderSymbols(sina.Name), cfg.SinaBaseURL),
	}

	limits := make(map[string]ratelimit.Limit, len(cfg.RateLimits))
	for key, rl := range cfg.RateLimits {
		limits[key] = ratelimit.Limit{
			MaxRequests: rl.MaxRequests,
			Window:      time.Duration(rl.WindowMs) * time.Millisecond,
		}
	}

	res := resolver.New(chains, governor, limits,
		resolver.WithGlobalLimit(cfg.GlobalRequestsPerSec, cfg.GlobalBurst),
		resolver.WithLogger(logger))

	return quote.New(pricecache.New(), res, logger)
}

func buildFeeds(cfg *config.Config, governor *ratelimit.Governor, logger *slog.Logger) *feeds.Service {
	sources := make([]feeds.Source, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		sources = append(sources, feeds.Source{Name: f.Name, URL: f.URL})
	}
	limit := ratelimit.Limit{
		MaxRequests: cfg.FeedLimit.MaxRequests,
		Window:      time.Duration(cfg.FeedLimit.WindowMs) * time.Millisecond,
	}
	return feeds.New(sources, governor, limit, logger)
}

func runServer(ctx context.Context, cfg *config.Config, svc *quote.Service, feedSvc *feeds.Service, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           server.New(svc, feedSvc, logger, time.Duration(cfg.RequestTimeoutSec)*time.Second).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
