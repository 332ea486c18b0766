package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/do"
	"github.com/tonsurance/hedgeplane/internal/claims"
	"github.com/tonsurance/hedgeplane/internal/container"
	"github.com/tonsurance/hedgeplane/internal/hedge"
	"github.com/tonsurance/hedgeplane/internal/monitoring"
	"go.uber.org/zap"
)

// main runs the background half of the coordination plane: the five
// monitoring loops, the claims monitor, and the hedge orchestrator (spec
// §4.3-§4.6), all publishing onto the shared event bus that cmd/server's
// forwarder relays to connected WebSocket clients.
func main() {
	opts := &container.Options{
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),

		PriceFeedURL:  getEnv("PRICE_FEED_URL", "http://localhost:9001"),
		BridgeFeedURL: getEnv("BRIDGE_FEED_URL", "http://localhost:9002"),

		PolymarketURL: getEnv("POLYMARKET_URL", "http://localhost:9101"),
		BinanceURL:    getEnv("BINANCE_URL", "http://localhost:9102"),
		DefiPerpsURL:  getEnv("DEFI_PERPS_URL", "http://localhost:9103"),
		AllianzURL:    getEnv("ALLIANZ_URL", "http://localhost:9104"),

		SampleIntervalSeconds: 60,
		ConfirmationSamples:   1,
		CheckIntervalSeconds:  300,
		MinHedgeAmountCents:   10_000,
		TotalHedgeRatio:       0.20,
		RebalanceThreshold:    0.10,
		RebalanceEnabled:      false,

		StartingPoolCapitalCents: 10_000_000_00,
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.StorePackage(injector)
	container.OraclePackage(injector)
	container.RiskPackage(injector)
	container.VenueAdaptersPackage(injector)
	container.PublisherGroupPackage(injector)
	container.ReadModelStorePackage(injector)
	container.MonitoringGroupPackage(injector)
	container.ClaimsMonitorPackage(injector)
	container.HedgeOrchestratorPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	group := do.MustInvoke[*monitoring.Group](injector)
	claimsMonitor := do.MustInvoke[*claims.Monitor](injector)
	orchestrator := do.MustInvoke[*hedge.Orchestrator](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start monitoring group", zap.Error(err))
	}

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		runTicking(ctx, "claims_monitor", time.Duration(opts.SampleIntervalSeconds)*time.Second, logger, claimsMonitor.RunCycle)
	}()

	go func() {
		defer wg.Done()
		runTicking(ctx, "hedge_orchestrator", time.Duration(opts.CheckIntervalSeconds)*time.Second, logger, orchestrator.RunCycle)
	}()

	logger.Info("consumer started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()
	wg.Wait()

	if err := group.Shutdown(); err != nil {
		logger.Error("monitoring group shutdown error", zap.Error(err))
	}

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// runTicking drives cycle on the given cadence until ctx is cancelled,
// running one cycle immediately on start. A panic or error from cycle is
// logged and the loop resumes on its next normal tick rather than
// crashing the process, matching internal/monitoring's loops (spec §4.3's
// "all loops must be crash-safe" discipline applied uniformly to every
// background loop in this process, not just the five signal loops).
func runTicking(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, cycle func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	safeCycle(ctx, name, logger, cycle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeCycle(ctx, name, logger, cycle)
		}
	}
}

func safeCycle(ctx context.Context, name string, logger *zap.Logger, cycle func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle panicked, resuming next tick", zap.String("cycle", name), zap.Any("panic", r))
		}
	}()

	if err := cycle(ctx); err != nil {
		logger.Error("cycle failed, resuming next tick", zap.String("cycle", name), zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
