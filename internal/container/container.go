package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/tonsurance/hedgeplane/internal/claims"
	"github.com/tonsurance/hedgeplane/internal/config"
	"github.com/tonsurance/hedgeplane/internal/events"
	"github.com/tonsurance/hedgeplane/internal/health"
	"github.com/tonsurance/hedgeplane/internal/hedge"
	"github.com/tonsurance/hedgeplane/internal/hedge/venue"
	"github.com/tonsurance/hedgeplane/internal/httpapi"
	"github.com/tonsurance/hedgeplane/internal/messaging"
	"github.com/tonsurance/hedgeplane/internal/middleware"
	"github.com/tonsurance/hedgeplane/internal/monitoring"
	"github.com/tonsurance/hedgeplane/internal/oracle"
	"github.com/tonsurance/hedgeplane/internal/product"
	"github.com/tonsurance/hedgeplane/internal/ratelimit"
	"github.com/tonsurance/hedgeplane/internal/risk"
	"github.com/tonsurance/hedgeplane/internal/security"
	"github.com/tonsurance/hedgeplane/internal/store"
	"github.com/tonsurance/hedgeplane/internal/wshub"
	"go.uber.org/zap"
)

// Options configures every package below via humacli's env/flag binding,
// the same mechanism the teacher's Options struct uses.
type Options struct {
	Port         int    `default:"8080"           help:"Port to listen on" short:"p"`
	RedisAddr    string `default:"localhost:6379" help:"Redis address"     short:"r"`
	DatabaseURL  string `env:"DATABASE_URL"       help:"PostgreSQL URL (required when StoreBackend=postgres)"`
	StoreBackend     string `default:"memory"  env:"STORE_BACKEND"      help:"memory or postgres"`
	RateLimitBackend string `default:"memory"  env:"RATE_LIMIT_BACKEND" help:"memory or redis"`
	LogFormat        string `default:"console" env:"LOG_FORMAT"        help:"console or json"`

	StartingPoolCapitalCents int64 `default:"10000000000" env:"STARTING_POOL_CAPITAL_CENTS" help:"Starting pool capital, in cents"`

	PriceFeedURL  string `default:"http://localhost:9001" env:"PRICE_FEED_URL"  help:"Price oracle base URL"`
	BridgeFeedURL string `default:"http://localhost:9002" env:"BRIDGE_FEED_URL" help:"Bridge TVL feed base URL"`

	PolymarketURL string `default:"http://localhost:9101" env:"POLYMARKET_URL" help:"Polymarket venue base URL"`
	BinanceURL    string `default:"http://localhost:9102" env:"BINANCE_URL"    help:"CEX perpetuals venue base URL"`
	DefiPerpsURL  string `default:"http://localhost:9103" env:"DEFI_PERPS_URL" help:"DeFi perpetuals venue base URL"`
	AllianzURL    string `default:"http://localhost:9104" env:"ALLIANZ_URL"    help:"Allianz parametric venue base URL"`

	SampleIntervalSeconds int     `default:"60"  env:"SAMPLE_INTERVAL_SECONDS" help:"Claims monitor sample interval"`
	ConfirmationSamples   int     `default:"1"   env:"CONFIRMATION_SAMPLES"   help:"Confirmation samples required before payout"`
	CheckIntervalSeconds  int     `default:"300" env:"CHECK_INTERVAL_SECONDS" help:"Hedge orchestrator check interval"`
	MinHedgeAmountCents   int64   `default:"10000" env:"MIN_HEDGE_AMOUNT_CENTS" help:"Minimum hedge amount, in cents"`
	TotalHedgeRatio       float64 `default:"0.20"  env:"TOTAL_HEDGE_RATIO"      help:"Fraction of exposure to hedge"`
	RebalanceThreshold    float64 `default:"0.10"  env:"REBALANCE_THRESHOLD"    help:"Allocation drift that triggers rebalance"`
	RebalanceEnabled      bool    `default:"false" env:"REBALANCE_ENABLED"      help:"Enable rebalancing (deferred feature)"`

	ConsumerGroup string `default:"hedgeplane-server" env:"CONSUMER_GROUP" help:"Consumer group name for the WS-forwarding consumer"`

	ConfigPath string `env:"CONFIG_PATH" help:"Path to the JSON startup config document (CORS origins, api key bootstrap list, rate-limit table, size cap); empty uses built-in defaults"`
}

// ConfigPackage loads the JSON startup document (spec §6/§9), falling back
// to config.Default when Options.ConfigPath is unset so the process can
// start with zero files on disk.
func ConfigPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*config.Config, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.ConfigPath == "" {
			return config.Default(), nil
		}

		return config.Load(opts.ConfigPath)
	})
}

// LoggerPackage provides the zap logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisClient wraps redis.Client to implement Shutdownable for do.Injector.
type RedisClient struct {
	*redis.Client
}

// Shutdown implements do.Shutdownable.
func (r *RedisClient) Shutdown() error {
	if r.Client != nil {
		return r.Close()
	}

	return nil
}

// RedisPackage provides the Redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPool wraps pgxpool.Pool to implement Shutdownable for do.Injector.
type PostgresPool struct {
	*pgxpool.Pool
}

// Shutdown implements do.Shutdownable.
func (p *PostgresPool) Shutdown() error {
	if p.Pool != nil {
		p.Close()
	}

	return nil
}

// PostgresPackage provides the PostgreSQL connection pool. Only invoked
// when Options.StoreBackend is "postgres".
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// Repositories bundles every persistence-backed collaborator the core
// consumes, letting StorePackage construct the memory or Postgres family
// together and hand out one coherent set regardless of backend.
type Repositories struct {
	Pool          product.PoolRepository
	Policies      claims.PolicyRepository
	TriggerStates claims.TriggerStateRepository
	Positions     hedge.PositionRepository
	ApiKeys       security.Repository
}

// StorePackage provides the Repositories bundle, backed by Postgres or an
// in-memory store per Options.StoreBackend.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Repositories, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.StoreBackend != "postgres" {
			mem := store.NewMemoryStore(opts.StartingPoolCapitalCents)

			return &Repositories{
				Pool:          mem,
				Policies:      mem,
				TriggerStates: mem.TriggerStates(),
				Positions:     mem.HedgePositions(),
				ApiKeys:       mem,
			}, nil
		}

		pgPool := do.MustInvoke[*PostgresPool](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolRepo, err := store.NewPostgresPoolRepository(ctx, pgPool.Pool)
		if err != nil {
			return nil, fmt.Errorf("hydrate pool repository: %w", err)
		}

		return &Repositories{
			Pool:          poolRepo,
			Policies:      store.NewPostgresPolicyRepository(pgPool.Pool, poolRepo),
			TriggerStates: store.NewPostgresTriggerStateRepository(pgPool.Pool),
			Positions:     store.NewPostgresPositionRepository(pgPool.Pool),
			ApiKeys:       store.NewPostgresApiKeyRepository(pgPool.Pool),
		}, nil
	})
}

// RateLimitPackage provides the rate limit store, switched by
// Options.RateLimitBackend exactly like the teacher's own RateLimitPackage
// switches on opts.RateLimitStore. The teacher's Redis-backed case wired a
// subpackage, internal/ratelimit/store, that doesn't exist alongside the
// memory one that does (internal/store/ratelimit_memory.go) — this keeps
// the switch shape but points the "redis" case at a real implementation,
// internal/store/ratelimit_redis.go, built for this rewrite.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitBackend {
		case "redis":
			redisClient := do.MustInvoke[*RedisClient](i)

			return store.NewRateLimitRedisStore(redisClient.Client), nil
		default:
			return store.NewRateLimitMemoryStore(), nil
		}
	})
}

// PublisherGroupPackage provides the publisher group for event publishing.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		redisClient := do.MustInvoke[*RedisClient](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient.Client},
			watermill.NopLogger{},
		)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// OraclePackage provides the price-oracle and bridge-monitor collaborators.
func OraclePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (product.OracleAdapter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return oracle.NewPriceFeed(opts.PriceFeedURL, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (product.BridgeMonitor, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return oracle.NewBridgeDataSource(opts.BridgeFeedURL, oracle.DefaultBridges(), logger), nil
	})
}

// RiskPackage provides the risk-monitor and utilization-tracker collaborators.
func RiskPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (product.RiskMonitor, error) {
		return risk.NewMonitor(risk.DefaultThresholds()), nil
	})

	do.Provide(i, func(i *do.Injector) (product.UtilizationTracker, error) {
		repos := do.MustInvoke[*Repositories](i)

		return risk.NewUtilizationTracker(repos.Pool, risk.DefaultTranches()), nil
	})
}

// VenueAdaptersPackage provides the four hedge-venue adapters, keyed by venue.
func VenueAdaptersPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (map[product.Venue]product.VenueAdapter, error) {
		opts := do.MustInvoke[*Options](i)

		return map[product.Venue]product.VenueAdapter{
			product.VenuePolymarket:        venue.NewPolymarket(opts.PolymarketURL),
			product.VenueBinanceFutures:    venue.NewCEXPerpetuals(opts.BinanceURL),
			product.VenueDefiPerps:         venue.NewDefiPerpetuals(opts.DefiPerpsURL),
			product.VenueAllianzParametric: venue.NewAllianz(opts.AllianzURL),
		}, nil
	})
}

// ReadModelStorePackage provides the cross-process read model the HTTP
// surface reads through (spec §5's process split between cmd/server and
// cmd/consumer).
func ReadModelStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (product.ReadModelStore, error) {
		redisClient := do.MustInvoke[*RedisClient](i)

		return store.NewRedisReadModelStore(redisClient.Client), nil
	})
}

// MonitoringGroupPackage provides the five background monitoring loops
// (spec §4.3), wired for cmd/consumer.
func MonitoringGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*monitoring.Group, error) {
		repos := do.MustInvoke[*Repositories](i)
		bridgeMonitor := do.MustInvoke[product.BridgeMonitor](i)
		riskMonitor := do.MustInvoke[product.RiskMonitor](i)
		utilTracker := do.MustInvoke[product.UtilizationTracker](i)
		readModel := do.MustInvoke[product.ReadModelStore](i)
		publisherGroup := do.MustInvoke[*messaging.PublisherGroup](i)
		logger := do.MustInvoke[*zap.Logger](i)

		deps := monitoring.Dependencies{
			BridgeMonitor:      bridgeMonitor,
			RiskMonitor:        riskMonitor,
			UtilizationTracker: utilTracker,
			PoolRepo:           repos.Pool,
			BridgeTxSource:     noBridgeTransactions{},
			ReadModel:          readModel,
			State:              monitoring.NewSharedState(),
			Publisher:          monitoring.NewEventPublisher(publisherGroup),
			Logger:             logger,
		}

		return monitoring.NewGroup(deps), nil
	})
}

// noBridgeTransactions is the default monitoring.BridgeTransactionSource
// when no bridge-transaction feed is configured: it reports nothing
// pending every tick rather than erroring, keeping the loop alive per
// spec §4.3's crash-isolation rule.
type noBridgeTransactions struct{}

func (noBridgeTransactions) PendingTransactions(_ context.Context) ([]monitoring.BridgeTransaction, error) {
	return nil, nil
}

// ClaimsMonitorPackage provides the claims monitor (spec §4.4), wired for
// cmd/consumer.
func ClaimsMonitorPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*claims.Monitor, error) {
		opts := do.MustInvoke[*Options](i)
		repos := do.MustInvoke[*Repositories](i)
		oracleAdapter := do.MustInvoke[product.OracleAdapter](i)
		publisherGroup := do.MustInvoke[*messaging.PublisherGroup](i)
		logger := do.MustInvoke[*zap.Logger](i)

		claimsOpts := claims.Options{
			SampleInterval:              time.Duration(opts.SampleIntervalSeconds) * time.Second,
			ConfirmationSamplesRequired: opts.ConfirmationSamples,
		}

		publish := messaging.NewPublishFunc[events.ClaimPaid](publisherGroup.Publisher(), events.TopicClaimPaid)

		return claims.NewMonitor(repos.Policies, repos.TriggerStates, oracleAdapter, publish, claimsOpts, logger), nil
	})
}

// HedgeOrchestratorPackage provides the hedge orchestrator and cost
// fetcher (spec §4.5, §4.6), wired for cmd/consumer.
func HedgeOrchestratorPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*hedge.Orchestrator, error) {
		opts := do.MustInvoke[*Options](i)
		repos := do.MustInvoke[*Repositories](i)
		venues := do.MustInvoke[map[product.Venue]product.VenueAdapter](i)
		costFetcher := do.MustInvoke[*hedge.CostFetcher](i)
		publisherGroup := do.MustInvoke[*messaging.PublisherGroup](i)
		logger := do.MustInvoke[*zap.Logger](i)

		idGen, err := nanoid.Standard(12)
		if err != nil {
			return nil, err
		}

		hedgeOpts := hedge.Options{
			CheckInterval:       time.Duration(opts.CheckIntervalSeconds) * time.Second,
			MinHedgeAmountCents: opts.MinHedgeAmountCents,
			TotalHedgeRatio:     opts.TotalHedgeRatio,
			RebalanceThreshold:  opts.RebalanceThreshold,
			RebalanceEnabled:    opts.RebalanceEnabled,
			Weights:             hedge.DefaultVenueWeights(),
		}

		opened := messaging.NewPublishFunc[events.HedgeOpened](publisherGroup.Publisher(), events.TopicHedgeOpened)
		closed := messaging.NewPublishFunc[events.HedgeClosed](publisherGroup.Publisher(), events.TopicHedgeClosed)

		return hedge.NewOrchestrator(repos.Pool, venues, repos.Positions, costFetcher, opened, closed, idGen, hedgeOpts, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (*hedge.CostFetcher, error) {
		venues := do.MustInvoke[map[product.Venue]product.VenueAdapter](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return hedge.NewCostFetcher(
			venues[product.VenuePolymarket],
			venues[product.VenueBinanceFutures],
			venues[product.VenueDefiPerps],
			venues[product.VenueAllianzParametric],
			hedge.DefaultVenueWeights(),
			hedge.DefaultOptions().TotalHedgeRatio,
			logger,
		), nil
	})
}

// WSHubPackage provides the WebSocket fan-out hub (spec §4.2).
func WSHubPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*wshub.Hub, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		idGen, err := nanoid.Standard(16)
		if err != nil {
			return nil, err
		}

		return wshub.NewHub(logger, idGen), nil
	})
}

// EventForwarderPackage provides the consumer group that subscribes to
// the five signal topics and forwards each decoded event straight to the
// WebSocket hub, bridging the cmd/consumer process's publishes to
// cmd/server's connected clients (spec §5's process split).
func EventForwarderPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		redisClient := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)
		hub := do.MustInvoke[*wshub.Hub](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        redisClient.Client,
				ConsumerGroup: opts.ConsumerGroup,
				Consumer:      "ws-forwarder-1",
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)

		addForwarder(group, subscriber, events.TopicBridgeHealth, hub, logger)
		addForwarder(group, subscriber, events.TopicRiskAlerts, hub, logger)
		addForwarder(group, subscriber, events.TopicTopProducts, hub, logger)
		addForwarder(group, subscriber, events.TopicTrancheAPY, hub, logger)
		addForwarder(group, subscriber, events.TopicBridgeTransactions, hub, logger)

		return group, nil
	})
}

// addForwarder registers a consumer that decodes a raw JSON payload off
// topic and broadcasts it to the WS channel of the same name (spec
// §5: "the server process's consumer can forward the decoded payload
// straight to Hub.Broadcast(topic, payload)").
func addForwarder(group *messaging.ConsumerGroup, subscriber message.Subscriber, topic string, hub *wshub.Hub, logger *zap.Logger) {
	group.Add(messaging.NewConsumer(subscriber, topic, func(_ context.Context, payload *map[string]any) error {
		hub.Broadcast(topic, *payload)

		return nil
	}, logger))
}

// HTTPPackage provides the router, API, and registers routes.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		redisClient := do.MustInvoke[*RedisClient](i)
		repos := do.MustInvoke[*Repositories](i)
		readModel := do.MustInvoke[product.ReadModelStore](i)
		rateLimitStore := do.MustInvoke[ratelimit.Store](i)
		hub := do.MustInvoke[*wshub.Hub](i)
		cfg := do.MustInvoke[*config.Config](i)

		seedAPIKeys(context.Background(), logger, repos.ApiKeys, cfg.APIKeys)

		// SizeCap must sit on the raw chi router, not as a huma middleware:
		// huma gives no way to swap a request's body reader once it has taken
		// over, so the only place http.MaxBytesReader can take effect is
		// ahead of huma entirely. It necessarily runs before every huma
		// middleware below, including logging, rather than between them as
		// spec §4.1's chain would otherwise order it.
		router.Use(middleware.SizeCap(cfg.SizeCapBytes))

		api := humachi.New(router, huma.DefaultConfig("HedgePlane Coordination API", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(logger, api))

		protected := []middleware.ProtectedPrefix{
			{Prefix: "/api/v2/admin", RequireAdmin: true},
		}
		api.UseMiddleware(middleware.Auth(api, repos.ApiKeys, protected, logger))

		builder := ratelimit.NewPolicyBuilder()
		for scope, rule := range cfg.RateLimitTable {
			builder = builder.AddLimit(ratelimit.Scope(scope), rule.MaxRequests, rule.Window())
		}

		limiter := ratelimit.NewPolicyLimiter(rateLimitStore, builder.Build())
		resolver := ratelimit.NewOperationScopeResolver()
		api.UseMiddleware(middleware.PolicyRateLimiter(api, limiter, resolver, logger))

		api.UseMiddleware(middleware.CORS(api, cfg.CORSAllowedOrigins))

		router.Options("/*", middleware.Preflight(cfg.CORSAllowedOrigins))

		httpHandler := httpapi.NewHandler(repos.Pool, readModel, logger)
		httpapi.RegisterRoutes(api, httpHandler)

		healthHandler := health.NewHandler(health.NewRedisChecker(redisClient.Client))
		health.RegisterRoutes(api, healthHandler)

		router.Handle("/ws", hub)

		return api, nil
	})
}

// apiKeySeeder is satisfied by the repository implementations that support
// seeding a bootstrap key (store.MemoryStore, store.PostgresApiKeyRepository);
// other security.Repository implementations simply don't get bootstrap
// seeding and rely on keys already present in their backing store.
type apiKeySeeder interface {
	Seed(ctx context.Context, info *security.ApiKeyInfo) error
}

type memorySeeder interface {
	PutAPIKey(info *security.ApiKeyInfo)
}

// seedAPIKeys hashes and inserts the config document's bootstrap keys into
// repo at startup, so a freshly provisioned environment has at least one
// working key without a separate admin step (spec §6/§9).
func seedAPIKeys(ctx context.Context, logger *zap.Logger, repo security.Repository, keys []config.BootstrapAPIKey) {
	for _, k := range keys {
		info := &security.ApiKeyInfo{
			KeyHash:   security.HashKey(k.RawKey),
			Name:      k.Name,
			Scopes:    toScopes(k.Scopes),
			CreatedAt: time.Now(),
			ExpiresAt: k.ExpiresAt,
		}

		switch r := repo.(type) {
		case memorySeeder:
			r.PutAPIKey(info)
		case apiKeySeeder:
			if err := r.Seed(ctx, info); err != nil {
				logger.Error("failed to seed bootstrap api key", zap.String("name", k.Name), zap.Error(err))
			}
		default:
			logger.Warn("api key repository does not support bootstrap seeding, skipping", zap.String("name", k.Name))
		}
	}
}

func toScopes(raw []string) []security.Scope {
	scopes := make([]security.Scope, len(raw))
	for i, s := range raw {
		scopes[i] = security.Scope(s)
	}

	return scopes
}
