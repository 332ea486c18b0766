package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/tonsurance/hedgeplane/internal/container"
	"github.com/tonsurance/hedgeplane/internal/messaging"
	"github.com/tonsurance/hedgeplane/internal/wshub"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.StorePackage(injector)
	container.RateLimitPackage(injector)
	container.ConfigPackage(injector)
	container.PublisherGroupPackage(injector)
	container.ReadModelStorePackage(injector)
	container.WSHubPackage(injector)
	container.EventForwarderPackage(injector)
	container.HTTPPackage(injector)
}

// main runs the HTTP + WebSocket edge of the coordination plane: the REST
// surface serving the consumer process's read model, and a hub fanning
// out the same process's signal topics to connected clients (spec §5's
// two-process split).
func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		var hub *wshub.Hub

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration.
			_ = do.MustInvoke[huma.API](injector)

			hub = do.MustInvoke[*wshub.Hub](injector)
			go hub.Run()

			forwarder := do.MustInvoke[*messaging.ConsumerGroup](injector)
			if err := forwarder.Start(ctx); err != nil {
				logger.Fatal("event forwarder failed to start", zap.Error(err))
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting", zap.Int("port", options.Port))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")
			cancel()

			if hub != nil {
				if err := hub.Shutdown(); err != nil {
					logger.Error("hub shutdown error", zap.Error(err))
				}
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if server != nil {
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Run()
}
