package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/tenantscope/internal/adapter/fsm"
	"github.com/neomorfeo/tenantscope/internal/adapter/manifest"
	"github.com/neomorfeo/tenantscope/internal/adapter/otel"
	"github.com/neomorfeo/tenantscope/internal/adapter/prometheus"
	"github.com/neomorfeo/tenantscope/internal/adapter/river"
	"github.com/neomorfeo/tenantscope/internal/adapter/sqlite"
	"github.com/neomorfeo/tenantscope/internal/app"
	"github.com/neomorfeo/tenantscope/internal/config"
	"github.com/neomorfeo/tenantscope/internal/domain"

	handler "github.com/neomorfeo/tenantscope/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tenantscope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := otel.Setup(ctx, cfg.OTel())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	worker := river.NewJobWorker(logger.Named("worker"))
	client, err := river.Setup(ctx, db, worker, cfg.JobWorkers)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	recorder := prometheus.NewRecorder()

	var provider domain.TenantIDProvider
	if cfg.TenantIDVariable != "" {
		provider = app.VariableTenantIDProvider{Variable: cfg.TenantIDVariable}
	}

	// --- Application ---
	engine := app.NewEngine(app.Config{
		TenantCheckEnabled: cfg.TenantCheckEnabled,
		JobRetries:         cfg.JobMaxAttempts,
		MonitorInterval:    cfg.MonitorInterval,
	}, app.Dependencies{
		Store:     otel.NewTracingStore(store),
		Publisher: otel.NewTracingPublisher(river.NewPublisher(client)),
		Validator: fsm.New(),
		Provider:  provider,
		Evaluator: manifest.StaticEvaluator{},
		Recorder:  recorder,
		Logger:    logger,
	})
	worker.Bind(engine.Jobs)

	// --- Adapters (in) ---
	auth := handler.NewAuthenticator(cfg.AuthSecret, logger.Named("auth"))
	router := newRouter(engine, auth, recorder.Handler(), cfg.Telemetry.ServiceName, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("tenantscope listening",
			zap.String("addr", srv.Addr),
			zap.Bool("tenant_check", cfg.TenantCheckEnabled),
			zap.Bool("authentication", cfg.AuthSecret != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := client.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("river stop: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// newRouter mounts the API, the metrics endpoint and the middleware chain.
func newRouter(engine *app.Engine, auth *handler.Authenticator, metrics http.Handler, serviceName string, logger *zap.Logger) *chi.Mux {
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger.Named("http")))

	router.Handle("/metrics", metrics)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		humaConfig := huma.DefaultConfig("tenantscope", "0.1.0")
		humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		}
		api := humachi.New(r, humaConfig)
		handler.Register(api, engine)
	})

	return router
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
