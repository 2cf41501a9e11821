package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/simp-lee/logger"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/config"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/middleware"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/module/records"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/module/salesorder"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

const shutdownTimeout = 5 * time.Second

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	store  *store.Manager
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, connects to MongoDB (a failed connection leaves the
// app running in the disconnected state), builds the metrics registry,
// repositories, services, handlers and middleware, and registers routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 exposes debug behavior")
	}

	// 2. Connect to MongoDB. Indexes are ensured before the server starts.
	mgr := store.Connect(context.Background(), &cfg.Mongo, log.Logger)
	defer func() {
		if success {
			return
		}
		if err := mgr.Close(context.Background()); err != nil {
			slog.Error("mongodb close error", slog.Any("error", err))
		}
	}()

	// 3. Metrics registry.
	var (
		reg         *prometheus.Registry
		httpMetrics *middleware.HTTPMetrics
		soMetrics   *salesorder.Metrics
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		httpMetrics = middleware.NewHTTPMetrics(reg)
		soMetrics = salesorder.NewMetrics(reg)
	}

	// 4. Manual dependency injection: repository → service → handler.
	names := cfg.Mongo.Collections
	soRepo := salesorder.NewRepository(mgr, names.SalesOrders, log.Logger, soMetrics)
	soSvc := salesorder.NewService(mgr, soRepo, salesorder.ServiceOptions{
		Location: cfg.SalesOrders.Location(),
		Logger:   log.Logger,
		Metrics:  soMetrics,
	})

	listing := func(path, collection string) records.Listing {
		repo := records.NewRepository(mgr, collection, log.Logger)
		svc := records.NewService(mgr, repo, collection, log.Logger)
		return records.Listing{Path: path, Handler: records.NewRecordHandler(svc, cfg.SalesOrders.MaxLimit)}
	}

	modules := []Module{
		salesorder.NewModule(salesorder.NewSalesOrderHandler(soSvc, cfg.SalesOrders.MaxLimit)),
		records.NewModule(
			listing("/purchase-orders", names.PurchaseOrders),
			listing("/stock-transfers", names.StockTransfers),
			listing("/target-orders", names.TargetOrders),
		),
	}

	// 5. Create Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	chain := []gin.HandlerFunc{
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustUpstream: cfg.Server.TrustRequestID}),
		middleware.Logger(log.Logger, "/health", cfg.Metrics.Path),
		middleware.CORSWithConfig(resolveCORSConfig(&cfg.Server.CORS)),
	}
	if httpMetrics != nil {
		chain = append(chain, middleware.Metrics(httpMetrics))
	}
	chain = append(chain, middleware.Timeout(requestTimeout(cfg.Server.Timeout)))
	engine.Use(chain...)

	// 6. Register all routes.
	deps := &RouteDeps{
		Modules: modules,
		Store:   mgr,
	}
	if reg != nil {
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		deps.MetricsPath = cfg.Metrics.Path
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		store:  mgr,
		logger: log,
		cfg:    cfg,
	}, nil
}

// resolveCORSConfig maps the server.cors section onto the middleware config.
// Without an allowlist any origin may read, as the dashboard frontend is
// served from a separate host.
func resolveCORSConfig(c *config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(c.AllowOrigins) > 0 {
		out.AllowOrigins = c.AllowOrigins
	}
	if len(c.AllowMethods) > 0 {
		out.AllowMethods = c.AllowMethods
	}
	if len(c.AllowHeaders) > 0 {
		out.AllowHeaders = c.AllowHeaders
	}
	out.AllowCredentials = c.AllowCredentials
	if d, err := time.ParseDuration(c.MaxAge); err == nil && d > 0 {
		out.MaxAge = strconv.Itoa(int(d.Seconds()))
	}
	return out
}

// requestTimeout parses server.timeout. Unset or invalid values disable it.
func requestTimeout(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and then disconnects
// from MongoDB.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			slog.String("addr", addr),
			slog.Bool("mongodb_connected", a.store.Connected()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.store.Close(closeCtx); err != nil {
		log.Error("mongodb close error", slog.Any("error", err))
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
