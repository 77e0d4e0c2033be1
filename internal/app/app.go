// Package app wires the register API server together.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/scankart/internal/catalog"
	"github.com/xenking/scankart/internal/domain/product"
	"github.com/xenking/scankart/internal/domain/receipt"
	"github.com/xenking/scankart/internal/handler"
	"github.com/xenking/scankart/internal/printout"
	"github.com/xenking/scankart/internal/session"
	"github.com/xenking/scankart/internal/storage/bolt"
	"github.com/xenking/scankart/internal/storage/postgres"
	"github.com/xenking/scankart/pkg/health"
	"github.com/xenking/scankart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddLiveness(health.Probe{Name: "goroutines", Check: health.GoroutineCountCheck(10000)})

	// Storage: PostgreSQL when configured, otherwise an optional bolt file.
	var (
		productRepo product.Repository
		journal     receipt.Journal = receipt.NopJournal{}
	)
	switch {
	case cfg.DatabaseURL != "":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		productRepo = postgres.NewProductRepository(pool)
		journal = postgres.NewReceiptRepository(pool)
		healthSvc.AddReadiness(health.Probe{Name: "postgres", Timeout: 5 * time.Second, Check: health.PingCheck(pool)})
	case cfg.JournalPath != "":
		j, err := bolt.Open(cfg.JournalPath)
		if err != nil {
			return errors.Wrap(err, "open journal")
		}
		defer closeLogged(lg, "journal", j)
		journal = j
	default:
		lg.Warn("No database or journal configured, receipts will not be kept")
	}

	products, source, err := loadCatalog(ctx, cfg, productRepo)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.String("source", source), zap.Int("products", products.Len()))
	healthSvc.AddReadiness(health.Probe{Name: "catalog", Check: health.MinCountCheck("catalog", 1, products.Len)})

	printOpts, err := cfg.Printout.Options()
	if err != nil {
		return errors.Wrap(err, "printout options")
	}
	printer := printout.New(printOpts)

	sessions, err := session.NewService(
		products,
		session.NewStore(cfg.Sessions.Max, cfg.Sessions.TTL),
		journal,
		session.Options{
			MeterProvider:  m.MeterProvider(),
			TracerProvider: m.TracerProvider(),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create session service")
	}

	// Router: health endpoints + API routes on one server.
	router := mux.NewRouter()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	handler.New(handler.Config{}, products, sessions, printer).
		Register(router.PathPrefix("/api").Subrouter())

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("scankart-api", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: stop advertising readiness, drain, then stop.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server",
			zap.Duration("timeout", cfg.Graceful.ShutdownTimeout),
			zap.Int("open_sessions", sessions.Sessions()),
		)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// loadCatalog picks the catalog source: an explicit feed file first, then
// the products table, then the embedded demo catalog.
func loadCatalog(ctx context.Context, cfg *Config, repo product.Repository) (*catalog.Catalog, string, error) {
	if cfg.CatalogFile != "" {
		c, err := catalog.LoadFile(cfg.CatalogFile)
		return c, cfg.CatalogFile, err
	}
	if repo != nil {
		c, err := catalog.LoadRepository(ctx, repo)
		if err != nil {
			return nil, "", err
		}
		if c.Len() > 0 {
			return c, "postgres", nil
		}
		zctx.From(ctx).Warn("Products table is empty, using the demo catalog; run seed-catalog to fill it")
	}
	c, err := catalog.Default()
	return c, "embedded", err
}

func closeLogged(lg *zap.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		lg.Error("Close failed", zap.String("what", what), zap.Error(err))
	}
}
