package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/starship-shop/internal/domain/cart"
	"github.com/xenking/starship-shop/internal/domain/catalog"
	"github.com/xenking/starship-shop/internal/domain/checkout"
	"github.com/xenking/starship-shop/internal/domain/credits"
	"github.com/xenking/starship-shop/internal/handler"
	"github.com/xenking/starship-shop/internal/shop"
	"github.com/xenking/starship-shop/internal/swapi"
	"github.com/xenking/starship-shop/pkg/health"
	"github.com/xenking/starship-shop/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("catalog", cfg.Catalog.BaseURL),
	)

	storage, closeStorage, err := openStorage(ctx, lg, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	client := swapi.New(cfg.Catalog.BaseURL, swapi.Options{
		Timeout:        cfg.Catalog.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})

	s, err := newShop(lg, cfg, client, storage, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	warmUp(ctx, lg, s)

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, health.Check{
		Name:    "storage",
		Timeout: 2 * time.Second,
		Func:    health.PingCheck(storage),
	})
	healthSvc.Add(health.Readiness, health.Check{
		Name:     "catalog",
		Timeout:  5 * time.Second,
		Func:     health.PingCheck(client),
		Optional: true,
	})
	healthSvc.Add(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})
	healthSvc.Start(ctx, cfg.HealthInterval)
	healthSvc.SetReady(true)

	router := chi.NewRouter()
	router.Use(httpmiddleware.LogRequests())
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	handler.New(handler.Config{ImageBaseURL: cfg.ImageBaseURL}, s).Register(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Catalog.Timeout + cfg.Checkout.Delay + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(router, "shop-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newShop builds the domain stores and the intent dispatcher over them.
func newShop(
	lg *zap.Logger,
	cfg *Config,
	client catalog.Client,
	storage credits.Storage,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*shop.Shop, error) {
	taxRate, err := cfg.Checkout.taxRate()
	if err != nil {
		return nil, err
	}

	browser := catalog.NewBrowser(client, lg.Named("catalog"))
	cartStore := cart.NewStore()
	creditStore := credits.NewStore(storage,
		credits.WithKey(cfg.Storage.Key),
		credits.WithLogger(lg.Named("credits")),
	)
	checkoutSvc, err := checkout.NewService(cartStore, creditStore,
		checkout.Config{
			TaxRate:           &taxRate,
			Delay:             cfg.Checkout.Delay,
			StrictPersistence: cfg.Checkout.StrictPersistence,
		},
		checkout.WithLogger(lg.Named("checkout")),
		checkout.WithTracerProvider(tp),
		checkout.WithMeterProvider(mp),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}

	return shop.New(browser, cartStore, creditStore, checkoutSvc,
		shop.Config{
			CartInterval:   cfg.Gates.Cart,
			SearchInterval: cfg.Gates.Search,
			MinQueryLength: cfg.Gates.MinQueryLength,
		},
		shop.WithLogger(lg.Named("shop")),
	), nil
}

// warmUp loads the persisted balance and the first catalog page
// concurrently. Failures are captured in the store state and logged; they do
// not block startup.
func warmUp(ctx context.Context, lg *zap.Logger, s *shop.Shop) {
	var g errgroup.Group
	g.Go(func() error {
		balance, err := s.LoadCredits(ctx)
		if err != nil {
			lg.Warn("Load credits failed", zap.Error(err))
			return nil
		}
		lg.Info("Credits loaded", zap.Int64("balance", balance))
		return nil
	})
	g.Go(func() error {
		if err := s.FetchPage(ctx, 1); err != nil {
			lg.Warn("Initial catalog fetch failed", zap.Error(err))
			return nil
		}
		lg.Info("Catalog loaded", zap.Int("items", len(s.Snapshot().Catalog.Items)))
		return nil
	})
	_ = g.Wait()
}
