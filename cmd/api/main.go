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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siacollections/storefront/internal/handlers"
	"github.com/siacollections/storefront/internal/platform/auth"
	"github.com/siacollections/storefront/internal/platform/config"
	pfirestore "github.com/siacollections/storefront/internal/platform/firestore"
	"github.com/siacollections/storefront/internal/platform/metrics"
	"github.com/siacollections/storefront/internal/platform/observability"
	"github.com/siacollections/storefront/internal/platform/redis"
	firestoreRepo "github.com/siacollections/storefront/internal/repositories/firestore"
	"github.com/siacollections/storefront/internal/repositories/kvcache"
	"github.com/siacollections/storefront/internal/services"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(logger.Named("api")); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	eventLogger := observability.EventLogger(logger)
	storeMetrics := metrics.New(prometheus.DefaultRegisterer)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}()

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	cartRepo, err := kvcache.NewCartRepository(redisClient)
	if err != nil {
		return err
	}
	sessionRepo, err := kvcache.NewAdminSessionRepository(redisClient)
	if err != nil {
		return err
	}
	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		return err
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		return err
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: productRepo,
		Logger:     eventLogger,
		Metrics:    storeMetrics,
	})
	if err != nil {
		return err
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Catalog:    catalogService,
		Clock:      time.Now,
		Logger:     eventLogger,
		Metrics:    storeMetrics,
	})
	if err != nil {
		return err
	}

	pricingEngine := services.NewPricingEngine(cfg.Store)

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Repository: orderRepo,
		Prefix:     cfg.Store.OrderIDPrefix,
		Clock:      time.Now,
		Logger:     eventLogger,
		Metrics:    storeMetrics,
	})
	if err != nil {
		return err
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:        cartService,
		Orders:      orderService,
		Pricing:     pricingEngine,
		DefaultCity: cfg.Store.MetroCity,
		Logger:      eventLogger,
	})
	if err != nil {
		return err
	}

	authenticators, err := buildAuthenticators(ctx, cfg, logger)
	if err != nil {
		return err
	}
	authService, err := services.NewAdminAuthService(services.AdminAuthServiceDeps{
		Authenticators: authenticators,
		Sessions:       sessionRepo,
		SessionTTL:     cfg.Security.AdminSessionTTL,
		Logger:         eventLogger,
	})
	if err != nil {
		return err
	}

	health := handlers.NewHealthHandlers()
	health.AddCheck("redis", redisClient.Health)

	sessions := handlers.NewSessionManager(!cfg.Security.IsLocal())
	router := handlers.NewRouter(
		handlers.WithMiddleware(observability.RequestLogger(logger)),
		handlers.WithHealthHandlers(health),
		handlers.WithMetricsHandler(promhttp.Handler()),
		handlers.WithProductRoutes(handlers.NewCatalogHandlers(catalogService).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService, sessions).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutService, sessions).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(
			authService, orderService, catalogService, sessions,
			int(cfg.Security.AdminSessionTTL.Seconds()),
		).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr), zap.String("env", cfg.Security.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildAuthenticators assembles the admin credential chain: Firebase when
// configured, plus the fixed development pair in local environments.
func buildAuthenticators(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]services.PasswordAuthenticator, error) {
	var chain []services.PasswordAuthenticator

	if cfg.Firebase.WebAPIKey != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("initialise firebase verifier: %w", err)
		}
		firebaseAuth, err := services.NewFirebaseAuthenticator(verifier)
		if err != nil {
			return nil, err
		}
		chain = append(chain, firebaseAuth)
	}

	if cfg.Security.IsLocal() && cfg.Security.EnableDevAdminLogin {
		devAuth, err := services.NewDevAuthenticator(cfg.Security)
		if err != nil {
			return nil, err
		}
		chain = append(chain, devAuth)
		logger.Warn("development admin login is enabled")
	}

	if len(chain) == 0 {
		return nil, errors.New("no admin authenticator configured: set FIREBASE_WEB_API_KEY or enable the dev login")
	}
	return chain, nil
}
