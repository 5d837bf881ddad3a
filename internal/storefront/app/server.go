package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"storefront_api/config"
	"storefront_api/internal/payments"
	"storefront_api/internal/storefront/app/web"
	"storefront_api/internal/storefront/app/web/handlers"
	"storefront_api/internal/storefront/internal/business"
	"storefront_api/internal/storefront/internal/events"
	"storefront_api/internal/storefront/internal/storage"
	"storefront_api/pkg/dbconnect"
	"storefront_api/pkg/dbconnect/migration"
	"storefront_api/pkg/logger"
)

const kafkaConnectAttempts = 5

type publisher interface {
	business.EventPublisher
	Close() error
}

type StorefrontServer struct {
	dbconnect.Database
	config *config.AppConfig
	log    *logger.BaseLogger
}

func NewStorefrontServer(db dbconnect.Database, cfg *config.AppConfig, log *logger.BaseLogger) *StorefrontServer {
	return &StorefrontServer{Database: db, config: cfg, log: log}
}

func (s *StorefrontServer) Migrate() error {
	db, err := s.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := migration.Apply(db, storage.Migrations()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	s.log.Log("storefront migrations applied")
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *StorefrontServer) Run(ctx context.Context) error {
	cfg := s.config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := s.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(); err != nil {
		return err
	}

	products := storage.NewProductRepository(db)
	orders := storage.NewOrderRepository(db)

	stripeClient := payments.NewStripeClient(
		cfg.Stripe.APIURL,
		payments.NewBearerAuth(cfg.Stripe.SecretKey),
		cfg.Stripe.Timeout,
		rate.NewLimiter(rate.Limit(cfg.Stripe.RequestsPerSecond), cfg.Stripe.Burst),
		s.log.WithPrefix("[stripe]"),
	)
	verifier := payments.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.SignatureTolerance)

	pub := s.newPublisher()
	defer pub.Close()

	fulfillmentLog := s.log.WithPrefix("[fulfillment]")
	reconciler := business.NewInventoryReconciler(products, business.ReconcilerOptions{
		MaxAttempts:  cfg.Fulfillment.MaxStockAttempts,
		Backoff:      cfg.Fulfillment.StockRetryBackoff,
		StoreTimeout: cfg.Fulfillment.StoreTimeout,
	}, fulfillmentLog)
	ledger := business.NewOrderLedger(orders, cfg.Fulfillment.StoreTimeout, fulfillmentLog)
	fulfillment := business.NewFulfillmentService(reconciler, ledger, pub, cfg.Fulfillment.StoreTimeout, fulfillmentLog)
	dispatcher := business.NewEventDispatcher(fulfillment, cfg.Checkout.Currency, fulfillmentLog)

	checkoutLog := s.log.WithPrefix("[checkout]")
	checkout := business.NewCheckoutService(stripeClient, products, business.CheckoutOptions{
		Currency:         cfg.Checkout.Currency,
		BaseURL:          cfg.Checkout.BaseURL,
		AllowedCountries: cfg.Checkout.AllowedCountries,
		CollectPhone:     cfg.Checkout.CollectPhone,
	}, checkoutLog)

	catalogLog := s.log.WithPrefix("[catalog]")
	catalog := business.NewCatalogService(products, cfg.Fulfillment.StoreTimeout, catalogLog)

	httpLog := s.log.WithPrefix("[http]")
	router := web.NewRouter(web.Handlers{
		Checkout: handlers.NewCheckoutHandler(checkout, checkoutLog),
		Webhook:  handlers.NewWebhookHandler(verifier, dispatcher, cfg.Server.MaxWebhookBytes, fulfillmentLog),
		Product:  handlers.NewProductHandler(catalog, catalogLog),
		Admin:    handlers.NewAdminHandler(catalog, catalogLog),
		Health:   handlers.NewHealthHandler(db, cfg.Fulfillment.StoreTimeout, httpLog),
	}, cfg.Auth.JWTSecret, httpLog)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Log("storefront listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Log("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func (s *StorefrontServer) newPublisher() publisher {
	if len(s.config.Kafka.Brokers) == 0 {
		s.log.Log("kafka brokers not configured, order events are not published")
		return events.NoopPublisher{}
	}
	pub, err := events.NewKafkaPublisher(s.config.Kafka.Brokers, s.config.Kafka.Topic, kafkaConnectAttempts, s.log.WithPrefix("[kafka]"))
	if err != nil {
		// orders still get written without the event stream
		s.log.Error("%v, continuing without order events", err)
		return events.NoopPublisher{}
	}
	return pub
}

var (
	_ business.CatalogStore = (*storage.ProductRepository)(nil)
	_ business.OrderStore   = (*storage.OrderRepository)(nil)
	_ publisher             = (*events.KafkaPublisher)(nil)
)
