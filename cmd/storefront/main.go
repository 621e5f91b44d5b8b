package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeRez0/storefront/internal/adapter/auth"
	"github.com/MikeRez0/storefront/internal/adapter/client/notification"
	"github.com/MikeRez0/storefront/internal/adapter/config"
	"github.com/MikeRez0/storefront/internal/adapter/handler/http"
	"github.com/MikeRez0/storefront/internal/adapter/logger"
	"github.com/MikeRez0/storefront/internal/adapter/storage"
	"github.com/MikeRez0/storefront/internal/adapter/storage/cache"
	"github.com/MikeRez0/storefront/internal/adapter/storage/repository"
	"github.com/MikeRez0/storefront/internal/adapter/tracing"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/MikeRez0/storefront/internal/core/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "storefront"
const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.NewConfig()
	if err != nil {
		fmt.Printf("config error:%s", err)
		return
	}

	log, err := logger.NewLogger(conf.App)
	if err != nil {
		fmt.Printf("error creating log: %s", err)
		return
	}
	defer func() {
		err := log.Sync()
		if err != nil {
			fmt.Printf("log error: %s", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, log); err != nil {
		log.Error("storefront stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *config.Config, log *zap.Logger) error {
	shutdownTracing, err := tracing.InitTracerProvider(serviceName, conf.Tracing.JaegerEndpoint, log.Named("Tracing"))
	if err != nil {
		return fmt.Errorf("tracing error: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown error", zap.Error(err))
		}
	}()

	db, err := storage.NewDBStorage(ctx, conf.Database)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer db.Close()

	err = db.RunMigrations()
	if err != nil {
		return fmt.Errorf("database migration error: %w", err)
	}

	repo, err := repository.NewRepository(db)
	if err != nil {
		return fmt.Errorf("order repo creating error: %w", err)
	}

	var catalog port.CatalogReader
	catalog, err = repository.NewCatalog(db)
	if err != nil {
		return fmt.Errorf("catalog creating error: %w", err)
	}
	if conf.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: conf.Cache.RedisAddr})
		defer client.Close()
		catalog = cache.NewCatalogCache(client, catalog, conf.Cache.ProductTTL, log.Named("Catalog cache"))
	}

	sender, err := newSender(conf.Notify, log.Named("Notification"))
	if err != nil {
		return fmt.Errorf("notification sender creating error: %w", err)
	}
	defer func() {
		if err := sender.Close(); err != nil {
			log.Error("notification sender close error", zap.Error(err))
		}
	}()

	dispatcher, err := notification.NewDispatcher(sender, conf.Notify, log.Named("Dispatcher"))
	if err != nil {
		return fmt.Errorf("notification dispatcher creating error: %w", err)
	}
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Run(workersCtx, conf.Notify.Workers)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	amounts, err := conf.Pricing.Amounts()
	if err != nil {
		return fmt.Errorf("pricing config error: %w", err)
	}
	pricing, err := service.NewPricingEngine(catalog, service.PricingConfig{
		FreeShippingThreshold: amounts.FreeShippingThreshold,
		FlatShippingFee:       amounts.FlatShippingFee,
		Currency:              amounts.Currency,
		CatalogConcurrency:    conf.Pricing.CatalogConcurrency,
	}, log.Named("Pricing"))
	if err != nil {
		return fmt.Errorf("pricing engine creating error: %w", err)
	}
	coupons, err := service.NewCouponValidator(repo, log.Named("Coupons"))
	if err != nil {
		return fmt.Errorf("coupon validator creating error: %w", err)
	}
	checkout, err := service.NewCheckoutService(pricing, coupons, repo, dispatcher,
		conf.Pricing.OrderNumberAttempts, log.Named("Checkout"))
	if err != nil {
		return fmt.Errorf("checkout service creating error: %w", err)
	}
	orders, err := service.NewOrderService(repo, log.Named("Orders"))
	if err != nil {
		return fmt.Errorf("order service creating error: %w", err)
	}

	tokenService, err := auth.New(conf.Token.SymmetricKey, conf.Token.TTL)
	if err != nil {
		return fmt.Errorf("token service creating error: %w", err)
	}

	handler := http.NewHandler(conf.App, log.Named("Handler"))
	orderHandler, err := http.NewOrderHandler(checkout, orders, handler)
	if err != nil {
		return fmt.Errorf("order handler creating error: %w", err)
	}
	r, err := http.NewRouter(handler, tokenService, orderHandler, log.Named("Router"))
	if err != nil {
		return fmt.Errorf("router creating error: %w", err)
	}

	srv := &nethttp.Server{
		Addr:              conf.HTTP.HostString,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("router serve error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func newSender(conf *config.Notify, log *zap.Logger) (*notification.Sender, error) {
	switch conf.Broker {
	case config.BrokerAMQP:
		return notification.NewAMQPSender(conf.AMQPURL, conf.AMQPExchange, conf.AdminEmail)
	case config.BrokerKafka:
		return notification.NewKafkaSender(conf.KafkaBrokers, conf.KafkaTopic, conf.AdminEmail)
	default:
		return notification.NewLogSender(log, conf.AdminEmail), nil
	}
}
