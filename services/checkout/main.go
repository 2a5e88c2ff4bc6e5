package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"

	"github.com/appetiteclub/chatorder/pkg"
	"github.com/appetiteclub/chatorder/services/checkout/internal/checkout"
	"github.com/appetiteclub/chatorder/services/checkout/internal/clipboard"
	"github.com/appetiteclub/chatorder/services/checkout/internal/handoff"
	"github.com/appetiteclub/chatorder/services/checkout/internal/health"
	"github.com/appetiteclub/chatorder/services/checkout/internal/mongo"
	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
	"github.com/appetiteclub/chatorder/services/checkout/internal/transcript"
)

const (
	appNamespace = "CHECKOUT"
	appName      = "checkout"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	orderStore := mongo.NewOrderStore(db, baseRepo.TransactionsEnabled(), logger)
	if err := orderStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create indexes: %v", appName, appVersion, err)
	}
	if !baseRepo.TransactionsEnabled() {
		logger.Info("MongoDB transactions disabled, orders are written with compensating deletes")
	}

	menuRepo := mongo.NewMenuRepo(db)
	paymentRepo := mongo.NewPaymentMethodRepo(db)

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	sub, err := pkg.NewNATSSubscriber(natsURL, appName+"-sub", logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	var (
		publisher events.Publisher
		stream    events.StreamConsumer
		closers   []func() error
	)

	if config.GetStringOrDef("events.stream.enabled", "false") == "true" {
		js, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:          natsURL,
			StreamName:   config.GetStringOrDef("events.stream.name", "ORDER_EVENTS"),
			Topic:        pkg.OrdersTopic,
			ConsumerName: appName + "-activity",
			MaxAge:       durationOrDef(config, "events.stream.max_age", 24*time.Hour),
			MaxMsgs:      int64(intOrDef(config, "events.stream.max_msgs", 10000)),
		})
		if err != nil {
			log.Fatalf("%s(%s) cannot set up JetStream: %v", appName, appVersion, err)
		}
		publisher, stream = js, js
		closers = append(closers, js.Close)
		logger.Info("Order events are retained in JetStream")
	} else {
		pub, err := pkg.NewNATSPublisher(natsURL, appName+"-pub")
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		publisher = pub
		closers = append(closers, pub.Close)
	}
	closers = append(closers, sub.Close)

	orderEvents := order.NewEventPublisher(publisher, logger)
	activity := order.NewActivityFeed(stream, orderStore, sub, intOrDef(config, "activity.size", 50), logger)

	sessions := checkout.NewManager(checkout.Deps{
		Store:     orderStore,
		Events:    orderEvents,
		Payments:  paymentRepo,
		Handoff:   handoff.NewStrategy(handoff.ConfigFrom(config), logger),
		Clipboard: clipboard.NewDefaultChain(logger),
		Transcript: transcript.Options{
			StoreName:      config.GetStringOrDef("transcript.store_name", transcript.DefaultStoreName),
			CurrencySymbol: config.GetStringOrDef("transcript.currency_symbol", transcript.DefaultCurrencySymbol),
		},
		PersistTimeout: durationOrDef(config, "checkout.persist.timeout", checkout.DefaultPersistTimeout),
		Logger:         logger,
	}, durationOrDef(config, "checkout.session.ttl", checkout.DefaultSessionTTL))

	checkoutDeps := checkout.HandlerDeps{
		Sessions: sessions,
		Catalog:  menuRepo,
		Payments: paymentRepo,
	}
	checkoutHandler := checkout.NewHandler(checkoutDeps, config, logger)
	catalogHandler := checkout.NewCatalogHandler(checkoutDeps, config, logger)

	orderHandler := order.NewHandler(order.HandlerDeps{
		Store:    orderStore,
		Events:   orderEvents,
		Activity: activity,
	}, config, logger)

	healthServer := health.NewServer("chatorder."+appName, map[string]health.Checker{
		"mongo": baseRepo.Ping,
	}, durationOrDef(config, "health.interval", health.DefaultInterval), logger)

	natsLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			var errs []error
			for _, closeFn := range closers {
				errs = append(errs, closeFn())
			}
			return errors.Join(errs...)
		},
	}

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		activity,
		healthServer,
		natsLifecycle,
	}

	demoEnabled, _ := config.GetString("seeding.demo")
	if demoEnabled == "true" {
		logger.Info("Demo seeding enabled for checkout service")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: mongo.SeedingFunc(appName, baseRepo.GetDatabase, logger),
		})
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", checkoutHandler, catalogHandler, orderHandler),
		apt.WithGRPCServerModules("grpc.port", healthServer),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

func durationOrDef(config *apt.Config, key string, def time.Duration) time.Duration {
	v, ok := config.GetString(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOrDef(config *apt.Config, key string, def int) int {
	v, ok := config.GetString(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
