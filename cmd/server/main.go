package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/storefront/api/handler"
	"github.com/fastygo/storefront/internal/config"
	"github.com/fastygo/storefront/internal/infrastructure/buffer"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/internal/infrastructure/monitor"
	"github.com/fastygo/storefront/internal/infrastructure/notify"
	redisInfra "github.com/fastygo/storefront/internal/infrastructure/redis"
	"github.com/fastygo/storefront/internal/middleware"
	"github.com/fastygo/storefront/internal/router"
	"github.com/fastygo/storefront/internal/services"
	"github.com/fastygo/storefront/internal/services/lifecycle"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/pkg/logger"
	"github.com/fastygo/storefront/repository/docrepo"
	"github.com/fastygo/storefront/usecase"
	collectionUC "github.com/fastygo/storefront/usecase/collection"
	"github.com/fastygo/storefront/usecase/fulfillment"
	"github.com/fastygo/storefront/usecase/keypool"
	orderUC "github.com/fastygo/storefront/usecase/order"
	productUC "github.com/fastygo/storefront/usecase/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx := manager.WaitForSignal(context.Background())

	store, err := docstore.Open(docstore.Options{
		Dir:      cfg.Store.DataDir,
		FileMode: cfg.Store.FileMode,
		Fsync:    cfg.Store.Fsync,
		Logger:   zapLogger.Named("docstore"),
	})
	if err != nil {
		zapLogger.Fatal("failed to open data directory", zap.Error(err))
	}

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	var dedup fulfillment.PaymentDeduper
	if redisClient != nil {
		dedup = redisInfra.NewPaymentDedup(redisClient, cfg.Redis.DedupTTL)
		manager.RegisterCloser("redis", redisClient)
	}

	outbox, err := buffer.Open(cfg.Buffer.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open outbox", zap.Error(err))
	}
	manager.RegisterCloser("outbox", outbox)

	var (
		driver      usecase.Notifier
		driverProbe monitor.Pinger
	)
	switch cfg.Notify.Driver {
	case "amqp":
		amqpNotifier, err := notify.NewAMQP(notify.AMQPConfig{
			URL:        cfg.Notify.AMQPURL,
			Exchange:   cfg.Notify.Exchange,
			RoutingKey: cfg.Notify.RoutingKey,
		}, zapLogger.Named("amqp"))
		if err != nil {
			zapLogger.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		manager.RegisterCloser("amqp", amqpNotifier)
		driver, driverProbe = amqpNotifier, amqpNotifier
	default:
		driver = notify.NewLog(zapLogger.Named("delivery"))
	}

	mon := monitor.New(store, outbox, driverProbe, redisClient, cfg.Context.MonitorInterval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	processor := services.NewNotificationProcessor(
		outbox,
		driver,
		mon,
		zapLogger,
		services.ProcessorConfig{
			Interval:      cfg.Buffer.SyncInterval,
			BatchSize:     cfg.Buffer.BatchSize,
			MaxRetries:    cfg.Buffer.MaxRetry,
			DeadRetention: cfg.Buffer.DeadRetention,
		},
	)
	processor.Start()
	manager.Register("notification_processor", func(ctx context.Context) error {
		processor.Stop(ctx)
		return nil
	})

	productRepo := docrepo.NewProductRepository(store)
	orderRepo := docrepo.NewOrderRepository(store)
	documentRepo := docrepo.NewDocumentRepository(store)

	keyManager := keypool.New(productRepo, zapLogger.Named("keypool"))
	engine := fulfillment.New(
		orderRepo,
		keyManager,
		services.NewNotificationBridge(processor),
		dedup,
		zapLogger.Named("fulfillment"),
	)

	productUseCase := productUC.New(productRepo, zapLogger)
	orderUseCase := orderUC.New(orderRepo, productRepo, zapLogger)
	collectionUseCase := collectionUC.New(documentRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Product:    apiHandler.NewProductHandler(productUseCase, keyManager, ctxAdapter, zapLogger),
		Order:      apiHandler.NewOrderHandler(orderUseCase, engine, ctxAdapter, zapLogger),
		Webhook:    apiHandler.NewWebhookHandler(engine, middleware.NewPaymentSignature(cfg.Webhook.Secret), ctxAdapter, zapLogger),
		Collection: apiHandler.NewCollectionHandler(collectionUseCase, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	adminMiddleware := middleware.RequireRole(cfg.JWT.AdminRole)
	r := router.New(handlers, authMiddleware, adminMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("data_dir", store.Dir()),
			zap.String("notify_driver", cfg.Notify.Driver),
			zap.Bool("payment_dedup", dedup != nil))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
