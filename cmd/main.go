package main

import (
	"context"
	"errors"
	"fmt"
	"log" // Using standard log for early errors before zap is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/moms/internal/bootstrap"
	"github.com/fathima-sithara/moms/internal/cache"
	"github.com/fathima-sithara/moms/internal/config"
	"github.com/fathima-sithara/moms/internal/database"
	"github.com/fathima-sithara/moms/internal/events"
	"github.com/fathima-sithara/moms/internal/handlers"
	"github.com/fathima-sithara/moms/internal/kafka"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/notifier"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/routes"
	"github.com/fathima-sithara/moms/internal/server"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/storage"
	"github.com/fathima-sithara/moms/internal/twilio"
	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/fathima-sithara/moms/internal/ws"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	consumerWorkers = 4
	smsMaxFailures  = 5
	smsOpenTimeout  = 30 * time.Second
	sessionWrites   = 30
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables:", err)
	}

	cfgPath := os.Getenv("MOMS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.App.Env)
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()
	sugar.Infof("Starting moms in %s environment on port %d", cfg.App.Env, cfg.App.Port)
	metrics.Init()

	db, mongoClient, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	creds := repository.NewMongoCredentialRepo(db)
	users := repository.NewMongoUserRepo(db)
	houses := repository.NewMongoHouseRepo(db)
	agencies := repository.NewMongoAgencyRepo(db)
	catalog := repository.NewMongoCatalogRepo(db)
	menus := repository.NewMongoMenuRepo(db)
	orders := repository.NewMongoOrderRepo(db)
	requests := repository.NewMongoRequestRepo(db)
	bills := repository.NewMongoBillRepo(db)
	payments := repository.NewMongoPaymentRepo(db)
	chat := repository.NewMongoChatRepo(db)
	notes := repository.NewMongoNotificationRepo(db)

	// Sessions and realtime
	feed := cache.NewProfileFeed(rdb, logger)
	sessions := session.NewManager(feed, logger, session.WithSignOutBus(cache.NewSignOutBus(rdb, logger)))
	hub := ws.NewHub(logger)
	fanout := ws.NewFanout(rdb, hub, logger)

	// Notifications
	tw := twilio.Disabled()
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.From != "" {
		tw = twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
		sugar.Info("Twilio client configured.")
	} else {
		sugar.Warn("Twilio client not fully configured. SMS functionality will be skipped.")
	}
	sms := notifier.NewSMSNotifier(tw, smsMaxFailures, smsOpenTimeout, logger)

	var (
		producer, dlqProducer *kafka.Producer
		consumer              *kafka.Consumer
		local                 *events.LocalPublisher
		publisher             events.Publisher
		dlq                   notifier.DeadLetter
	)
	if cfg.Kafka.Enabled && cfg.Kafka.DLQTopic != "" {
		dlqProducer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DLQTopic)
		dlq = dlqProducer
	}
	noteHandler := notifier.NewHandler(users, notes, sms, fanout, dlq, cfg.Kafka.MaxRetries,
		time.Duration(cfg.Kafka.RetryBackoffMs)*time.Millisecond, logger)
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, noteHandler, consumerWorkers, logger)
		publisher = events.NewKafkaPublisher(producer)
		sugar.Infow("Kafka enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		local = events.NewLocalPublisher(noteHandler, logger)
		publisher = local
		sugar.Warn("Kafka disabled. Events are handled in-process.")
	}

	// Media
	var blobs storage.BlobStore
	if cfg.AWS.Bucket != "" {
		s3, err := storage.NewS3Store(ctx, cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.PublicRead)
		if err != nil {
			sugar.Fatalf("failed to init S3 store: %v", err)
		}
		blobs = s3
	} else {
		sugar.Warn("No S3 bucket configured. Uploads are kept in memory.")
		blobs = storage.NewMemoryStore(false)
	}

	// Services
	loc := cfg.Location
	clock := services.SystemClock
	accounts := services.NewAccounts(creds, users, feed, cfg.App.CredentialDomain, cfg.Security.PasswordHashCost, cfg.Security.MinPasswordLength, clock, logger)
	jwtMgr := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTTL, cfg.RefreshTTL)
	carts := cache.NewCartStore(rdb, cfg.RefreshTTL)
	authSvc := services.NewAuthService(accounts, users, houses, agencies, sessions, cache.NewTokenStore(rdb),
		cache.NewLoginAttempts(rdb, cfg.Security.LoginMaxAttempts, cfg.LoginLockout), carts, jwtMgr, logger)
	agencySvc := services.NewAgencyService(accounts, agencies, houses, users, logger)
	houseSvc := services.NewHouseService(accounts, houses, users, logger)
	menuSvc := services.NewMenuService(catalog, menus, agencies, clock, loc, logger)
	orderSvc := services.NewOrderService(orders, houses, menuSvc, publisher, logger)
	cartSvc := services.NewCartService(carts, menuSvc, orderSvc, logger)
	requestSvc := services.NewRequestService(requests, catalog, orderSvc, logger)
	billingSvc := services.NewBillingService(bills, payments, orders, houses, clock, loc, cfg.Billing.DueDays, publisher, logger)
	chatSvc := services.NewChatService(chat, houses, orders, bills, fanout, clock, logger)
	mediaSvc := services.NewMediaService(blobs, houses, cfg.S3.MaxUploadBytes, cfg.PresignTTL, clock, logger)
	noteSvc := services.NewNotificationService(notes, authSvc)
	dashSvc := services.NewDashboardService(agencySvc, menuSvc, houses, users, orders, requests, bills, payments, clock, logger)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 30*time.Second)
	if err := bootstrap.NewSeeder(accounts, users, agencies, houses, clock, logger).Run(seedCtx, cfg.Bootstrap.SeedFile); err != nil {
		sugar.Fatalf("bootstrap failed: %v", err)
	}
	cancelSeed()

	// HTTP
	ipLimiter := middleware.NewIPLimiter(cfg.Security.IPRequestsPerMinute)
	writes := middleware.NewRateLimiter(rdb, "rl:writes", sessionWrites, time.Minute, logger)
	app := server.New(cfg, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authSvc),
		Menu:    handlers.NewMenuHandler(menuSvc),
		Cart:    handlers.NewCartHandler(cartSvc),
		Orders:  handlers.NewOrderHandler(orderSvc, requestSvc),
		Billing: handlers.NewBillingHandler(billingSvc),
		Agency:  handlers.NewAgencyHandler(agencySvc, houseSvc),
		Chat:    handlers.NewChatHandler(chatSvc),
		Media:   handlers.NewMediaHandler(mediaSvc, cfg.S3.MaxUploadBytes),
		Account: handlers.NewAccountHandler(noteSvc, dashSvc),
		WS:      ws.NewHandler(hub, chatSvc, cfg.Security.WSMessagesPerSecond, logger),
	}, routes.Guards{
		Session: middleware.Auth(jwtMgr, authSvc, logger),
		SignIn:  ipLimiter.Middleware(),
		Writes:  writes.MiddlewareByKey(middleware.BySession),
	}, logger)

	// Background workers stop with ctx.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ipLimiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		// idle sessions come back through Resume on their next request
		if err := sessions.Run(gctx, cfg.AccessTTL); err != nil {
			return fmt.Errorf("session manager: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := fanout.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("ws fanout: %w", err)
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		sugar.Infof("Server listening on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("Shutting down server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutCtx); err != nil {
			sugar.Errorf("Fiber app shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorf("Server stopped: %v", err)
	}

	sessions.Shutdown()
	if local != nil {
		local.Wait()
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			sugar.Errorf("Kafka consumer close error: %v", err)
		}
	}
	for _, p := range []*kafka.Producer{producer, dlqProducer} {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			sugar.Errorf("Kafka producer close error: %v", err)
		}
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelClose()
	if err := mongoClient.Disconnect(closeCtx); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		sugar.Errorf("Redis client close error: %v", err)
	}

	sugar.Info("Graceful shutdown complete. Goodbye!")
}
