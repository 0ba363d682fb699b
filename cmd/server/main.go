package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/marineworld/booking/internal/cache"
	"github.com/marineworld/booking/internal/config"
	"github.com/marineworld/booking/internal/database"
	"github.com/marineworld/booking/internal/handler"
	"github.com/marineworld/booking/internal/payment"
	"github.com/marineworld/booking/internal/pricing"
	"github.com/marineworld/booking/internal/queue"
	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/router"
	"github.com/marineworld/booking/internal/scheduler"
	"github.com/marineworld/booking/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := database.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	availabilityRepo := repository.NewAvailabilityRepo(db)
	activityRepo := repository.NewActivityRepo(db)
	bookingRepo := repository.NewBookingRepo(db, activityRepo)
	promoRepo := repository.NewPromoRepo(db)
	offerRepo := repository.NewOfferRepo(db)
	locationRepo := repository.NewLocationRepo(db)
	addonRepo := repository.NewAddonRepo(db)
	settingsRepo := repository.NewSettingsRepo(db)
	userRepo := repository.NewUserRepo(db)

	settings, err := settingsRepo.Load(context.Background())
	if err != nil {
		log.Printf("settings: %v, using defaults", err)
		settings = pricing.DefaultSettings()
	}
	engine := pricing.NewEngine(settings)

	var bridge payment.Bridge
	if cfg.PaymentSandbox {
		bridge = payment.NewSandbox(cfg.PaymentSecret)
	} else {
		bridge = payment.NewGateway(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentSecret)
	}

	var publisher *queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL)
	}

	availCache := cache.NewAvailabilityCache(rdb, cfg.CacheTTL)

	var events interface {
		Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error
	}
	if publisher != nil {
		events = publisher
	}
	manager := service.NewBookingManager(
		availabilityRepo, bookingRepo, promoRepo, offerRepo, addonRepo,
		locationRepo, settingsRepo, engine, bridge, events, availCache,
		service.Options{RefundReleasesSlots: cfg.RefundReleasesSlots},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.SeedAvailability(ctx); err != nil {
		log.Printf("seed availability: %v", err)
	}

	sched, err := scheduler.New(manager, cfg.ExpireSweepSchedule, cfg.SeedSchedule)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if cfg.AMQPURL != "" {
		mailer := queue.Mailer{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort,
			User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.SMTPFrom,
		}
		go queue.NewConsumer(cfg.AMQPURL, mailer, cfg.ActivityFilePath).Run(ctx)
	}

	e := router.New(router.Handlers{
		Health:       handler.NewHealthHandler(db),
		Auth:         handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTTTL),
		Availability: handler.NewAvailabilityHandler(manager),
		Booking:      handler.NewBookingHandler(manager, locationRepo, addonRepo, offerRepo),
		Payment:      handler.NewPaymentHandler(manager),
		Admin:        handler.NewAdminHandler(manager, locationRepo, addonRepo, promoRepo, offerRepo, activityRepo),
	}, router.Options{
		JWTSecret:         cfg.JWTSecret,
		Redis:             rdb,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	go func() {
		<-ctx.Done()
		if err := e.Shutdown(context.Background()); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := e.Start(cfg.HTTPAddr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
