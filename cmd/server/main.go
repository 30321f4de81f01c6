package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinereserve/booking-engine/internal/config"
	"github.com/cinereserve/booking-engine/internal/database"
	"github.com/cinereserve/booking-engine/internal/handler"
	"github.com/cinereserve/booking-engine/internal/lock"
	"github.com/cinereserve/booking-engine/internal/middleware"
	"github.com/cinereserve/booking-engine/internal/queue"
	"github.com/cinereserve/booking-engine/internal/repository"
	"github.com/cinereserve/booking-engine/internal/router"
	"github.com/cinereserve/booking-engine/internal/service"
)

func main() {
	// A missing .env is fine in environments that inject variables
	// directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	scheduleRepo := repository.NewScheduleRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	confirmStore := repository.NewConfirmationStore(db, scheduleRepo, bookingRepo, paymentRepo)
	locker := lock.NewManager(rdb)

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
	} else {
		log.Println("AMQP_URL not set; event publishing disabled")
	}

	reservations := service.NewReservationService(scheduleRepo, bookingRepo, locker, service.ReservationConfig{
		LockTTL:      cfg.LockTTL,
		CutoffWindow: cfg.CutoffWindow,
	})
	confirmations := service.NewConfirmationService(confirmStore, locker, rdb, events, service.ConfirmationConfig{
		AmountTolerance: cfg.AmountTolerance,
		MarkerTTL:       cfg.ConfirmMarkerTTL,
	})
	reconciler := service.NewReconciler(bookingRepo, locker, events, cfg.LockTTL)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("create scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.ReconcilerInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := reconciler.Sweep(ctx); err != nil {
				log.Printf("reconciler sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Fatalf("schedule reconciler: %v", err)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()

	e := echo.New()
	e.HideBanner = true

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	bookingHandler := handler.NewBookingHandler(reservations, confirmations, bookingRepo)
	availabilityHandler := handler.NewAvailabilityHandler(scheduleRepo, locker)
	webhookHandler := handler.NewWebhookHandler(cfg.WebhookSecret, bookingRepo, confirmations)

	router.RegisterRoutes(e, availabilityHandler, webhookHandler)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
