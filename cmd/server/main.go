package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kiarashv/movie-ticketing/internal/booking"
	"github.com/kiarashv/movie-ticketing/internal/config"
	"github.com/kiarashv/movie-ticketing/internal/database"
	"github.com/kiarashv/movie-ticketing/internal/handler"
	"github.com/kiarashv/movie-ticketing/internal/middleware"
	"github.com/kiarashv/movie-ticketing/internal/queue"
	"github.com/kiarashv/movie-ticketing/internal/repository"
	"github.com/kiarashv/movie-ticketing/internal/router"
	"github.com/kiarashv/movie-ticketing/internal/service"
	"github.com/kiarashv/movie-ticketing/internal/store/memory"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		inv     booking.SeatInventory
		ledger  booking.ReservationLedger
		catalog booking.ScreeningCatalog
	)
	if cfg.UseDatabase() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		inv = repository.NewSeatInventory(db)
		ledger = repository.NewReservationLedger(db)
		catalog = repository.NewScreeningRepo(db)
		log.Printf("using MySQL stores at %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	} else {
		inv = memory.NewInventory()
		ledger = memory.NewLedger()
		catalog = memory.NewCatalog()
		log.Println("DB_HOST not set; using in-memory stores")
	}

	gateway := booking.StaticGateway{Decline: cfg.GatewayMode == "decline"}
	opts := []booking.Option{booking.WithHoldWindow(cfg.HoldWindow)}

	brokerConfigured := os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != ""
	if brokerConfigured {
		opts = append(opts, booking.WithNotifier(service.NewAMQPNotifier("")))
	}

	coord := booking.NewCoordinator(inv, ledger, catalog, gateway, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper, err := booking.NewSweeper(coord, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer func() { _ = sweeper.Stop() }()

	if brokerConfigured {
		go func() {
			if err := queue.StartTicketConsumer(); err != nil {
				log.Printf("ticket-consumer: %v", err)
			}
		}()
	}

	// Redis is optional; without it the cache and rate limiter are no-ops.
	var cacheMW, limiterMW echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		limiterMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterCore(e)
	router.RegisterBrowse(e, handler.NewBrowseHandler(catalog, inv), cacheMW)
	router.RegisterBooking(e, handler.NewBookingHandler(coord, ledger), cfg.JWTSecret, limiterMW)
	router.RegisterAdmin(e, handler.NewAdminHandler(coord, ledger), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, hold window %s)", addr, cfg.Env, cfg.HoldWindow)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
