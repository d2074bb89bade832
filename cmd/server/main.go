package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-cafe-reservation/internal/config"
	"github.com/iliyamo/study-cafe-reservation/internal/database"
	"github.com/iliyamo/study-cafe-reservation/internal/handler"
	"github.com/iliyamo/study-cafe-reservation/internal/lock"
	"github.com/iliyamo/study-cafe-reservation/internal/lockstore"
	"github.com/iliyamo/study-cafe-reservation/internal/queue"
	"github.com/iliyamo/study-cafe-reservation/internal/repository"
	"github.com/iliyamo/study-cafe-reservation/internal/router"
	"github.com/iliyamo/study-cafe-reservation/internal/scheduler"
	"github.com/iliyamo/study-cafe-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := database.EnsureSchema(bootCtx, db); err != nil {
		log.Fatalf("database: schema: %v", err)
	}
	if err := database.EnsureSeats(bootCtx, db, cfg.SeatCount); err != nil {
		log.Fatalf("database: seats: %v", err)
	}

	// A nil Redis client is tolerated: the lock store then rejects all
	// claims, degrading seat locking without taking the service down.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unreachable at startup, seat locking degraded")
	}
	store := lockstore.New(rdb)
	seatLock := lock.NewSeatLock(store)

	userRepo := repository.NewUserRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	reservationRepo := repository.NewReservationRepo(db)

	publisher := queue.NewPublisher()
	reservations := service.NewReservationService(seatLock, userRepo, seatRepo, reservationRepo, publisher)

	// Auto-checkout sweep, guarded across instances by the lock store.
	sweeper := scheduler.NewSweeper(reservationRepo, store, time.Duration(cfg.SweepSeconds)*time.Second)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Start(sweepCtx)

	// Background consumer writing reservation events to logs/.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation-consumer: %v", err)
		}
	}()

	e := echo.New()
	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)
	reservationHandler := handler.NewReservationHandler(reservations)
	router.RegisterRoutes(e, reservationHandler)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterReservations(e, reservationHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
