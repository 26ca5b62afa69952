package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/practice-backend/internal/activity"
	"github.com/clinicore/practice-backend/internal/api"
	"github.com/clinicore/practice-backend/internal/booking"
	"github.com/clinicore/practice-backend/internal/config"
	"github.com/clinicore/practice-backend/internal/db"
	"github.com/clinicore/practice-backend/internal/finance"
	"github.com/clinicore/practice-backend/internal/notify"
	redisclient "github.com/clinicore/practice-backend/internal/redis"
	"github.com/clinicore/practice-backend/internal/task"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		log.Fatalf("schema migration error: %v", err)
	}
	log.Println("schema up to date")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.AmqpURL != "" {
		amqpNotifier, err := notify.NewAmqpNotifier(cfg.AmqpURL, cfg.AmqpExchange)
		if err != nil {
			log.Fatalf("amqp connection error: %v", err)
		}
		defer func() {
			if err := amqpNotifier.Close(); err != nil {
				log.Printf("error closing amqp: %v", err)
			}
		}()
		notifier = amqpNotifier
		log.Printf("connected to AMQP exchange=%s", cfg.AmqpExchange)
	} else {
		log.Println("AMQP_URL not set, booking notifications disabled")
	}

	recorder := activity.NewPgRecorder(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	bookingRepo := booking.NewPgRepository(pgPool)
	bookingSvc := booking.NewService(bookingRepo, locker, notifier, recorder)

	financeRepo := finance.NewPgRepository(pgPool)
	financeSvc := finance.NewService(financeRepo, recorder)

	taskRepo := task.NewPgRepository(pgPool)
	taskSvc := task.NewService(taskRepo, booking.NewAwarenessSource(bookingRepo), recorder)

	router := api.NewRouter(api.RouterConfig{
		Bookings:       bookingSvc,
		Finance:        financeSvc,
		Tasks:          taskSvc,
		PgPool:         pgPool,
		Redis:          rdb,
		Env:            cfg.Env,
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
