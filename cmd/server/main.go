package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-admin/internal/client"
	"hospital-admin/internal/config"
	"hospital-admin/internal/handler"
	"hospital-admin/internal/hashing"
	"hospital-admin/internal/notify"
	"hospital-admin/internal/ratelimit"
	"hospital-admin/internal/repository/postgres"
	"hospital-admin/internal/service"
	"hospital-admin/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		util.Init("development", "info")
		util.Fatal("Failed to load configuration", util.ErrorField(err))
	}
	util.Init(cfg.Environment, cfg.LogLevel)
	defer util.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		util.Fatal("Failed to connect to postgres", util.ErrorField(err))
	}
	defer postgres.Close(db)
	store := postgres.NewStore(db)

	hasher := hashing.NewHasher(cfg.OTP.BcryptCost)

	if cfg.Database.SeedAdminUsers {
		if err := postgres.SeedAdminUsers(ctx, store, hasher); err != nil {
			util.Fatal("Failed to seed admin users", util.ErrorField(err))
		}
	}

	// Rate limiter: Redis when configured, in-process otherwise.
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb, err := client.NewRedisClient(cfg.Redis)
		if err != nil {
			util.Fatal("Failed to connect to redis", util.ErrorField(err))
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb)
	} else {
		mem := ratelimit.NewMemoryLimiter()
		mem.StartPruning(5 * time.Minute)
		defer mem.Close()
		limiter = mem
	}

	// Optional audit stream
	var producer *client.AuditProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = client.NewAuditProducer(cfg.Kafka, util.Get())
		defer producer.Close()
	}

	// Services
	audit := service.NewRecorder(store, producer)
	sessions := service.NewSessionService(store, audit)
	sender := notify.NewEmailSender(cfg.Notify)
	auth := service.NewAuthService(store, hasher, limiter, sender, sessions, audit, cfg.Auth, cfg.OTP)
	cleanup := service.NewCleanupService(store, cfg.Cleanup)

	if cfg.Cleanup.RunInProcess {
		cleanup.StartTicker(ctx)
	}

	// HTTP server
	authHandler := handler.NewAuthHandler(auth, sessions, cleanup, cfg.Auth, cfg.Server.CronSecret, util.Get())
	router := handler.NewRouter(authHandler, store, util.Get())

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		var err error
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			util.Fatal("Server failed to start", util.ErrorField(err))
		}
	}()

	util.Info("Server started successfully",
		util.String("environment", cfg.Environment),
		util.String("address", server.Addr),
		util.Bool("tls_enabled", cfg.Server.CertFile != ""),
	)

	waitForShutdown(server, cancel)
}

func waitForShutdown(server *http.Server, cancel context.CancelFunc) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("Received shutdown signal", util.String("signal", sig.String()))
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	if err := server.Shutdown(ctx); err != nil {
		util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
	} else {
		util.Info("Server shutdown completed")
	}
}
