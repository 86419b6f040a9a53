package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"startup-apply/internal/config"
	"startup-apply/internal/db"
	"startup-apply/internal/email"
	apihttp "startup-apply/internal/http"
	"startup-apply/internal/repository"
	"startup-apply/internal/service"
	"startup-apply/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseConfig)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	appRepo := repository.NewPgApplicationRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		otpStore    service.OTPStore
		otpLimiter  service.OTPRateLimiter
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory otp store", zap.Error(err))
		} else {
			otpStore = service.NewRedisOTPStore(redisClient, cfg.OTPTTL)
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, cfg.OTPRateWindow, cfg.OTPRateMax)
		}
		cancel()
	}
	if otpLimiter == nil {
		otpLimiter = service.NewOTPRateLimiter(cfg.OTPRateWindow, cfg.OTPRateMax)
	}

	var objects storage.ObjectStorage
	if cfg.Minio.Endpoint != "" {
		mc, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			logger.Warn("minio init failed, uploads disabled", zap.Error(err))
		} else if err := mc.EnsureBucket(ctx); err != nil {
			logger.Warn("minio bucket unavailable, uploads disabled", zap.Error(err))
		} else {
			objects = mc
		}
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	userSvc := service.NewUserService(logger, userRepo, jwtSvc, service.UserServiceConfig{
		EmailSender: emailSender,
		OTPStore:    otpStore,
		OTPLimiter:  otpLimiter,
		OTPTTL:      cfg.OTPTTL,
		BcryptCost:  cfg.BcryptCost,

		OTPMaxAttempts: cfg.OTPAttempts,
	})
	appSvc := service.NewApplicationService(logger, appRepo, userRepo)
	mediaSvc := service.NewMediaService(logger, objects)

	router := apihttp.NewRouter(logger, apihttp.NewMetrics(), apihttp.NewAuth(logger, jwtSvc), apihttp.Handlers{
		Users:        apihttp.NewUserHandler(logger, userSvc),
		Applications: apihttp.NewApplicationHandler(logger, appSvc),
		Media:        apihttp.NewMediaHandler(logger, mediaSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
