// Package gymflow собирает приложение: хранилище, миграции, кеш, брокер,
// сервисы и HTTP-сервер с graceful shutdown.
package gymflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/kenshar/gymflow/internal/cache"
	"github.com/kenshar/gymflow/internal/config"
	"github.com/kenshar/gymflow/internal/lib/jwt"
	"github.com/kenshar/gymflow/internal/lib/rabbitmq"
	"github.com/kenshar/gymflow/internal/migrations"
	"github.com/kenshar/gymflow/internal/paymentgateway"
	attendanceservice "github.com/kenshar/gymflow/internal/services/attendance"
	authservice "github.com/kenshar/gymflow/internal/services/auth"
	membershipservice "github.com/kenshar/gymflow/internal/services/membership"
	paymentservice "github.com/kenshar/gymflow/internal/services/payment"
	workoutservice "github.com/kenshar/gymflow/internal/services/workout"
	"github.com/kenshar/gymflow/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и внешние подключения приложения.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	rabbitConn *amqp.Connection
	rabbitCh   *amqp.Channel
}

// New инициализирует приложение: подключается к Postgres, прогоняет миграции,
// поднимает Redis и RabbitMQ, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, rabbitCh, err := rabbitmq.Connect(cfg.RabbitURL)
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewEventPublisher(rabbitCh)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	gatewayClient := paymentgateway.NewClient(cfg.PaymentGateway.APIKey)

	authService := authservice.New(db, jwtMaker, cfg.Lockout, logger)
	membershipService := membershipservice.New(db, cacheRedis, logger)
	paymentService := paymentservice.New(db, gatewayClient, publisher, membershipService,
		cfg.PaymentGateway, cfg.Receipts.NumberPrefix, logger)
	attendanceService := attendanceservice.New(db, membershipService, logger)
	workoutService := workoutservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg,
		authService, membershipService, paymentService, attendanceService, workoutService, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
		rabbitCh:   rabbitCh,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста
// или ошибки сервера. При отмене выполняет graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.rabbitCh.Close()
		_ = a.rabbitConn.Close()
		_ = a.db.DB.Close()
		return err
	}
}
