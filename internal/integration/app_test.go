package integration_test

import (
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/app"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/config"
	"github.com/metinatakli/seat-reservation-engine/internal/payment"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App    *app.Application
	Engine *booking.Service
	Store  *repository.PostgresInventoryStore
	DB     *pgxpool.Pool
	Redis  *redis.Client
}

func newTestApp(cfg *config.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := repository.NewPostgresInventoryStore(db, cfg.DB.LockTimeout)
	provider := payment.NewMockPaymentProvider(cfg.Payments.MockRedirectUrl)

	engine, err := booking.NewService(store, logger,
		booking.WithLockTTL(cfg.Booking.LockTTL),
		booking.WithPaymentProvider(provider),
	)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, err
	}

	application := app.NewApp(
		cfg,
		logger,
		appvalidator.NewValidator(),
		app.NewSessionManager(redisClient),
		engine,
		provider,
		repository.NewRedisEventDeduper(redisClient, time.Hour),
	)

	return &TestApp{
		App:    application,
		Engine: engine,
		Store:  store,
		DB:     db,
		Redis:  redisClient,
	}, nil
}

func (a *TestApp) Close() {
	a.Redis.Close()
	a.DB.Close()
}
