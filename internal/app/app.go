package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/booking"
	"github.com/metinatakli/seat-reservation-engine/internal/config"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/metinatakli/seat-reservation-engine/internal/events"
	"github.com/metinatakli/seat-reservation-engine/internal/payment"
	"github.com/metinatakli/seat-reservation-engine/internal/repository"
	appvalidator "github.com/metinatakli/seat-reservation-engine/internal/validator"
	"github.com/metinatakli/seat-reservation-engine/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

const (
	apiServiceName    = "seat-reservation-api"
	workerServiceName = "seat-reservation-worker"

	webhookEventTTL = 72 * time.Hour
)

var (
	version = vcs.Version()
)

type Application struct {
	config         *config.Config
	logger         *slog.Logger
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	engine          booking.Engine
	paymentProvider domain.PaymentProvider
	deduper         eventDeduper
	jwtSecret       []byte
}

func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	validator *validator.Validate,
	sessionManager *scs.SessionManager,
	engine booking.Engine,
	paymentProvider domain.PaymentProvider,
	deduper eventDeduper) *Application {

	return &Application{
		config:          cfg,
		logger:          logger,
		validator:       validator,
		sessionManager:  sessionManager,
		engine:          engine,
		paymentProvider: paymentProvider,
		deduper:         deduper,
		jwtSecret:       []byte(cfg.Auth.JWTSecret),
	}
}

type flags struct {
	configPath string
	migrate    bool
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", os.Getenv("CONFIG_PATH"), "Path to a YAML config file")
	flag.BoolVar(&f.migrate, "migrate", false, "Apply database migrations on startup")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	return f
}

// Run starts the HTTP API and blocks until it has shut down.
func Run() error {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}

	logger, logFile := newLogger(cfg, apiServiceName)
	defer logFile.Close()

	shutdownTelemetry, err := initTelemetry(cfg, apiServiceName)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	infra, err := newInfrastructure(cfg, logger, f.migrate)
	if err != nil {
		return err
	}
	defer infra.Close()

	var deduper eventDeduper
	if infra.redis != nil {
		deduper = repository.NewRedisEventDeduper(infra.redis, webhookEventTTL)
	}

	app := NewApp(
		cfg,
		logger,
		appvalidator.NewValidator(),
		NewSessionManager(infra.redis),
		infra.engine,
		infra.paymentProvider,
		deduper,
	)

	return app.run()
}

// infrastructure holds the connections shared by the API and the worker.
type infrastructure struct {
	db              *pgxpool.Pool
	redis           *redis.Client
	publisher       domain.EventPublisher
	paymentProvider domain.PaymentProvider
	engine          *booking.Service
}

func newInfrastructure(cfg *config.Config, logger *slog.Logger, migrate bool) (*infrastructure, error) {
	infra := &infrastructure{}

	var store domain.InventoryStore

	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using the in-memory inventory store")
		store = repository.NewMemoryInventoryStore()
	} else {
		if migrate {
			err := repository.RunMigrations(cfg.DB.DSN, cfg.DB.Migrations)
			if err != nil {
				return nil, err
			}
		}

		db, err := NewDatabasePool(cfg)
		if err != nil {
			return nil, err
		}

		infra.db = db
		store = repository.NewPostgresInventoryStore(db, cfg.DB.LockTimeout)
	}

	if cfg.Redis.URL != "" {
		redisClient, err := NewRedisClient(cfg)
		if err != nil {
			infra.Close()
			return nil, err
		}

		infra.redis = redisClient
	}

	publisher, err := events.NewPublisher(events.Config{
		Driver:        cfg.Events.Driver,
		Brokers:       cfg.Events.Brokers,
		Topic:         cfg.Events.Topic,
		NatsURL:       cfg.Events.NatsURL,
		SubjectPrefix: cfg.Events.SubjectPrefix,
		AmqpURL:       cfg.Events.AmqpURL,
		Exchange:      cfg.Events.Exchange,
	}, logger)
	if err != nil {
		infra.Close()
		return nil, err
	}

	infra.publisher = publisher
	infra.paymentProvider = newPaymentProvider(cfg)

	opts := []booking.Option{
		booking.WithLockTTL(cfg.Booking.LockTTL),
		booking.WithPaymentHoldTTL(cfg.Booking.PaymentHoldTTL),
		booking.WithPaymentTimeout(cfg.Booking.PaymentTimeout),
		booking.WithMaxSeatsPerRequest(cfg.Booking.MaxSeatsPerRequest),
		booking.WithPaymentHoldOverride(domain.PaymentHoldOverride(cfg.Booking.PaymentHoldOverride)),
		booking.WithRetryAttempts(cfg.Booking.RetryAttempts),
		booking.WithPublisher(publisher),
	}

	if infra.paymentProvider != nil {
		opts = append(opts, booking.WithPaymentProvider(infra.paymentProvider))
	}

	engine, err := booking.NewService(store, logger, opts...)
	if err != nil {
		infra.Close()
		return nil, err
	}

	infra.engine = engine

	return infra, nil
}

func (i *infrastructure) Close() {
	if i.publisher != nil {
		i.publisher.Close()
	}

	if i.redis != nil {
		i.redis.Close()
	}

	if i.db != nil {
		i.db.Close()
	}
}

func newPaymentProvider(cfg *config.Config) domain.PaymentProvider {
	switch cfg.Payments.Provider {
	case "stripe":
		stripe.Key = cfg.Stripe.SecretKey
		return payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl, cfg.Stripe.WebhookSecret)
	case "mock":
		return payment.NewMockPaymentProvider(cfg.Payments.MockRedirectUrl)
	default:
		return nil
	}
}

// NewSessionManager keeps sessions in Redis when a client is given so every
// API instance resolves the same checkout session.
func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	}

	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	return sessionManager
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg *config.Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "version", version)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
