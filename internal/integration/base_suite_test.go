package integration_test

import (
	"context"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metinatakli/seat-reservation-engine/internal/config"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "seat_reservation"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"

	testJWTSecret = "integration-secret"
)

// BaseSuite runs against real Postgres and Redis containers. It is skipped
// in -short mode.
type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping container tests in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	s.Require().NoError(err)
	s.dbContainer = postgresContainer

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err)
	s.cacheContainer = redisContainer

	cfg := &config.Config{Port: 3000, Env: "test"}
	cfg.DB.DSN = postgresContainer.ConnectionString
	cfg.DB.MaxOpenConns = 25
	cfg.DB.MaxIdleTime = 2 * time.Minute
	cfg.DB.LockTimeout = 5 * time.Second
	cfg.Redis.URL = redisContainer.ConnectionString
	cfg.Redis.MaxOpenConns = 10
	cfg.Redis.MaxIdleConns = 10
	cfg.Redis.MaxIdleTime = 2 * time.Minute
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Payments.MockRedirectUrl = "https://example.com/checkout.html"
	cfg.Booking.LockTTL = 5 * time.Minute

	testApp, err := newTestApp(cfg)
	s.Require().NoError(err)

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}

	if s.app != nil {
		s.app.Close()
	}

	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}

	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
