package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// SeedSQL creates tables with a mix of PII-looking and neutral columns.
const SeedSQL = `
CREATE TABLE customers (
	id SERIAL PRIMARY KEY,
	user_email TEXT NOT NULL UNIQUE,
	phone_number TEXT,
	notes TEXT
);

CREATE TABLE orders (
	id SERIAL PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id),
	amount NUMERIC(10,2) NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE SCHEMA billing;

CREATE TABLE billing.payments (
	id SERIAL PRIMARY KEY,
	cc_number TEXT,
	billing_address TEXT,
	amount NUMERIC(10,2)
);

CREATE TABLE empty_table (
	id SERIAL PRIMARY KEY,
	data TEXT
);

INSERT INTO customers (user_email, phone_number, notes) VALUES
	('alice@example.com', '+1-555-0100', 'vip'),
	('bob@example.com', NULL, NULL);
`

const testDBEnv = "PIISPECTRE_TEST_DB_URL"

// Target describes a seeded database.
type Target struct {
	ConnString string
	Host       string
	Port       int
	Database   string
	User       string
	Password   string
}

// runPostgresContainer starts a PG container, recovering from panics if Docker is unavailable.
func runPostgresContainer(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
}

func seedDatabase(ctx context.Context, connStr string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("seed connect: %w", err)
	}
	if _, err := conn.Exec(ctx, SeedSQL); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("seed: %w", err)
	}
	return conn.Close(ctx)
}

func targetFromConnString(connStr string) (Target, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return Target{}, fmt.Errorf("parse %s: %w", testDBEnv, err)
	}
	return Target{
		ConnString: connStr,
		Host:       cfg.Host,
		Port:       int(cfg.Port),
		Database:   cfg.Database,
		User:       cfg.User,
		Password:   cfg.Password,
	}, nil
}

// Setup starts a PostgreSQL container, seeds it with test data,
// and returns its coordinates and a cleanup function.
// If PIISPECTRE_TEST_DB_URL is set, it seeds that database instead of Docker.
func Setup() (Target, func(), error) {
	ctx := context.Background()

	if connStr := os.Getenv(testDBEnv); connStr != "" {
		target, err := targetFromConnString(connStr)
		if err != nil {
			return Target{}, nil, err
		}
		if err := seedDatabase(ctx, connStr); err != nil {
			return Target{}, nil, fmt.Errorf("seed %s: %w", testDBEnv, err)
		}
		return target, func() {}, nil
	}

	container, err := runPostgresContainer(ctx)
	if err != nil {
		return Target{}, nil, fmt.Errorf("docker not available: %w", err)
	}
	cleanup := func() {
		_ = container.Terminate(ctx)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cleanup()
		return Target{}, nil, fmt.Errorf("connection string: %w", err)
	}
	if err := seedDatabase(ctx, connStr); err != nil {
		cleanup()
		return Target{}, nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		return Target{}, nil, fmt.Errorf("container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		cleanup()
		return Target{}, nil, fmt.Errorf("mapped port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		cleanup()
		return Target{}, nil, fmt.Errorf("mapped port: %w", err)
	}

	return Target{
		ConnString: connStr,
		Host:       host,
		Port:       port,
		Database:   "testdb",
		User:       "test",
		Password:   "test",
	}, cleanup, nil
}

// SetupPostgres is a test helper that starts a PostgreSQL container and seeds it.
// Skips the test if Docker is not available.
func SetupPostgres(t *testing.T) (Target, func()) {
	t.Helper()
	target, cleanup, err := Setup()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return target, cleanup
}
