package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/warranty-manager/internal/database"
)

var (
	mysqlOnce sync.Once
	mysqlDSN  string
	mysqlErr  error

	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// MySQL returns a connection to a migrated MySQL started once per test
// binary. It skips under -short or when no container runtime is available.
func MySQL(t *testing.T) *sql.DB {
	t.Helper()
	skipWithoutDocker(t)

	mysqlOnce.Do(func() {
		mysqlDSN, mysqlErr = startMySQL()
	})
	if mysqlErr != nil {
		t.Fatalf("testutil: start mysql: %v", mysqlErr)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Fatalf("testutil: open mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Redis returns a client for a Redis started once per test binary, with
// the keyspace flushed.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	skipWithoutDocker(t)

	redisOnce.Do(func() {
		redisAddr, redisErr = startRedis()
	})
	if redisErr != nil {
		t.Fatalf("testutil: start redis: %v", redisErr)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("testutil: flush redis: %v", err)
	}
	return rdb
}

func skipWithoutDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func startMySQL() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "test",
				"MYSQL_DATABASE":      "warranty_test",
			},
			WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}
	host, err := ctr.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "3306")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}

	mc := mysql.NewConfig()
	mc.User = "root"
	mc.Passwd = "test"
	mc.Net = "tcp"
	mc.Addr = host + ":" + port.Port()
	mc.DBName = "warranty_test"
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.MultiStatements = true
	dsn := mc.FormatDSN()

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()

	// The port opens before the server accepts logins during init.
	for {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("ping: %w", err)
		case <-time.After(time.Second):
		}
	}

	if err := database.MigrateUp(ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		return "", err
	}
	return dsn, nil
}

func startRedis() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}
	host, err := ctr.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "6379")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	return host + ":" + port.Port(), nil
}
