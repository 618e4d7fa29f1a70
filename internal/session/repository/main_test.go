package repository

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"course-guard/internal/db/dbtest"
)

var (
	testDB      *dbtest.Instance
	testRedis   *redis.Client
	redisCtr    testcontainers.Container
	redisPrefix int
)

func TestMain(m *testing.M) {
	flag.Parse()
	ctx := context.Background()
	if !testing.Short() {
		inst, err := dbtest.Start(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "session postgres integration tests skipped: %v\n", err)
		}
		testDB = inst

		if err := startRedis(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "session redis integration tests skipped: %v\n", err)
		}
	}
	code := m.Run()
	testDB.Close(ctx)
	if testRedis != nil {
		_ = testRedis.Close()
	}
	if redisCtr != nil {
		_ = redisCtr.Terminate(ctx)
	}
	os.Exit(code)
}

func startRedis(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container provider: %v", r)
		}
	}()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return err
	}
	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(ctx)
		return err
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = c.Terminate(ctx)
		return err
	}
	redisCtr, testRedis = c, client
	return nil
}

func newPostgresRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	if err := testDB.Truncate(context.Background(), "active_sessions"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresRepository(testDB.DB)
}

func newRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	if testRedis == nil {
		t.Skip("redis container not available")
	}
	redisPrefix++
	return NewRedisRepository(testRedis, fmt.Sprintf("test-%d", redisPrefix))
}
