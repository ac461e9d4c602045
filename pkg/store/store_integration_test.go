//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a real Redis container for testing.
func setupRedisContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}
	return addr, cleanup
}

func TestStore_AgentLifecycle_Integration(t *testing.T) {
	addr, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewStore(&redis.Options{Addr: addr}, "test-instance")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	a := &Agent{ID: "scout-1", SessionID: "sess-1", SpawnedAt: 1000, Status: AgentStatusRunning}
	if err := s.RegisterAgent(ctx, a); err != nil {
		t.Fatalf("register agent: %v", err)
	}

	n, err := s.CountRunning(ctx)
	if err != nil {
		t.Fatalf("count running: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 running agent, got %d", n)
	}

	if err := s.CompleteAgent(ctx, "scout-1", AgentStatusCompleted, 2000, ""); err != nil {
		t.Fatalf("complete agent: %v", err)
	}

	got, err := s.GetAgent(ctx, "scout-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != AgentStatusCompleted {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
}
