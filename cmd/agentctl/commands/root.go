// Package commands implements agentctl's cobra command tree: operator
// visibility and maintenance over the coordination runtime's Redis-backed
// state — sessions, agents, file claims, circuit breakers, and the
// periodic sweeps that expire stale entries.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	redisAddr    string
	instanceName string
)

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "agentctl - operator CLI for the agent coordination runtime",
	Long: `agentctl inspects and maintains the coordination runtime's Redis-backed
state: active sessions, running agents, live file claims, and circuit
breaker status. It reads the same coordination.yml tuning file the hook
dispatcher does.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("COORDINATION_REDIS_ADDR", "localhost:6379"), "backing store address")
	rootCmd.PersistentFlags().StringVar(&instanceName, "instance", envOr("COORDINATION_INSTANCE", "clan"), "coordination instance name")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openStore connects to the backing store using the persistent
// --redis-addr/--instance flags.
func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.NewStore(&redis.Options{Addr: redisAddr}, instanceName)
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to %s: %w", redisAddr, err)
	}
	return s, nil
}
