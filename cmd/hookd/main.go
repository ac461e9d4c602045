// Command hookd is the hook dispatcher's process entrypoint: the host
// tool invokes it fresh for every hook event, feeding it one JSON object
// on stdin and reading exactly one JSON object back from stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/fileclaim"
	"github.com/dyluth/clan/internal/hook"
	"github.com/dyluth/clan/internal/pattern"
	"github.com/dyluth/clan/internal/registry"
	"github.com/dyluth/clan/internal/statetransfer"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	addr := os.Getenv("COORDINATION_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	instance := os.Getenv("COORDINATION_INSTANCE")
	if instance == "" {
		instance = "clan"
	}
	configPath := os.Getenv("COORDINATION_CONFIG_PATH")
	if configPath == "" {
		configPath = "coordination.yml"
	}
	// A hook invocation is a few-hundred-millisecond child process; it must
	// never fail an event because coordination.yml is missing or mid-edit,
	// so it degrades to built-in defaults rather than calling config.Load.
	cfg := config.LoadOrDefault(configPath)

	s, err := store.NewStore(&redis.Options{Addr: addr}, instance)
	if err != nil {
		// A construction failure here means a config error, not a runtime
		// one; still degrade to {} rather than a non-zero exit, per the
		// dispatcher's "must never raise" contract.
		fmt.Fprintf(os.Stderr, "hookd: store init: %v\n", err)
		fmt.Println("{}")
		return
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()

	if err := s.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hookd: migrate: %v\n", err)
	}

	bb := blackboard.New(s)
	deps := pattern.Deps{
		Store:      s,
		Registry:   registry.New(s),
		Blackboard: bb,
		Arbiter:    fileclaim.New(s, int64(cfg.TTLs.LockSeconds)),
		Transfer:   statetransfer.New(bb),
		Config:     cfg,
	}
	dispatcher := hook.New(pattern.NewRegistry(deps), cfg)

	if err := dispatcher.RunFromOS(ctx, time.Now().UnixMilli()); err != nil {
		fmt.Fprintf(os.Stderr, "hookd: %v\n", err)
	}
}
