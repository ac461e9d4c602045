package commands

import (
	"time"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/session"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	serveTimeout    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Wait for the backing store and coordination.yml, then report readiness",
	Long: `serve gates startup on two conditions the hook dispatcher and admin
commands both depend on: the backing store answering pings, and
coordination.yml parsing cleanly. It's meant to run as a readiness probe
ahead of a supervised session, not as a long-lived server process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "coordination.yml", "path to coordination.yml")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 30*time.Second, "max time to wait for readiness")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := store.NewStore(&redis.Options{Addr: redisAddr}, instanceName)
	if err != nil {
		return err
	}
	defer s.Close()

	printer.Step("Waiting for backing store at %s...\n", redisAddr)
	sup := session.New(s, 0)
	if err := sup.WaitReady(ctx, serveTimeout); err != nil {
		return err
	}
	printer.Success("Backing store is ready.\n")

	if err := s.Migrate(ctx); err != nil {
		return err
	}

	printer.Step("Loading %s...\n", serveConfigPath)
	watcher, err := config.NewWatcher(serveConfigPath)
	if err != nil {
		return err
	}
	defer watcher.Close()
	printer.Success("coordination.yml loaded (version %s).\n", watcher.Current().Version)

	return nil
}
