package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/session"
	"github.com/spf13/cobra"
)

var sessionsConfigPath string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect coordination sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	RunE:  runSessionsList,
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsConfigPath, "config", "coordination.yml", "path to coordination.yml, for the heartbeat TTL")
	sessionsCmd.AddCommand(sessionsListCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := config.LoadOrDefault(sessionsConfigPath)
	sup := session.New(s, int64(cfg.TTLs.HeartbeatSeconds))
	now := time.Now().UnixMilli()
	sessions, err := sup.ListActive(ctx, now)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		printer.Info("No active sessions.\n")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, sess := range sessions {
		age := time.Duration(now-sess.LastHeartbeat) * time.Millisecond
		rows = append(rows, []string{sess.ID, sess.Project, sess.CurrentPhase, fmt.Sprintf("%s ago", age.Round(time.Second))})
	}
	printer.Table([]string{"SESSION", "PROJECT", "PHASE", "LAST HEARTBEAT"}, rows)
	return nil
}
