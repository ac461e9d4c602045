package commands

import (
	"time"

	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/project"
	"github.com/dyluth/clan/pkg/store"
	"github.com/spf13/cobra"
)

var (
	checkpointProject   string
	checkpointSessionID string
	checkpointTTL       time.Duration
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Save and recall project-wide session checkpoints",
}

var checkpointsSaveCmd = &cobra.Command{
	Use:   "save <content>",
	Short: "Save a checkpoint other sessions on this project can recall",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsSave,
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unexpired checkpoints for a project, newest first",
	RunE:  runCheckpointsList,
}

func init() {
	checkpointsCmd.PersistentFlags().StringVar(&checkpointProject, "project", project.DetectName(), "project scope for the checkpoint")
	checkpointsSaveCmd.Flags().StringVar(&checkpointSessionID, "session", "", "session id saving the checkpoint")
	checkpointsSaveCmd.Flags().DurationVar(&checkpointTTL, "ttl", 24*time.Hour, "how long the checkpoint stays recallable")
	checkpointsCmd.AddCommand(checkpointsSaveCmd, checkpointsListCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpointsSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	now := time.Now().UnixMilli()
	cp, err := s.SaveCheckpoint(ctx, &store.Checkpoint{
		SessionID:   checkpointSessionID,
		Project:     checkpointProject,
		Content:     args[0],
		CreatedAtMs: now,
		ExpiresAtMs: now + checkpointTTL.Milliseconds(),
	})
	if err != nil {
		return err
	}
	printer.Success("Saved checkpoint %s for project %q.\n", cp.ID, checkpointProject)
	return nil
}

func runCheckpointsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	now := time.Now().UnixMilli()
	checkpoints, err := s.ListCheckpoints(ctx, checkpointProject, now)
	if err != nil {
		return err
	}
	if len(checkpoints) == 0 {
		printer.Info("No live checkpoints for project %q.\n", checkpointProject)
		return nil
	}

	rows := make([][]string, 0, len(checkpoints))
	for _, cp := range checkpoints {
		rows = append(rows, []string{
			cp.ID, cp.SessionID,
			time.UnixMilli(cp.CreatedAtMs).UTC().Format(time.RFC3339),
			truncatePayload(cp.Content, 60),
		})
	}
	printer.Table([]string{"ID", "SESSION", "CREATED", "CONTENT"}, rows)
	return nil
}
