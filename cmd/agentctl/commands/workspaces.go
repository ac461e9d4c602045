package commands

import (
	"time"

	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/project"
	"github.com/dyluth/clan/pkg/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var workspaceProject string

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "Claim and inspect named feature workspaces for cross-session awareness",
}

var workspacesClaimCmd = &cobra.Command{
	Use:   "claim <name> <session-id>",
	Short: "Claim a named feature workspace, or confirm existing ownership",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkspacesClaim,
}

var workspacesGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show who owns a named feature workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspacesGet,
}

func init() {
	workspacesCmd.PersistentFlags().StringVar(&workspaceProject, "project", project.DetectName(), "project scope for the workspace")
	workspacesCmd.AddCommand(workspacesClaimCmd, workspacesGetCmd)
	rootCmd.AddCommand(workspacesCmd)
}

func runWorkspacesClaim(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	owned, err := s.ClaimFeatureWorkspace(ctx, &store.FeatureWorkspace{
		ID:           uuid.NewString(),
		Project:      workspaceProject,
		Name:         args[0],
		OwnerSession: args[1],
		CreatedAtMs:  time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if !owned {
		w, err := s.GetFeatureWorkspace(ctx, workspaceProject, args[0])
		if err != nil {
			return err
		}
		printer.Warning("%s/%s is already owned by %s.\n", workspaceProject, args[0], w.OwnerSession)
		return nil
	}
	printer.Success("%s claimed %s/%s.\n", args[1], workspaceProject, args[0])
	return nil
}

func runWorkspacesGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := s.GetFeatureWorkspace(ctx, workspaceProject, args[0])
	if err != nil {
		if store.IsNotFound(err) {
			printer.Info("%s/%s has not been claimed.\n", workspaceProject, args[0])
			return nil
		}
		return err
	}
	printer.Table([]string{"NAME", "PROJECT", "OWNER"}, [][]string{{w.Name, w.Project, w.OwnerSession}})
	return nil
}
