package commands

import (
	"strconv"

	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/registry"
	"github.com/spf13/cobra"
)

var agentsSession string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect running agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running agents",
	RunE:  runAgentsList,
}

func init() {
	agentsListCmd.Flags().StringVar(&agentsSession, "session", "", "restrict to a single session id")
	agentsCmd.AddCommand(agentsListCmd)
	rootCmd.AddCommand(agentsCmd)
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := registry.New(s)
	agents, err := reg.ListRunning(ctx, agentsSession)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		printer.Info("No running agents.\n")
		return nil
	}

	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, []string{a.ID, a.SessionID, a.Pattern, a.ParentAgentID, string(a.Status), strconv.Itoa(a.PID)})
	}
	printer.Table([]string{"AGENT", "SESSION", "PATTERN", "PARENT", "STATUS", "PID"}, rows)
	return nil
}
