package commands

import (
	"time"

	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/registry"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark leaked agents as failed",
	Long: `sweep marks any agent still recorded as running past the registry's
leaked-agent threshold as failed, guarding against rows left behind by a
crashed agent process that never reached SubagentStop.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := registry.New(s)
	n, err := reg.Sweep(ctx, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	printer.Success("Swept %d leaked agent(s).\n", n)
	return nil
}
