package commands

import (
	"strconv"

	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/pkg/store"
	"github.com/spf13/cobra"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker <cb-id>",
	Short: "Show a circuit breaker's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runBreakerShow,
}

func init() {
	rootCmd.AddCommand(breakerCmd)
}

func runBreakerShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cb, err := s.GetCircuitState(ctx, args[0])
	if err != nil {
		if store.IsNotFound(err) {
			printer.Info("No breaker state recorded for %s.\n", args[0])
			return nil
		}
		return err
	}

	printer.Table(
		[]string{"CB_ID", "STATE", "THRESHOLD", "FAILURES", "SUCCESSES"},
		[][]string{{cb.CBID, string(cb.State), strconv.Itoa(cb.CurrentThreshold), strconv.Itoa(cb.FailureCount), strconv.Itoa(cb.SuccessCount)}},
	)
	return nil
}
