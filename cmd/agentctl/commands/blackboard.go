package commands

import (
	"strconv"
	"time"

	"github.com/dyluth/clan/internal/filter"
	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/timespec"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
	"github.com/spf13/cobra"
)

var (
	blackboardSince string
	blackboardUntil string
	blackboardType  string
	blackboardBy    string
)

var blackboardCmd = &cobra.Command{
	Use:   "blackboard <swarm-id>",
	Short: "Read broadcasts posted to a swarm",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlackboardRead,
}

func init() {
	blackboardCmd.Flags().StringVar(&blackboardSince, "since", "", "only broadcasts at or after this time (duration like 1h, or RFC3339)")
	blackboardCmd.Flags().StringVar(&blackboardUntil, "until", "", "only broadcasts at or before this time")
	blackboardCmd.Flags().StringVar(&blackboardType, "type", "", "glob over broadcast_type, e.g. 'done' or 'state_*'")
	blackboardCmd.Flags().StringVar(&blackboardBy, "sender", "", "only broadcasts from this sender agent")
	rootCmd.AddCommand(blackboardCmd)
}

func runBlackboardRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sinceMs, untilMs, err := timespec.ParseRange(blackboardSince, blackboardUntil)
	if err != nil {
		return err
	}

	bb := blackboard.New(s)
	broadcasts, err := bb.Read(ctx, args[0], store.BroadcastReadOptions{SinceMs: sinceMs, Limit: store.UnlimitedBroadcasts})
	if err != nil {
		return err
	}

	criteria := &filter.Criteria{UntilMs: untilMs, TypeGlob: blackboardType, SenderAgent: blackboardBy}
	broadcasts = filter.Apply(broadcasts, criteria)

	if len(broadcasts) == 0 {
		printer.Info("No broadcasts match.\n")
		return nil
	}

	rows := make([][]string, 0, len(broadcasts))
	for _, b := range broadcasts {
		rows = append(rows, []string{
			b.ID, b.SenderAgent, string(b.BroadcastType),
			time.UnixMilli(b.CreatedAtMs).UTC().Format(time.RFC3339),
			truncatePayload(b.Payload, 60),
		})
	}
	printer.Table([]string{"ID", "SENDER", "TYPE", "CREATED", "PAYLOAD"}, rows)
	return nil
}

func truncatePayload(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..." + " (" + strconv.Itoa(len(s)) + "b)"
}
