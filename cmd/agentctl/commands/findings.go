package commands

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/clan/internal/externalio"
	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/spf13/cobra"
)

var (
	findingSessionID  string
	findingSwarmID    string
	findingRelevantTo string
	findingListLimit  int64
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Record and recall cross-session research notes",
}

var findingsRecordCmd = &cobra.Command{
	Use:   "record <topic> <finding>",
	Short: "Record a finding under a topic, for recall by later sessions",
	Args:  cobra.ExactArgs(2),
	RunE:  runFindingsRecord,
}

var findingsListCmd = &cobra.Command{
	Use:   "list <topic>",
	Short: "List findings recorded under a topic, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runFindingsList,
}

func init() {
	findingsRecordCmd.Flags().StringVar(&findingSessionID, "session", "", "session id recording the finding")
	findingsRecordCmd.Flags().StringVar(&findingSwarmID, "swarm", "", "also broadcast to this swarm's blackboard")
	findingsRecordCmd.Flags().StringVar(&findingRelevantTo, "relevant-to", "", "comma-separated list of paths/topics this finding bears on")
	findingsListCmd.Flags().Int64Var(&findingListLimit, "limit", 20, "max findings to return")
	findingsCmd.AddCommand(findingsRecordCmd, findingsListCmd)
	rootCmd.AddCommand(findingsCmd)
}

func runFindingsRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var relevantTo []string
	if findingRelevantTo != "" {
		relevantTo = strings.Split(findingRelevantTo, ",")
	}

	f := externalio.NewFindings(s, blackboard.New(s), os.Stderr)
	id := f.Record(ctx, findingSessionID, findingSwarmID, args[0], args[1], relevantTo, time.Now().UnixMilli())
	if id == "" {
		printer.Warning("finding was not recorded.\n")
		return nil
	}
	printer.Success("Recorded finding %s under topic %q.\n", id, args[0])
	return nil
}

func runFindingsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	f := externalio.NewFindings(s, blackboard.New(s), os.Stderr)
	findings, err := f.List(ctx, args[0], findingListLimit)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		printer.Info("No findings recorded under %q.\n", args[0])
		return nil
	}

	rows := make([][]string, 0, len(findings))
	for _, fnd := range findings {
		rows = append(rows, []string{
			fnd.ID, fnd.SessionID,
			time.UnixMilli(fnd.CreatedAtMs).UTC().Format(time.RFC3339),
			strconv.Itoa(len(fnd.RelevantTo)) + " relevant",
			truncatePayload(fnd.Finding, 60),
		})
	}
	printer.Table([]string{"ID", "SESSION", "RECORDED", "RELEVANT_TO", "FINDING"}, rows)
	return nil
}
