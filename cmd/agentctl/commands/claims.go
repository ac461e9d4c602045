package commands

import (
	"time"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/fileclaim"
	"github.com/dyluth/clan/internal/printer"
	"github.com/dyluth/clan/internal/project"
	"github.com/dyluth/clan/pkg/store"
	"github.com/spf13/cobra"
)

var (
	claimsProject    string
	claimsConfigPath string
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and release file claims",
}

var claimsCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Check who currently holds a file claim",
	Args:  cobra.ExactArgs(1),
	RunE:  runClaimsCheck,
}

var claimsReleaseCmd = &cobra.Command{
	Use:   "release <path> <session-id>",
	Short: "Release a file claim held by session-id",
	Args:  cobra.ExactArgs(2),
	RunE:  runClaimsRelease,
}

func init() {
	claimsCmd.PersistentFlags().StringVar(&claimsProject, "project", project.DetectName(), "project scope for the claim")
	claimsCmd.PersistentFlags().StringVar(&claimsConfigPath, "config", "coordination.yml", "path to coordination.yml, for the default lock TTL")
	claimsCmd.AddCommand(claimsCheckCmd, claimsReleaseCmd)
	rootCmd.AddCommand(claimsCmd)
}

// claimsArbiter builds an Arbiter using coordination.yml's lock_seconds as
// the default TTL, falling back to the built-in default if the file is
// missing — a `claims` invocation must not fail just because no
// coordination.yml has been written yet.
func claimsArbiter(s *store.Store) *fileclaim.Arbiter {
	cfg := config.LoadOrDefault(claimsConfigPath)
	return fileclaim.New(s, int64(cfg.TTLs.LockSeconds))
}

func runClaimsCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	arbiter := claimsArbiter(s)
	res, err := arbiter.Check(ctx, args[0], claimsProject, "", time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if !res.Claimed {
		printer.Info("%s is unclaimed.\n", args[0])
		return nil
	}
	printer.Table([]string{"PATH", "PROJECT", "HELD BY"}, [][]string{{args[0], claimsProject, res.By}})
	return nil
}

func runClaimsRelease(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	arbiter := claimsArbiter(s)
	released, err := arbiter.Release(ctx, args[0], claimsProject, args[1])
	if err != nil {
		return err
	}
	if released {
		printer.Success("Released %s\n", args[0])
	} else {
		printer.Warning("%s was not held by %s\n", args[0], args[1])
	}
	return nil
}
