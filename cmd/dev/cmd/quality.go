package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func qualityCmd(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("running quality step", "step", use)
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests", func() error { return test.Test() })
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linters", func() error { return test.Lint() })
}

func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run integration tests against attached hardware", func() error { return test.Integ() })
}

// RaceCmd runs the concurrent packages under the race detector.
func RaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Run concurrency tests with the race detector",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := []string{"./controller/...", "./sim/...", "./protocol/..."}
			if all, _ := cmd.Flags().GetBool("all"); all {
				pkgs = []string{"./..."}
			}
			goTest := exec.CommandContext(cmd.Context(), "go", append([]string{"test", "-race", "-count=1"}, pkgs...)...)
			goTest.Stdout = os.Stdout
			goTest.Stderr = os.Stderr
			slog.Info("running race tests", "packages", pkgs)
			if err := goTest.Run(); err != nil {
				return fmt.Errorf("race tests failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "run every package")
	return cmd
}
