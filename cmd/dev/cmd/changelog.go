package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

const changelogTool = "git-chglog"

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate CHANGELOG.md from conventional commits",
		Long: `Generate CHANGELOG.md with git-chglog from the git history.

Commits are expected in the conventional format:
  <type>[optional scope]: <description>
with types feat, fix, docs, refactor, test, perf, build, ci or chore.
Scopes name the package touched, e.g. "fix(controller): ..." or "feat(sim): ...".

Examples:
  dev changelog
  dev changelog --next v0.2.0
  dev changelog --tag v0.1.0 --output CHANGES.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			next, _ := cmd.Flags().GetString("next")
			tag, _ := cmd.Flags().GetString("tag")

			if _, err := exec.LookPath(changelogTool); err != nil {
				slog.Error("changelog generator not found", "tool", changelogTool,
					"install", "go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest")
				return fmt.Errorf("%s not installed: %w", changelogTool, err)
			}

			if output == "" {
				output = "CHANGELOG.md"
			}
			chglogArgs := []string{"--output", output}
			if next != "" {
				chglogArgs = append(chglogArgs, "--next-tag", next)
			}
			if tag != "" {
				chglogArgs = append(chglogArgs, tag)
			}

			slog.Info("generating changelog", "args", chglogArgs)
			gen := exec.CommandContext(cmd.Context(), changelogTool, chglogArgs...)
			gen.Stdout = os.Stdout
			gen.Stderr = os.Stderr
			if err := gen.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output)
			return nil
		},
	}

	cmd.Flags().String("next", "", "next version tag (e.g. v0.2.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "output file path")
	cmd.Flags().String("tag", "", "generate the changelog for a single tag")

	return cmd
}
