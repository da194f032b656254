package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/errors"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove prompt files left behind by interrupted runs",
	Long: `Each AI run writes its prompt to a specstudio_prompt_<id>.txt file in
shell.temp_dir and removes it when the run completes. A run whose backend
was killed leaves the file behind; cleanup removes those older than
--older-than.

Use --dry-run to see what would be removed without deleting anything.`,
	RunE: runCleanup,
}

var (
	cleanupDryRun    bool
	cleanupOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without making changes")
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", time.Hour, "Only remove files older than this")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir := config.Get().Shell.ResolveTempDir()

	stale, err := command.FindStaleTempFiles(dir, time.Now().Add(-cleanupOlderThan))
	if err != nil {
		return errors.Wrap(err, "failed to scan prompt directory")
	}
	if len(stale) == 0 {
		fmt.Fprintln(out, "No stale prompt files found.")
		return nil
	}

	removed := 0
	for _, f := range stale {
		age := time.Since(f.ModTime).Round(time.Minute)
		if cleanupDryRun {
			fmt.Fprintf(out, "%s %s %s\n", mutedStyle.Render("would remove"), f.Path, mutedStyle.Render(age.String()+" old"))
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(out, "%s %s: %v\n", failureStyle.Render(symbolFail), f.Path, err)
			continue
		}
		removed++
		fmt.Fprintf(out, "%s %s\n", successStyle.Render(symbolOK), f.Path)
	}

	if cleanupDryRun {
		fmt.Fprintf(out, "\n%d file(s) would be removed.\n", len(stale))
	} else {
		fmt.Fprintf(out, "\nRemoved %d of %d file(s).\n", removed, len(stale))
	}
	return nil
}
