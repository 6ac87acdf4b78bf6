package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/threatfeed/internal/ui"
)

func newUpdateCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch both feeds and rewrite the README section",
		Long: `Fetch the latest CVEs and breaches, render the table and replace the
marker-delimited section of the README. The file is only written when its
content changes. Feed failures render N/A rows unless --strict is set.`,
		Example: `  threatfeed update
  threatfeed update --readme docs/README.md --count 10
  threatfeed update --dry-run --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orchestrator, err := newUpdateOrchestrator(cmd.Context(), a.cfg, a.logger, dryRun)
			if err != nil {
				return err
			}

			spinner := ui.StartSpinner("Updating " + a.cfg.Readme)
			result, err := orchestrator.Update(cmd.Context())
			if err != nil {
				_ = spinner.Stop()
				return err
			}

			snapshot := result.Snapshot
			switch {
			case result.Written:
				spinner.Success("Updated ", a.cfg.Readme, " (", len(snapshot.Vulnerabilities), " rows, ", result.Duration.Round(time.Millisecond), ")")
			case dryRun && result.Changed:
				_ = spinner.Stop()
				ui.Info("Dry run: %s would change", a.cfg.Readme)
			default:
				_ = spinner.Stop()
				ui.Info("%s is already up to date", a.cfg.Readme)
			}

			if snapshot.NVDError != "" {
				ui.Warning("NVD unavailable, rendered placeholders: %s", snapshot.NVDError)
			}
			if snapshot.HIBPError != "" {
				ui.Warning("HIBP unavailable, rendered placeholders: %s", snapshot.HIBPError)
			}
			if result.SignaturePath != "" {
				ui.Info("Signature written to %s", result.SignaturePath)
			}
			if result.ArchiveURI != "" {
				ui.Info("Snapshot archived to %s", result.ArchiveURI)
			}
			if dryRun && a.verbose {
				fmt.Fprintln(cmd.OutOrStdout(), result.Section)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render and splice without writing the file")
	cmd.Flags().Bool("strict", false, "Fail instead of rendering placeholders when a feed is unavailable")
	bindFlags(a.v, cmd.Flags().Lookup, map[string]string{"strict": "strict"})

	return cmd
}
