package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ochairo/threatfeed/internal/external-adapters/yaml"
	"github.com/ochairo/threatfeed/internal/ui"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		output string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch both feeds and print the normalized records",
		Long: `Fetch the latest CVEs and breaches without touching the README. The
result is printed as tables, or as a JSON or YAML snapshot that can later be
rendered with "threatfeed render --from".`,
		Example: `  threatfeed fetch
  threatfeed fetch --output json
  threatfeed fetch --output yaml --file snapshot.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := newPipeline(a.cfg, a.logger, true).Collect(cmd.Context())
			if err != nil {
				return err
			}

			if output == "table" {
				if file != "" {
					return errors.New("--file requires --output json or yaml")
				}
				ui.PrintSnapshot(snapshot)
				return nil
			}

			format, err := yaml.ParseFormat(output)
			if err != nil {
				return errors.Wrap(err, "invalid --output")
			}
			data, err := yaml.NewSnapshotCodec().Encode(snapshot, format)
			if err != nil {
				return err
			}

			if file == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := afero.WriteFile(afero.NewOsFs(), file, data, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write %s", file)
			}
			ui.Success("Snapshot written to %s", file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write the snapshot to a file instead of stdout")

	return cmd
}
