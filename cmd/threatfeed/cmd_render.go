package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/external-adapters/yaml"
)

func newRenderCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the generated README section without writing it",
		Long: `Render the marker-wrapped Markdown section to stdout. Records come from
the live feeds, or from a snapshot saved with "threatfeed fetch --output".`,
		Example: `  threatfeed render
  threatfeed render --from snapshot.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline := newPipeline(a.cfg, a.logger, true)

			var snapshot *entities.Snapshot
			var err error
			if from != "" {
				snapshot, err = yaml.NewSnapshotCodec().ParseFile(from)
			} else {
				snapshot, err = pipeline.Collect(cmd.Context())
			}
			if err != nil {
				return err
			}
			if snapshot.GeneratedAt.IsZero() {
				snapshot.GeneratedAt = time.Now().UTC()
			}

			_, err = io.WriteString(cmd.OutOrStdout(), pipeline.Render(snapshot)+"\n")
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Render a saved JSON or YAML snapshot instead of fetching")

	return cmd
}
