package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/export"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

var outputPath string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv>",
	Short: "Load a review CSV (timestamp, uuid, message) into the raw table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: input file %s", internalerr.ErrNotFound, path)
		} else if err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
		return withPipeline(cmd.Context(), func(p *reviewpipe.Pipeline) error {
			rep, err := p.Ingest(cmd.Context(), path)
			if err != nil {
				return err
			}
			logger.Info("ingest finished", append(rep.Fields(), zap.String("run_id", rep.RunID))...)
			return nil
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify every raw review not yet processed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(p *reviewpipe.Pipeline) error {
			rep, err := p.Process(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("process finished", append(rep.Fields(), zap.String("run_id", rep.RunID))...)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <YYYY-MM-DD>",
	Short: "Write classified reviews on or after a date to JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := export.ParseDate(args[0])
		if err != nil {
			return err
		}
		out := outputPath
		if out == "" {
			out = cfg.Export.Output
		}
		return withPipeline(cmd.Context(), func(p *reviewpipe.Pipeline) error {
			doc, err := p.ExportFile(cmd.Context(), since, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", doc.Count, out)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show raw, ledger and classified counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(p *reviewpipe.Pipeline) error {
			st, err := p.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "raw:        %d\n", st.Raw)
			fmt.Fprintf(w, "registered: %d\n", st.Registered)
			fmt.Fprintf(w, "pending:    %d\n", st.Pending)
			fmt.Fprintf(w, "classified: %d\n", st.Classified)
			lex := p.LexiconStats()
			fmt.Fprintf(w, "lemmas:     %d groups, %d forms\n", lex.Groups, lex.TotalVariants)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JSON file (default from config, messages.json)")
}
