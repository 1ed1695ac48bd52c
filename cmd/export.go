package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/export"
)

var (
	exportFormat   string
	exportDir      string
	exportBasename string
	exportLocale   string
	exportTimezone string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>...",
	Short: "Re-render or merge earlier exports",
	Long: `Read one or more transcripts written by collect and write them again in
another format. Messages present in several inputs are written once, so
partial runs of the same conversation can be combined.

Readable inputs: ` + strings.Join(export.ReadableFormats, ", ") + `
Output formats: txt, md, json, jsonl, yaml, sqlite`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("format") {
			cfg.Export.Format = exportFormat
		}
		if cmd.Flags().Changed("out") {
			cfg.Export.Dir = exportDir
		}
		if cmd.Flags().Changed("basename") {
			cfg.Export.Basename = exportBasename
		}
		if cmd.Flags().Changed("locale") {
			cfg.Export.Locale = exportLocale
		}
		if cmd.Flags().Changed("timezone") {
			cfg.Export.Timezone = exportTimezone
		}

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		exporter, err := export.NewExporter(cfg.Export.Format, export.Options{Locale: cfg.Export.Locale, Location: loc})
		if err != nil {
			return err
		}

		transcripts := make([]*internal.Transcript, 0, len(args))
		for _, path := range args {
			t, err := export.ReadTranscript(path)
			if err != nil {
				return err
			}
			internal.LogInfo("read %d messages from %s", len(t.Messages), path)
			transcripts = append(transcripts, t)
		}

		merged, err := export.MergeTranscripts(uuid.NewString(), transcripts...)
		if err != nil {
			return fmt.Errorf("nothing to export: %w", err)
		}
		if merged.CollectedAt.IsZero() {
			merged.CollectedAt = time.Now()
		}

		sink := export.NewFileSink(cfg.Export.Dir, cfg.Export.Basename, exporter)
		var path string
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Writing %d messages", len(merged.Messages)), func() error {
			var deliverErr error
			path, deliverErr = sink.Deliver(context.WithoutCancel(cmd.Context()), merged)
			return deliverErr
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Exported %d messages to %s", len(merged.Messages), path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "txt", "Output format: txt, md, json, jsonl, yaml, sqlite")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Output directory")
	exportCmd.Flags().StringVar(&exportBasename, "basename", "slack_dms_export", "Output file name without extension")
	exportCmd.Flags().StringVar(&exportLocale, "locale", "ko", "Transcript locale for the txt format: ko, en")
	exportCmd.Flags().StringVar(&exportTimezone, "timezone", "", "IANA time zone for dates (default: local)")
}
