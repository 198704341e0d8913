package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/app"
	"github.com/quillworks/novelforge/internal/novel"
)

func newIngestCmd() *cobra.Command {
	var (
		requestID string
		submitURL string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Process pending requests once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var reports []novel.IngestReport
			if submitURL != "" {
				report, err := a.Orchestrator().SubmitAndProcess(ctx, submitURL, "")
				if err != nil {
					return err
				}
				reports = []novel.IngestReport{report}
			} else if requestID != "" {
				report, err := a.Orchestrator().ProcessRequestByID(ctx, requestID)
				if err != nil {
					return err
				}
				reports = []novel.IngestReport{report}
			} else {
				reports, err = a.Orchestrator().RunOnce(ctx)
				if err != nil {
					return err
				}
			}

			for _, report := range reports {
				logger.Info("request finished",
					zap.String("request_id", report.RequestID),
					zap.String("status", string(report.Status)),
					zap.String("slug", report.Slug),
					zap.Int("chapters", report.Stats.TotalChapters),
					zap.Int("failed_chapters", report.Stats.FailedChapters),
					zap.Int("flagged_chapters", report.Flagged),
				)
			}
			logger.Info("batch complete", zap.Int("processed", len(reports)))
			return nil
		},
	}
	cmd.Flags().StringVar(&requestID, "request", "", "process a single request by ID")
	cmd.Flags().StringVar(&submitURL, "url", "", "submit a book URL and process it immediately")
	return cmd
}
