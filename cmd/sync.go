package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appellisync/appellisync/internal/config"
	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/logging"
	"github.com/appellisync/appellisync/internal/notion"
	"github.com/appellisync/appellisync/internal/sync"
)

var (
	syncCourses    []string
	syncDryRun     bool
	syncReportPath string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the batch sync",
	Long: `Fetch exam sessions for every configured course, reconcile the remote
schema, and create or update one page per session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := notion.NewClient(cfg.Notion.BaseURL, cfg.Notion.Token)
		fetcher := feed.NewClient(cfg.Feed.BaseURL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second, logger)

		pipeline, err := sync.New(cfg, api, fetcher, logger, sync.Options{
			DryRun:  syncDryRun,
			Courses: syncCourses,
		})
		if err != nil {
			return err
		}

		rep, runErr := pipeline.Run(ctx)
		fmt.Print(rep.Render())

		if syncReportPath != "" {
			if err := rep.WriteJSON(config.ExpandHome(syncReportPath)); err != nil {
				logger.Error("writing report", "path", syncReportPath, "error", err)
			}
		}

		return runErr
	},
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncCourses, "course", nil, "course code to sync (repeatable; default: configured list)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute the schema diff and row outcomes without writing")
	syncCmd.Flags().StringVar(&syncReportPath, "report", "", "write a JSON report to this path")
	rootCmd.AddCommand(syncCmd)
}
