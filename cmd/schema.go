package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/infer"
	"github.com/appellisync/appellisync/internal/logging"
	"github.com/appellisync/appellisync/internal/notion"
)

var schemaReconcile bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect the remote data source schema",
	Long: `Print the data source's live column types. With --reconcile, fetch the
first configured course, infer the desired types, and apply the
additive/altering schema changes without writing any rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := notion.NewClient(cfg.Notion.BaseURL, cfg.Notion.Token)

		if schemaReconcile {
			logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
			if err != nil {
				return fmt.Errorf("setting up logging: %w", err)
			}

			codes := cfg.CourseCodes()
			if len(codes) == 0 {
				return fmt.Errorf("no courses configured")
			}
			fetcher := feed.NewClient(cfg.Feed.BaseURL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second, logger)
			doc, err := fetcher.Fetch(ctx, codes[0])
			if err != nil {
				return err
			}
			tbl := feed.Normalize(doc, codes[0])
			if tbl.Empty() {
				return fmt.Errorf("course %s has no sessions to infer from", codes[0])
			}

			overrides := infer.DefaultOverrides()
			formats := infer.DefaultDateFormats()
			desired := make(map[string]infer.PropertyType)
			for _, col := range tbl.Columns() {
				if col == notion.TitleProperty {
					continue
				}
				desired[col] = infer.Infer(col, tbl.Column(col), overrides, formats)
			}

			final, err := notion.ReconcileSchema(ctx, api, cfg.Notion.DataSourceID, desired)
			if err != nil {
				return err
			}
			fmt.Printf("Reconciled %d columns from course %s.\n\n", len(final), codes[0])
		}

		ds, err := api.RetrieveDataSource(ctx, cfg.Notion.DataSourceID)
		if err != nil {
			return err
		}

		cols := make([]string, 0, len(ds.Properties))
		for name := range ds.Properties {
			cols = append(cols, name)
		}
		sort.Strings(cols)

		fmt.Printf("Data source %s:\n", cfg.Notion.DataSourceID)
		for _, name := range cols {
			fmt.Printf("  %-24s %s\n", name, ds.Properties[name].Type)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaReconcile, "reconcile", false, "infer and apply schema changes from the first configured course")
	rootCmd.AddCommand(schemaCmd)
}
