package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appellisync/appellisync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Notion:\n")
		fmt.Printf("    Token:          %s\n", maskSecret(cfg.Notion.Token))
		fmt.Printf("    Data source:    %s\n", cfg.Notion.DataSourceID)
		fmt.Printf("    Base URL:       %s\n", cfg.Notion.BaseURL)
		fmt.Println()
		fmt.Printf("  Feed:\n")
		fmt.Printf("    Base URL:       %s\n", cfg.Feed.BaseURL)
		fmt.Printf("    Timeout:        %ds\n", cfg.Feed.TimeoutSeconds)
		fmt.Println()
		fmt.Printf("  Sync:\n")
		fmt.Printf("    Pace:           %dms\n", cfg.Sync.PaceMilliseconds)
		fmt.Printf("    Continue on row error: %v\n", cfg.Sync.ContinueOnRowError)
		if cfg.Sync.OverridesFile != "" {
			fmt.Printf("    Overrides file: %s\n", cfg.Sync.OverridesFile)
		}
		fmt.Println()
		fmt.Printf("  Courses:\n")
		for _, c := range cfg.Courses {
			if c.Note != "" {
				fmt.Printf("    %-4s %s\n", c.Code, c.Note)
			} else {
				fmt.Printf("    %s\n", c.Code)
			}
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Version: config.CurrentVersion,
			Notion: config.NotionConfig{
				Token:        "${ENV:NOTION_TOKEN}",
				DataSourceID: "${ENV:DATA_SOURCE_ID}",
			},
			Courses: config.DefaultCourses,
		}
		path := cfgFile
		if path == "" {
			path = config.ExpandHome(config.DefaultPath)
		}
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 4) + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
