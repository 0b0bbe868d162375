package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/history"
	"github.com/timvw/tmux-organize/internal/watch"
)

var (
	flagWatchTheme string
	flagWatchLimit int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of naming jobs",
	Long: `Open a terminal dashboard over the job history: outcomes, durations,
and failure reasons as they land, refreshed while detached jobs from
any trigger write to the shared database.

Keys: / filters, j/k move, r reloads, q quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path, err := cfg.HistoryPath()
		if err != nil {
			return err
		}

		db, err := history.Open(path)
		if err != nil {
			return fmt.Errorf("opening history %s: %w", path, err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating history: %w", err)
		}

		tui := &watch.TUI{
			History: db,
			Refresh: cfg.WatchRefreshDuration,
			Limit:   flagWatchLimit,
			Theme:   watch.ThemeByName(flagWatchTheme),
		}
		return tui.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchTheme, "theme", "dark", "color theme: dark, light")
	watchCmd.Flags().IntVar(&flagWatchLimit, "limit", 200, "maximum records to load per refresh")
	rootCmd.AddCommand(watchCmd)
}
