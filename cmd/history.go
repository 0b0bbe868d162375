package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/history"
	"github.com/timvw/tmux-organize/internal/model"
)

var (
	flagHistoryJSON  bool
	flagHistoryLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent naming jobs",
	Long: `Show recent naming jobs from the history database, newest last.

Every detached job records its outcome here: the applied name, a
failure reason, or that a newer trigger superseded it. Use --json for
scripting.`,
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

		recs, err := db.Recent(flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}

		if flagHistoryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}

		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "no jobs recorded")
			return nil
		}

		// Recent returns newest first; print oldest first so the latest
		// job ends up next to the prompt.
		for i := len(recs) - 1; i >= 0; i-- {
			fmt.Println(historyLine(recs[i]))
		}
		return nil
	},
}

// historyLine renders one record as a fixed-width row. Settled names
// show in the last column; failed and superseded jobs show the reason.
func historyLine(rec model.JobRecord) string {
	outcome := rec.Name
	if rec.Status != model.JobSucceeded {
		outcome = rec.Reason
	}
	if rec.CacheHit {
		outcome += " (cached)"
	}
	return fmt.Sprintf("%s  %-7s %-14s %-10s %6dms  %s",
		rec.FinishedAt.Local().Format("15:04:05"),
		rec.Kind,
		strings.TrimPrefix(rec.TargetKey, rec.Kind+"/"),
		string(rec.Status),
		rec.DurationMs,
		outcome)
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "print records as JSON")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum records to show")
	rootCmd.AddCommand(historyCmd)
}
