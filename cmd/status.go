package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/status"
)

var flagStatusClear bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show or clear the session's naming indicator",
	Long: `Show the current session's naming indicator: working while jobs run,
failed after a failure, unset otherwise.

--clear unsets the option and forgets any standing failure. Use it when
a stale "organizing..." survives a killed job or a reboot; the next
trigger starts clean either way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		m, err := getMultiplexer()
		if err != nil {
			return err
		}

		_, session, err := m.CurrentTarget(ctx)
		if err != nil {
			return fmt.Errorf("resolving current session: %w", err)
		}

		ind := status.New(m, cfg.StatusOption, statusPolicy(cfg))

		if flagStatusClear {
			if err := ind.Clear(ctx, session.SessionID); err != nil {
				return fmt.Errorf("clearing %s: %w", cfg.StatusOption, err)
			}
			fmt.Printf("%s cleared on %s\n", ind.Option(), session.SessionID)
			return nil
		}

		state, value, err := ind.Read(ctx, session.SessionID)
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfg.StatusOption, err)
		}
		if value == "" {
			fmt.Printf("%s: %s\n", ind.Option(), state)
			return nil
		}
		fmt.Printf("%s: %s (%q)\n", ind.Option(), state, value)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusClear, "clear", false, "unset the indicator and forget any standing failure")
	rootCmd.AddCommand(statusCmd)
}
