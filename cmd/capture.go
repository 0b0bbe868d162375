package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/tmux-organize/internal/organizer"
	"github.com/timvw/tmux-organize/internal/status"
)

var flagCaptureSession bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Print the naming context for the current target",
	Long: `Assemble and print the exact context a naming job would hand to the
summarizer for the current window, or for the current session with
--session. Useful for tuning prompts and the enrichment command.

The content fingerprint (the cache key) goes to stderr so stdout stays
pipeable.`,
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

		window, session, err := m.CurrentTarget(ctx)
		if err != nil {
			return fmt.Errorf("resolving current target: %w", err)
		}

		target := window
		if flagCaptureSession {
			target = session
		}

		o := organizer.New(organizer.Options{
			Host:           m,
			Status:         status.New(m, cfg.StatusOption, statusPolicy(cfg)),
			Enricher:       organizer.NewEnricher(cfg.EnrichCommand, cfg.EnrichTimeoutDuration),
			CaptureTimeout: cfg.CaptureTimeoutDuration,
		})

		snapshot, err := o.Capture(ctx, target)
		if err != nil {
			return fmt.Errorf("capturing %s: %w", target.Key(), err)
		}

		fmt.Fprint(os.Stdout, snapshot.Text)
		if len(snapshot.Text) > 0 && snapshot.Text[len(snapshot.Text)-1] != '\n' {
			fmt.Fprintln(os.Stdout)
		}
		fmt.Fprintf(os.Stderr, "fingerprint: %s\n", snapshot.Fingerprint)
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&flagCaptureSession, "session", false, "capture the whole session instead of the current window")
	rootCmd.AddCommand(captureCmd)
}
