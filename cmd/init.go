package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Print the tmux.conf snippet",
	Long: `Print the tmux.conf lines that wire tmux-organize into tmux: key
bindings that trigger naming without blocking (run-shell -b) and a
status-right fragment that renders the indicator option.

Append to ~/.tmux.conf:

  tmux-organize init >> ~/.tmux.conf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Bindings use the absolute path: run-shell may not see the
		// user's PATH.
		exe, err := os.Executable()
		if err != nil {
			exe = "tmux-organize"
		}

		opt := cfg.StatusOption

		fmt.Printf(`# tmux-organize
bind-key g run-shell -b "%[1]s organize"
bind-key G run-shell -b "%[1]s rename-window"

# Indicator on the status line: "organizing..." while jobs run,
# "organize failed" until the next success. Merge the #{?%[2]s,...}
# fragment into your own status-right if you have one.
set-option -g status-right "#{?%[2]s, #{%[2]s} |,} \"#{=21:pane_title}\" %%H:%%M %%d-%%b-%%y"
`, exe, opt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
