package cmd

import (
	"github.com/spf13/cobra"
)

var renameWindowCmd = &cobra.Command{
	Use:   "rename-window",
	Short: "Name only the current window",
	Long: `Capture the current tmux window, summarize it with the configured
model, and apply the proposed name. The session keeps its name.

Cheaper and faster than "organize"; suited to a low-friction binding:

  bind-key G run-shell -b "tmux-organize rename-window"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrigger(cmd.Context(), false)
	},
}

func init() {
	addTriggerFlags(renameWindowCmd)
	rootCmd.AddCommand(renameWindowCmd)
}
