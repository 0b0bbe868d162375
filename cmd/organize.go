package cmd

import (
	"github.com/spf13/cobra"
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Name the current window and session",
	Long: `Capture the current tmux window and session, summarize each with the
configured model, and apply the proposed names.

The command returns immediately: naming runs in a detached process.
Progress shows in the session's status option ("organizing...", then
cleared or "organize failed"); results land in the history database.
Window and session run as independent jobs, so one can succeed while
the other fails. A newer trigger on the same target supersedes the
older job.

Bind it in tmux.conf (see "tmux-organize init"):

  bind-key g run-shell -b "tmux-organize organize"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrigger(cmd.Context(), true)
	},
}

func init() {
	addTriggerFlags(organizeCmd)
	rootCmd.AddCommand(organizeCmd)
}
