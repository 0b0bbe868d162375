package main

import "github.com/timvw/tmux-organize/cmd"

func main() {
	cmd.Execute()
}
