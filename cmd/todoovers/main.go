package main

import (
	"os"

	"github.com/nhle/todo-overs/cmd/todoovers/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
