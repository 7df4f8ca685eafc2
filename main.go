package main

import (
	"os"

	"github.com/abhisek/rehearse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
