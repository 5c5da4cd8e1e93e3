package main

import (
	"os"

	"github.com/emucfg/emucfg/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
