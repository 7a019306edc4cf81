package main

import (
	"os"

	"github.com/ppiankov/jobpan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
