package main

import (
	"os"

	"github.com/Hrishi-524/Quiz-Burst/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
