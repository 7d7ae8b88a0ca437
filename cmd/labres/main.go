package main

import (
	"os"

	"github.com/labres-dev/labres/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
