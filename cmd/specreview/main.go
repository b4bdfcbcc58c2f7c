package main

import (
	"os"

	"github.com/dshills/specreview/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
