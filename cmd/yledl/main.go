package main

import (
	"os"

	"github.com/famomatic/yledl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
