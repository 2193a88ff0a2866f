package main

import (
	"os"

	"github.com/roach88/rewind/internal/cli"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	os.Exit(cli.Execute())
}
