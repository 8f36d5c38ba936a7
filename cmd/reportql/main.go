package main

import (
	"os"

	"github.com/asaidimu/go-reportql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
