// cmd/bqvault/main.go
package main

import (
	"os"

	"github.com/semmidev/bqvault/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
