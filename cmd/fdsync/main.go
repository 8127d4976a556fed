package main

import (
	"fmt"
	"os"

	"github.com/your-org/fdsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fdsync: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
