package main

import (
	"fmt"
	"os"

	"github.com/Dowwie/tasker/internal/cli"
	"github.com/Dowwie/tasker/internal/taskerr"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(taskerr.ExitCode(err))
	}
}
