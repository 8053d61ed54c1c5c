package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bnema/siteback/internal/adapters/in/cli"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	if err := cli.Execute(context.Background(), version, commit, date); err != nil {
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
