package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bacalhau-project/remotectl/cmd"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
