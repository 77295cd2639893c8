package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bacalhau-project/remotectl/pkg/logger"
	"github.com/briandowns/spinner"
)

// NewSpinner creates a new spinner to alert the user about the progress
func NewSpinner(w io.Writer, message string) *spinner.Spinner {
	l := logger.Get()
	l.Debugf("Creating spinner: %s", message)

	if w == nil {
		w = os.Stderr
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Prefix = message + " "
	_ = s.Color("green")
	s.Start()

	return s
}

// Run shows a spinner while fn runs and prints a one-line outcome to w.
// The spinner only animates on a terminal.
func Run(w io.Writer, message string, fn func() error) error {
	if w == nil {
		w = os.Stderr
	}
	s := NewSpinner(w, message)
	start := time.Now()
	err := fn()
	s.Stop()

	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(w, "%s failed after %s: %v\n", message, elapsed, err)
		return err
	}
	fmt.Fprintf(w, "%s done in %s\n", message, elapsed)
	return nil
}
