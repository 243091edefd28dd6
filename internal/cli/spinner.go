package cli

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WithSpinner runs fn behind a progress spinner with the given message.
// Quiet mode runs fn directly without any output.
func WithSpinner(quiet bool, message string, fn func() error) error {
	if quiet {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()

	if err := fn(); err != nil {
		s.FinalMSG = text.FgRed.Sprint(message+" failed") + "\n"
		return err
	}
	return nil
}
