package command

import (
	"errors"
	"fmt"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/spf13/cobra"
)

const (
	ExitOK         = 0
	ExitTransient  = 1
	ExitPermanent  = 2
	ExitBadRequest = 3
)

// ranError is an error which a command has returned after it started.
//
// Other errors come from cobra's parsing of the command line.
type ranError struct {
	err error
}

func (r ranError) Error() string {
	return r.err.Error()
}

func (r ranError) Unwrap() error {
	return r.err
}

type runner func(cmd *cobra.Command, args []string) error

func run(f runner) runner {
	return func(cmd *cobra.Command, args []string) error {
		if err := f(cmd, args); err != nil {
			return ranError{err: err}
		}
		return nil
	}
}

func usage(format string, a ...any) error {
	return fmt.Errorf("%w: %s", domerr.ErrUsage, fmt.Sprintf(format, a...))
}

// ExitCode tells the exit status for the error from a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ran ranError
	if !errors.As(err, &ran) || errors.Is(err, domerr.ErrUsage) {
		return ExitBadRequest
	}
	if domerr.IsTransient(err) {
		return ExitTransient
	}
	return ExitPermanent
}
