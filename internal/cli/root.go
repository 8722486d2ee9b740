package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/matzehuels/boothplan/pkg/config"
	errs "github.com/matzehuels/boothplan/pkg/errors"
)

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInvalid  = 2
	ExitLocked   = 3
	ExitCanceled = 130 // shell convention for SIGINT
)

// ExitCode maps a command error to the process exit status: bad input
// exits 2, a busy floor plan 3, an interrupted run 130.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errs.IsValidation(err), errs.Is(err, errs.ErrCodeFileNotFound):
		return ExitInvalid
	case errs.Is(err, errs.ErrCodeLocked):
		return ExitLocked
	default:
		return ExitFailure
	}
}

// Describe renders err for the terminal. An invalid floor plan lists each
// problem on its own line.
func Describe(err error) string {
	var b strings.Builder
	b.WriteString(styleIconError.Render(iconError) + " ")
	problems := config.Problems(err)
	if !errs.Is(err, errs.ErrCodeInvalidConfig) || len(problems) < 2 {
		b.WriteString(err.Error())
		return b.String()
	}
	b.WriteString(errs.UserMessage(err) + ":")
	for _, p := range problems {
		b.WriteString("\n  " + StyleDim.Render("-") + " " + plain(p))
	}
	return b.String()
}

// plain joins the messages of a chain of coded errors without their codes.
func plain(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + plain(e.Cause)
}
