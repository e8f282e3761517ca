package error

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
)

// ErrorWithExitCode attaches the exit code the process should
// terminate with to an error.
type ErrorWithExitCode struct {
	ExitCode uint
	Wrapped  error
}

func (e ErrorWithExitCode) Error() string {
	return e.Wrapped.Error()
}

func (e ErrorWithExitCode) Unwrap() error {
	return e.Wrapped
}

// WithExitCode attaches an exit code to the error. An existing exit
// code further down the chain is shadowed, not replaced.
func WithExitCode(exitCode uint, err error) error {
	if err == nil {
		return nil
	}
	var withCode ErrorWithExitCode
	if errors.As(err, &withCode) && withCode.ExitCode == exitCode {
		return err
	}
	return ErrorWithExitCode{
		ExitCode: exitCode,
		Wrapped:  err,
	}
}

// GetExitCode returns the outermost exit code attached to the error.
func GetExitCode(err error) (exitCode uint, hasExitCode bool) {
	var withCode ErrorWithExitCode
	if errors.As(err, &withCode) {
		return withCode.ExitCode, true
	}
	return 0, false
}

// ErrorWithStackTrace is an error that attaches a stack trace to its
// message.
type ErrorWithStackTrace struct {
	StackTrace string
	Wrapped    error
}

// Error returns this error's message.
func (s ErrorWithStackTrace) Error() string {
	return fmt.Sprintf("%v\n\n%s\nEND OF StackTraceError", s.Wrapped, s.StackTrace)
}

// Unwrap returns the underlying error of this error.
func (s ErrorWithStackTrace) Unwrap() error {
	return s.Wrapped
}

// WithStackTrace attaches a stack trace of the calling goroutine to
// the error, if it does not already contain one.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}
	if HasStackTrace(err) {
		return err
	}
	st := make([]byte, 1<<14)
	n := runtime.Stack(st, false)
	return ErrorWithStackTrace{
		Wrapped:    err,
		StackTrace: string(st[:n]),
	}
}

// HasStackTrace reports whether any error in the chain carries a
// stack trace.
func HasStackTrace(err error) bool {
	var st ErrorWithStackTrace
	return errors.As(err, &st)
}

var stackTraceRE = regexp.MustCompile(`\n\ngoroutine \d+ \[[^\]]*\]:\n(?s:.*?)\nEND OF StackTraceError`)

// Message returns the error message with all attached stack traces
// removed, including those of wrapped and joined errors.
func Message(err error) string {
	return stackTraceRE.ReplaceAllString(err.Error(), "")
}

func StackTracef(format string, a ...interface{}) error {
	return WithStackTrace(fmt.Errorf(format, a...))
}

// ErrPanic panics if an error is given.
func ErrPanic(err error) {
	if err != nil {
		panic(err)
	}
}
