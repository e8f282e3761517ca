package profile

import (
	"errors"

	uerror "t0ast.cc/ffprofile/util/error"
)

// Error kinds. Every error returned by this package matches exactly
// one of them with errors.Is, except the error of an operation stopped
// by its context, which matches only context.Canceled or
// context.DeadlineExceeded.
var (
	// ErrDirectory means creating, copying into or removing the
	// profile directory failed.
	ErrDirectory = errors.New("profile directory error")
	// ErrIO means reading or writing the preference file failed.
	ErrIO = errors.New("preference file error")
	// ErrValidation means the caller passed malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound means a referenced path or profile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrManifest means an extension's identity could not be read.
	ErrManifest = errors.New("extension manifest unreadable")
)

// Error describes a failed operation. It unwraps to both its Kind and
// the underlying cause, so errors.Is(err, fs.ErrNotExist) keeps working
// next to errors.Is(err, ErrDirectory).
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + uerror.Message(e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, path string, err error) error {
	return uerror.WithStackTrace(&Error{Kind: kind, Op: op, Path: path, Err: err})
}
