package decode

import (
	"errors"
	"fmt"
)

// Kind classifies why a single image could not be decoded.
type Kind string

const (
	// IoError covers failures to open or read the file.
	IoError Kind = "io_error"
	// SourceError covers failures to interpret the bytes as an image.
	SourceError Kind = "source_error"
)

// Error is the failure half of an Outcome.
type Error struct {
	Kind Kind
	Op   string // open, sniff, decode
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a decode Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

var (
	// ErrUnrecognizedFormat is wrapped when neither the extension nor the
	// leading bytes identify a supported format.
	ErrUnrecognizedFormat = errors.New("unrecognized image format")
	// ErrNotRegularFile is wrapped when the path names a directory or device.
	ErrNotRegularFile = errors.New("not a regular file")
)

func ioErr(op, path string, err error) *Error {
	return &Error{Kind: IoError, Op: op, Path: path, Err: err}
}

func sourceErr(op, path string, err error) *Error {
	return &Error{Kind: SourceError, Op: op, Path: path, Err: err}
}
