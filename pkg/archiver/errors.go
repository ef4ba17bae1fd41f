package archiver

import "fmt"

// Kind classifies an archive failure. Kinds are usable as errors.Is targets.
type Kind string

func (k Kind) Error() string {
	return string(k)
}

const (
	// SourceNotFound means the source path does not exist or is not a directory.
	SourceNotFound Kind = "source not found"
	// SourceUnreadable means a file or directory under the source could not be read.
	SourceUnreadable Kind = "source unreadable"
	// OutputUnwritable means the output could not be created or written.
	OutputUnwritable Kind = "output unwritable"
	// EncodingFailure means the zip encoder failed for a reason other than I/O.
	EncodingFailure Kind = "encoding failure"
)

// Error is returned by Archive for every failure.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Path == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}
