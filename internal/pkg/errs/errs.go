package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

// Mark makes err match markErr under Is. Marking with a class sentinel also
// makes err match the sentinel's class.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	marked := cr.Mark(err, markErr)
	if c, ok := markErr.(*classError); ok {
		marked = cr.Mark(marked, c.class)
	}
	return marked
}

type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Is(target error) bool { return target == e.class }

// Class declares a sentinel belonging to one of the error classes. Sentinels of
// the same class stay distinct from each other.
func Class(msg string, class error) error {
	return &classError{msg: msg, class: class}
}

func Is(err, reference error) bool {
	return cr.Is(err, reference)
}

func As(err error, target any) bool {
	return cr.As(err, target)
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
