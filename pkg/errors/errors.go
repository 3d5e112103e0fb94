// Package errors marks errors with where they have passed.
//
// Each mark is rendered as `@ func "file" lN <- cause`, so that a message
// tells the way the error has come back:
//
//	err := xe.Wrap(tx.Commit(ctx))
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Located is an error marked with a location in source.
type Located struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *Located) File() string {
	return e.file
}

func (e *Located) Line() int {
	return e.line
}

func (e *Located) Func() string {
	return e.funcname
}

func (e *Located) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err)
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err)
}

func (e *Located) Unwrap() error {
	return e.err
}

// New is errors.New marked with the caller.
func New(text string) error {
	return mark("", errors.New(text))
}

// Wrap marks err with the caller. nil is returned as is.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return mark("", err)
}

// WrapWithNote is Wrap with a note, like the query which has failed.
func WrapWithNote(note string, err error) error {
	if err == nil {
		return nil
	}
	return mark(note, err)
}

// mark should be called from exported functions only.
func mark(note string, err error) error {
	ret := &Located{funcname: "(unknown func)", file: "?", line: -1, note: note, err: err}
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return ret
	}
	ret.file, ret.line = file, line
	if fn := runtime.FuncForPC(pc); fn != nil {
		ret.funcname = fn.Name()
	}
	return ret
}
