// Package errors annotates errors with structured log attributes and the source location where they were created.
//
// It is a drop-in replacement for the standard library errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
)

// annotatedError carries a message, optional slog annotations, and the program counter of its creation site.
type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates an error meant to be declared as a package level variable and compared with [Is].
//
// Sentinels don't record the source location because it would always point to the variable declaration.
func NewSentinel(text string) error {
	return stderrors.New(text)
}

// New creates an error that records the source location of the caller.
func New(text string) error {
	return &annotatedError{err: nil, msg: text, attrs: nil, pc: callerPC()}
}

// Wrap annotates err with msg and attrs. The attributes are logged with [SlogError].
//
// Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{err: err, msg: msg, attrs: attrs, pc: callerPC()}
}

// DecoratePanic converts a value recovered from a panic into an error pointing at the panicking line.
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
	} else {
		cause = stderrors.New(fmt.Sprint(recovered))
	}
	return &annotatedError{err: cause, msg: "panic", attrs: nil, pc: panicPC()}
}

// SlogError converts err into a slog group containing the message, all annotations found in the error chain, and
// the source location of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	var (
		annotations []any
		pc          uintptr
	)
	walk(err, func(e error) {
		ae, ok := e.(*annotatedError) //nolint:errorlint // walk already unwraps.
		if !ok {
			return
		}
		for _, attr := range ae.attrs {
			annotations = append(annotations, attr)
		}
		if ae.pc != 0 {
			pc = ae.pc
		}
	})

	group := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		group = append(group, slog.Group("annotations", annotations...))
	}
	if source := sourceOf(pc); source != "" {
		group = append(group, slog.String("source", source))
	}
	return slog.Group("error", group...)
}

// walk visits err and every error it wraps, depth first.
func walk(err error, visit func(error)) {
	if err == nil {
		return
	}
	visit(err)
	switch e := err.(type) { //nolint:errorlint // we are implementing the unwrapping.
	case interface{ Unwrap() error }:
		walk(e.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			walk(inner, visit)
		}
	}
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC, and the exported constructor.
	if runtime.Callers(3, pcs[:]) == 0 { //nolint:mnd // see above.
		return 0
	}
	return pcs[0]
}

// panicPC finds the frame that called panic by looking for the frame after runtime.gopanic.
func panicPC() uintptr {
	const depth = 32
	pcs := make([]uintptr, depth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic {
			return frame.PC + 1
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}
	return callerPC()
}

func sourceOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
