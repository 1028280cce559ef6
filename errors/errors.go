// This module implements errors which carry a message, an optional wrapped
// error, and the stack at the point of creation.
//
// NOTE: This package intentionally mirrors the standard "errors" module.
// All instbench code should use this.
package errors

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// This interface exposes additional information about the error.
type TracedError interface {
	// This returns the error message without the stack trace.
	GetMessage() string

	// This returns the wrapped error.  This returns nil if this does not wrap
	// another error.
	GetInner() error

	// Implements the built-in error interface.
	Error() string

	// Same as GetInner; lets the standard errors.Is / errors.As walk the
	// chain.
	Unwrap() error

	// Returns stack addresses as a string that can be supplied to
	// addr2line to get the actual stack trace.  Does not resolve frames.
	StackAddrs() string

	// Returns resolved stack frames.
	StackFrames() []StackFrame

	// Returns string representation of stack frames, one function per
	// frame followed by an indented file:line.
	GetStack() string
}

// Represents a single stack frame.
type StackFrame struct {
	PC         uintptr
	Func       *runtime.Func
	FuncName   string
	File       string
	LineNumber int
}

type tracedError struct {
	msg   string
	inner error

	stack       []uintptr
	framesOnce  sync.Once
	stackFrames []StackFrame
}

// This returns the error string without stack trace information.
func GetMessage(err interface{}) string {
	switch e := err.(type) {
	case TracedError:
		return extractFullErrorMessage(e, false)
	case runtime.Error:
		return runtime.Error(e).Error()
	case error:
		return e.Error()
	default:
		return "Passed a non-error to GetMessage"
	}
}

// This returns a string with all available error information, including inner
// errors that are wrapped by this errors.
func (e *tracedError) Error() string {
	return extractFullErrorMessage(e, true)
}

// Implements TracedError interface.
func (e *tracedError) GetMessage() string {
	return e.msg
}

// Implements TracedError interface.
func (e *tracedError) GetInner() error {
	return e.inner
}

// Implements TracedError interface.
func (e *tracedError) Unwrap() error {
	return e.inner
}

// Implements TracedError interface.
func (e *tracedError) StackAddrs() string {
	if len(e.stack) == 0 {
		return ""
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(e.stack)*8))
	for _, pc := range e.stack {
		fmt.Fprintf(buf, "0x%x ", pc)
	}
	bufBytes := buf.Bytes()
	return string(bufBytes[:len(bufBytes)-1])
}

// Implements TracedError interface.  Inlined calls get their own frame.
func (e *tracedError) StackFrames() []StackFrame {
	e.framesOnce.Do(func() {
		frames := runtime.CallersFrames(e.stack)
		for {
			f, more := frames.Next()
			if f.PC != 0 || f.Function != "" {
				e.stackFrames = append(e.stackFrames, StackFrame{
					PC:         f.PC,
					Func:       f.Func,
					FuncName:   f.Function,
					File:       f.File,
					LineNumber: f.Line,
				})
			}
			if !more {
				break
			}
		}
	})
	return e.stackFrames
}

// Implements TracedError interface.
func (e *tracedError) GetStack() string {
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	for _, frame := range e.StackFrames() {
		_, _ = buf.WriteString(frame.FuncName)
		_, _ = buf.WriteString("\n")
		fmt.Fprintf(buf, "\t%s:%d +0x%x\n",
			frame.File, frame.LineNumber, frame.PC)
	}
	return buf.String()
}

// This returns a new error initialized with the given message and the
// current stack trace.
func New(msg string) TracedError {
	return newTraced(nil, msg)
}

// Same as New, but with fmt.Printf-style parameters.
func Newf(format string, args ...interface{}) TracedError {
	return newTraced(nil, fmt.Sprintf(format, args...))
}

// Wraps another error in a new TracedError.
func Wrap(err error, msg string) TracedError {
	return newTraced(err, msg)
}

// Same as Wrap, but with fmt.Printf-style parameters.
func Wrapf(err error, format string, args ...interface{}) TracedError {
	return newTraced(err, fmt.Sprintf(format, args...))
}

// Must be called directly by the exported constructors; the skip count
// below drops runtime.Callers, this function and the constructor.
func newTraced(err error, msg string) *tracedError {
	stack := make([]uintptr, 200)
	stackLength := runtime.Callers(3, stack)
	return &tracedError{
		msg:   msg,
		stack: stack[:stackLength],
		inner: err,
	}
}

// Constructs the full message of e by walking its inner errors.  When
// includeStack is set, the stack of the deepest TracedError is appended.
func extractFullErrorMessage(e TracedError, includeStack bool) string {
	var ok bool
	var lastTraced TracedError
	errMsg := bytes.NewBuffer(make([]byte, 0, 1024))

	traced := e
	for {
		lastTraced = traced
		errMsg.WriteString(traced.GetMessage())

		innerErr := traced.GetInner()
		if innerErr == nil {
			break
		}
		traced, ok = innerErr.(TracedError)
		if !ok {
			errMsg.WriteString("\n")
			errMsg.WriteString(innerErr.Error())
			break
		}
		errMsg.WriteString("\n")
	}
	if includeStack {
		errMsg.WriteString("\nORIGINAL STACK TRACE:\n")
		errMsg.WriteString(lastTraced.GetStack())
	}
	return errMsg.String()
}

// Return a wrapped error or nil if there is none.
func unwrapError(ierr error) (nerr error) {
	if traced, ok := ierr.(TracedError); ok {
		return traced.GetInner()
	}
	if u, ok := ierr.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}

	// At this point, if anything goes wrong, just return nil.
	defer func() {
		if x := recover(); x != nil {
			nerr = nil
		}
	}()

	// Go system errors (os.PathError, net.OpError, ...) keep the cause in
	// an Err field.  All of these panic on error.
	errV := reflect.ValueOf(ierr).Elem()
	errV = errV.FieldByName("Err")
	return errV.Interface().(error)
}

// Keep peeling away layers or context until a primitive error is revealed.
func RootError(ierr error) (nerr error) {
	nerr = ierr
	for i := 0; i < 20; i++ {
		terr := unwrapError(nerr)
		if terr == nil {
			return nerr
		}
		nerr = terr
	}
	return fmt.Errorf("too many iterations: %T", nerr)
}

// Perform a deep check, unwrapping errors as much as possible and
// comparing the string version of the error.
func IsError(err, errConst error) bool {
	if err == errConst {
		return true
	}
	// Must rely on string equivalence, otherwise a value is not equal
	// to its pointer value.
	rootErrStr := ""
	rootErr := RootError(err)
	if rootErr != nil {
		rootErrStr = rootErr.Error()
	}
	errConstStr := ""
	if errConst != nil {
		errConstStr = errConst.Error()
	}
	return rootErrStr == errConstStr
}
