// Package errors provides centralized error handling for the playback engine.
// Errors are wrapped with a component, a category and arbitrary context so the
// control layer can report "could not play track" style failures upward with
// enough detail for diagnostics, without format-specific error strings leaking
// across package boundaries.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
)

// ErrorCategory groups errors for reporting and filtering.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryFileIO       ErrorCategory = "file-io"
	CategoryDecode       ErrorCategory = "audio-decode"
	CategoryRender       ErrorCategory = "audio-render"
	CategoryDevice       ErrorCategory = "output-device"
	CategoryScopedAccess ErrorCategory = "scoped-access"
	CategoryDatabase     ErrorCategory = "database"
	CategoryConfig       ErrorCategory = "configuration"
	CategoryState        ErrorCategory = "state"
	CategoryCancellation ErrorCategory = "cancellation"
	CategoryGeneric      ErrorCategory = "generic"
)

// Component names used across the engine.
const (
	ComponentScope     = "scope"
	ComponentDecode    = "decode"
	ComponentRender    = "render"
	ComponentPlayback  = "playback"
	ComponentDatastore = "datastore"
	ComponentConf      = "conf"
	ComponentUnknown   = "unknown"
)

// EnhancedError wraps an error with component, category and context metadata.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	component string
}

// Error implements the error interface.
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap exposes the wrapped error to errors.Is/As.
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches either the wrapped error or another EnhancedError of the
// same category.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component the error originated in.
func (ee *EnhancedError) GetComponent() string {
	return ee.component
}

// GetCategory returns the error category as a string.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

// ErrorBuilder accumulates metadata before producing an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an enhanced error around err. A nil err produces a
// generic error whose message comes from the context entries.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts building an enhanced error from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: fmt.Errorf(format, args...)}
}

// Component records the component the error originated in.
func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

// Category records the error category.
func (b *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	b.category = category
	return b
}

// Context attaches a key/value pair to the error.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build produces the final EnhancedError.
func (b *ErrorBuilder) Build() error {
	err := b.err
	if err == nil {
		if msg, ok := b.context["error"].(string); ok {
			err = stderrors.New(msg)
		} else {
			err = stderrors.New("unknown error")
		}
	}

	category := b.category
	if category == "" {
		category = CategoryGeneric
	}

	component := b.component
	if component == "" {
		component = detectComponent()
	}

	return &EnhancedError{
		Err:       err,
		Category:  category,
		Context:   b.context,
		Timestamp: time.Now(),
		component: component,
	}
}

// detectComponent walks the call stack looking for an internal package of
// this module and maps it to a component name.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if name := componentFromFunc(frame.Function); name != "" {
			return name
		}
		if !more {
			break
		}
	}
	return ComponentUnknown
}

func componentFromFunc(fn string) string {
	const marker = "/internal/"
	idx := strings.Index(fn, marker)
	if idx < 0 {
		return ""
	}
	rest := fn[idx+len(marker):]
	pkg, _, ok := strings.Cut(rest, ".")
	if !ok {
		return ""
	}
	// Nested packages report their top-level component.
	if top, _, found := strings.Cut(pkg, "/"); found {
		return top
	}
	return pkg
}

// Re-exports so callers need only this package.

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// NewStd creates a plain standard library error.
func NewStd(text string) error {
	return stderrors.New(text)
}
