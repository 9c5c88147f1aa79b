package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/silkpdf/raster"
)

var (
	ErrValidation            = errors.New("invalid input")
	ErrContainer             = errors.New("failed to process file")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	errNoPages = errors.New("document has no pages")
)

// ValidationError is bad user input. Its message is meant to be shown to the
// user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ContainerError wraps a load, render, decode or serialize failure.
type ContainerError struct {
	Op   string
	File string
	Err  error
}

func (e *ContainerError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.File, e.Message())
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message())
}

// Message is the cause's own text, or a generic fallback when it has none.
func (e *ContainerError) Message() string {
	if e.Err == nil || e.Err.Error() == "" {
		return ErrContainer.Error()
	}
	return e.Err.Error()
}

func (e *ContainerError) Unwrap() []error { return []error{ErrContainer, e.Err} }

// DependencyUnavailableError reports an adapter that was never initialized.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() []error {
	return []error{ErrDependencyUnavailable, e.Err}
}

// classify wraps an adapter failure in the engine's error taxonomy.
func classify(op string, f *File, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ve *ValidationError
	var ce *ContainerError
	var de *DependencyUnavailableError
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &de) {
		return err
	}
	if errors.Is(err, raster.ErrNotInitialized) {
		return &DependencyUnavailableError{Dependency: "renderer", Err: err}
	}
	out := &ContainerError{Op: op, Err: err}
	if f != nil {
		out.File = f.Name
	}
	return out
}
