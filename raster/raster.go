// Package raster renders pages to pixels and extracts positioned text runs.
//
// The renderer is MuPDF through go-fitz. It must be initialized once per
// process with Init before documents can be opened.
package raster

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/wudi/silkpdf/geometry"
)

var (
	ErrNotInitialized = errors.New("raster: renderer not initialized")
	ErrRender         = errors.New("raster: render failed")
)

var (
	initMu      sync.Mutex
	initialized bool
)

// Init checks that the renderer can open a document. It is safe to call any
// number of times from any goroutine; only the first successful call probes.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return nil
	}
	if err := probe(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	initialized = true
	return nil
}

// Initialized reports whether Init has completed.
func Initialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}

// RenderError reports a page the renderer could not process. Page is
// 0-based; -1 means the document as a whole.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("render document: %v", e.Err)
	}
	return fmt.Sprintf("render page %d: %v", e.Page+1, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// Renderer opens documents for rendering.
type Renderer interface {
	Open(data []byte) (Document, error)
}

// Document is an open, renderable document. Callers must Close it.
type Document interface {
	PageCount() int
	// PageSize returns the page size in points.
	PageSize(index int) (width, height float64, err error)
	// RenderPage rasterizes a page at scale pixels per point.
	RenderPage(index int, scale float64) (*image.RGBA, error)
	TextRuns(index int) ([]TextRun, error)
	Close() error
}

// TextRun is a line of text placed by its transform in container space.
type TextRun struct {
	Text      string
	Transform geometry.Matrix
}

func (r TextRun) X() float64        { return r.Transform[4] }
func (r TextRun) Y() float64        { return r.Transform[5] }
func (r TextRun) FontSize() float64 { return r.Transform.FontSize() }
