// Package container adapts external PDF libraries to the page-tree model the
// operation engine works with: load bytes into a Handle, copy pages between
// handles, draw overlays on pages and serialize back to bytes.
//
// Loading and validation go through pdfcpu. A handle that still holds exactly
// the pages of one loaded document, unmodified and in order, is re-encoded
// through pdfcpu's parsed model; every other handle is composed with fpdf,
// importing source pages as templates via gofpdi and drawing overlays on top.
package container

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
)

// Loader creates handles.
type Loader interface {
	Load(data []byte) (Handle, error)
	New() Handle
}

// Handle is an in-memory, mutable page container.
type Handle interface {
	PageCount() int
	Page(index int) (*Page, error)
	Pages() []*Page
	// CopyPages returns new pages owned by this handle duplicating src's pages
	// at indices, in the given order. Indices may repeat. The pages are not
	// part of the handle until passed to AddPage.
	CopyPages(src Handle, indices []int) ([]*Page, error)
	AddPage(page *Page) error
	AddBlankPage(width, height float64) *Page
	Serialize() ([]byte, error)
}

var (
	ErrLoad      = errors.New("container load failed")
	ErrEncrypted = errors.New("encrypted documents are not supported")
	ErrSerialize = errors.New("container serialize failed")
)

// LoadError reports bytes that are not a well-formed, supported container.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load container: %v", e.Err) }
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// SerializeError reports a failure while encoding a handle.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string { return fmt.Sprintf("serialize container: %v", e.Err) }
func (e *SerializeError) Unwrap() []error {
	return []error{ErrSerialize, e.Err}
}

// Image is a raster ready to embed in a page.
type Image struct {
	Data   []byte
	Format imagecodec.Format
	Width  int
	Height int
}

// NewImage wraps a decoded raster. PNG data is re-encoded as 8-bit
// non-interlaced RGBA, the only PNG flavour the page writer embeds.
func NewImage(d imagecodec.Decoded) (*Image, error) {
	img := &Image{Data: d.Data, Format: d.Format, Width: d.Width, Height: d.Height}
	if d.Format == imagecodec.PNG && d.Image != nil {
		data, err := imagecodec.EncodePNG(imagecodec.ToNRGBA(d.Image))
		if err != nil {
			return nil, err
		}
		img.Data = data
	}
	return img, nil
}

// AspectRatio is height over width.
func (i *Image) AspectRatio() float64 {
	if i.Width == 0 {
		return 0
	}
	return float64(i.Height) / float64(i.Width)
}

type Color struct{ R, G, B float64 }

var (
	Black     = Color{}
	LightGray = Color{R: 0.8, G: 0.8, B: 0.8}
)

// TextOptions controls DrawText. Size defaults to 12 and Opacity to 1.
// Rotate is in degrees, counter-clockwise around the text origin.
type TextOptions struct {
	Size    float64
	Color   Color
	Opacity float64
	Rotate  float64
}

// Overlay is content drawn on top of a page's own content.
type Overlay interface{ isOverlay() }

// ImageOverlay places an image with its bottom-left corner at (X, Y).
type ImageOverlay struct {
	Image         *Image
	X, Y          float64
	Width, Height float64
}

// TextOverlay places a text baseline origin at (X, Y).
type TextOverlay struct {
	Text    string
	X, Y    float64
	Options TextOptions
}

func (ImageOverlay) isOverlay() {}
func (TextOverlay) isOverlay()  {}

// source is one loaded document shared by every page copied from it. data
// is the input as given; rs reads the classic-xref form the importer needs.
type source struct {
	data  []byte
	rs    io.ReadSeeker
	sizes []geometry.Size
}

// Page is a page entity owned by exactly one handle. Coordinates are points
// with the origin at the bottom-left corner.
type Page struct {
	owner    *handle
	added    bool
	width    float64
	height   float64
	src      *source
	srcIndex int
	overlays []Overlay
}

func (p *Page) Width() float64      { return p.width }
func (p *Page) Height() float64     { return p.height }
func (p *Page) Size() geometry.Size { return geometry.Size{Width: p.width, Height: p.height} }
func (p *Page) Overlays() []Overlay { return append([]Overlay(nil), p.overlays...) }
func (p *Page) SourceIndex() int    { return p.srcIndex }
func (p *Page) Blank() bool         { return p.src == nil }

// DrawImage draws img into the rectangle whose bottom-left corner is (x, y).
func (p *Page) DrawImage(img *Image, x, y, width, height float64) *Page {
	p.overlays = append(p.overlays, ImageOverlay{Image: img, X: x, Y: y, Width: width, Height: height})
	return p
}

// DrawText draws text with its baseline origin at (x, y).
func (p *Page) DrawText(text string, x, y float64, opts TextOptions) *Page {
	if opts.Size <= 0 {
		opts.Size = 12
	}
	if opts.Opacity <= 0 || opts.Opacity > 1 {
		opts.Opacity = 1
	}
	p.overlays = append(p.overlays, TextOverlay{Text: text, X: x, Y: y, Options: opts})
	return p
}

func (p *Page) clone(owner *handle) *Page {
	return &Page{
		owner:    owner,
		width:    p.width,
		height:   p.height,
		src:      p.src,
		srcIndex: p.srcIndex,
		overlays: append([]Overlay(nil), p.overlays...),
	}
}

// Options configures the loader's writer.
type Options struct {
	// Creator is recorded in the document info of composed output.
	Creator string
	// CreationDate pins the info dates of composed output. When zero, Clock
	// is read at serialization, falling back to time.Now.
	CreationDate time.Time
	Clock        func() time.Time
	// Compress enables stream compression in composed output.
	Compress bool
}

func DefaultOptions() Options {
	return Options{Creator: "silkpdf", Compress: true}
}
