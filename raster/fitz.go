package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// probeDocument is a well-formed one-page document opened by Init.
var probeDocument = buildProbeDocument()

func buildProbeDocument() []byte {
	objects := []string{
		"<</Type/Catalog/Pages 2 0 R>>",
		"<</Type/Pages/Kids[3 0 R]/Count 1>>",
		"<</Type/Page/Parent 2 0 R/MediaBox[0 0 72 72]/Resources<<>>>>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func probe() error {
	doc, err := fitz.NewFromMemory(probeDocument)
	if err != nil {
		return err
	}
	defer doc.Close()
	if doc.NumPage() != 1 {
		return errors.New("probe document has no pages")
	}
	return nil
}

type fitzRenderer struct{}

// NewRenderer returns the MuPDF-backed renderer.
func NewRenderer() Renderer { return fitzRenderer{} }

func (fitzRenderer) Open(data []byte) (Document, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &RenderError{Page: -1, Err: err}
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
	// Structured text of the most recently queried page.
	stextPage int
	stext     string
}

func (d *fitzDocument) PageCount() int { return d.doc.NumPage() }

func (d *fitzDocument) check(index int) error {
	if index < 0 || index >= d.doc.NumPage() {
		return &RenderError{Page: index, Err: fmt.Errorf("page out of range [0,%d)", d.doc.NumPage())}
	}
	return nil
}

func (d *fitzDocument) structuredText(index int) (string, error) {
	if d.stext != "" && d.stextPage == index {
		return d.stext, nil
	}
	markup, err := d.doc.HTML(index, false)
	if err != nil {
		return "", &RenderError{Page: index, Err: err}
	}
	d.stextPage, d.stext = index, markup
	return markup, nil
}

// PageSize prefers the fractional size MuPDF declares in the structured
// text; Bound only reports whole points.
func (d *fitzDocument) PageSize(index int) (float64, float64, error) {
	if err := d.check(index); err != nil {
		return 0, 0, err
	}
	if markup, err := d.structuredText(index); err == nil {
		if size, ok := pageExtent(markup); ok {
			return size.Width, size.Height, nil
		}
	}
	b, err := d.doc.Bound(index)
	if err != nil {
		return 0, 0, &RenderError{Page: index, Err: err}
	}
	return float64(b.Dx()), float64(b.Dy()), nil
}

func (d *fitzDocument) RenderPage(index int, scale float64) (*image.RGBA, error) {
	if err := d.check(index); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, &RenderError{Page: index, Err: fmt.Errorf("invalid scale %v", scale)}
	}
	img, err := d.doc.ImageDPI(index, 72*scale)
	if err != nil {
		return nil, &RenderError{Page: index, Err: err}
	}
	return img, nil
}

func (d *fitzDocument) TextRuns(index int) ([]TextRun, error) {
	if err := d.check(index); err != nil {
		return nil, err
	}
	markup, err := d.structuredText(index)
	if err != nil {
		return nil, err
	}
	_, height, err := d.PageSize(index)
	if err != nil {
		return nil, err
	}
	runs, err := ParseStructuredText(markup, height)
	if err != nil {
		return nil, &RenderError{Page: index, Err: err}
	}
	return runs, nil
}

func (d *fitzDocument) Close() error { return d.doc.Close() }
