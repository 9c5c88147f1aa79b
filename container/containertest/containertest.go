// Package containertest builds small documents and images for tests.
package containertest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
)

// Document returns a PDF with one page per size, each labelled with its
// 1-based page number.
func Document(tb testing.TB, sizes ...geometry.Size) []byte {
	tb.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(false)
	for i, s := range sizes {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: s.Width, Ht: s.Height})
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(20, 40, fmt.Sprintf("page %d", i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		tb.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// Compact returns the Document fixture rewritten by pdfcpu with a
// cross-reference stream and object streams.
func Compact(tb testing.TB, sizes ...geometry.Size) []byte {
	tb.Helper()
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(Document(tb, sizes...)), &buf, conf); err != nil {
		tb.Fatalf("build compact fixture: %v", err)
	}
	data := buf.Bytes()
	if !bytes.Contains(data, []byte("/ObjStm")) || !bytes.Contains(data, []byte("/XRef")) {
		tb.Fatalf("compact fixture lacks object or cross-reference streams")
	}
	return data
}

// Pages returns a document of n A4 portrait pages.
func Pages(tb testing.TB, n int) []byte {
	tb.Helper()
	sizes := make([]geometry.Size, n)
	for i := range sizes {
		sizes[i] = geometry.Size{Width: geometry.A4Width, Height: geometry.A4Height}
	}
	return Document(tb, sizes...)
}

// Gradient returns a w x h test image.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	data, err := imagecodec.EncodePNG(Gradient(w, h))
	if err != nil {
		tb.Fatalf("png fixture: %v", err)
	}
	return data
}

func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	data, err := imagecodec.EncodeJPEG(Gradient(w, h), 90)
	if err != nil {
		tb.Fatalf("jpeg fixture: %v", err)
	}
	return data
}
