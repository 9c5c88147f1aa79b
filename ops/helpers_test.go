package ops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/raster"
)

var fixedNow = time.UnixMilli(1700000000000)

// recordingLoader remembers every handle it hands out so tests can inspect
// overlays before serialization flattens them.
type recordingLoader struct {
	container.Loader
	loaded  []container.Handle
	created []container.Handle
}

func newRecordingLoader() *recordingLoader {
	return &recordingLoader{Loader: container.NewLoader(container.DefaultOptions())}
}

func (l *recordingLoader) Load(data []byte) (container.Handle, error) {
	h, err := l.Loader.Load(data)
	if err == nil {
		l.loaded = append(l.loaded, h)
	}
	return h, err
}

func (l *recordingLoader) New() container.Handle {
	h := l.Loader.New()
	l.created = append(l.created, h)
	return h
}

type fakeRenderer struct {
	sizes    []geometry.Size
	runs     map[int][]raster.TextRun
	failPage int
	scales   []float64
	rendered []int
	closed   int
}

func newFakeRenderer(sizes ...geometry.Size) *fakeRenderer {
	return &fakeRenderer{sizes: sizes, runs: map[int][]raster.TextRun{}, failPage: -1}
}

func (r *fakeRenderer) Open(data []byte) (raster.Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, &raster.RenderError{Page: -1, Err: errors.New("not a document")}
	}
	return &fakeDocument{r: r}, nil
}

type fakeDocument struct{ r *fakeRenderer }

func (d *fakeDocument) PageCount() int { return len(d.r.sizes) }

func (d *fakeDocument) PageSize(i int) (float64, float64, error) {
	if i < 0 || i >= len(d.r.sizes) {
		return 0, 0, &raster.RenderError{Page: i, Err: errors.New("out of range")}
	}
	return d.r.sizes[i].Width, d.r.sizes[i].Height, nil
}

func (d *fakeDocument) RenderPage(i int, scale float64) (*image.RGBA, error) {
	if i == d.r.failPage {
		return nil, &raster.RenderError{Page: i, Err: errors.New("broken content stream")}
	}
	w, h, err := d.PageSize(i)
	if err != nil {
		return nil, err
	}
	d.r.scales = append(d.r.scales, scale)
	d.r.rendered = append(d.r.rendered, i)
	img := image.NewRGBA(image.Rect(0, 0, int(math.Round(w*scale)), int(math.Round(h*scale))))
	for y := 0; y < img.Rect.Dy(); y += 7 {
		for x := 0; x < img.Rect.Dx(); x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img, nil
}

func (d *fakeDocument) TextRuns(i int) ([]raster.TextRun, error) { return d.r.runs[i], nil }

func (d *fakeDocument) Close() error {
	d.r.closed++
	return nil
}

type testEngine struct {
	*Engine
	loader   *recordingLoader
	renderer *fakeRenderer
}

func newTestEngine(t *testing.T, sizes ...geometry.Size) testEngine {
	t.Helper()
	return newTestEngineWithConfig(t, DefaultConfig(), sizes...)
}

func newTestEngineWithConfig(t *testing.T, cfg Config, sizes ...geometry.Size) testEngine {
	t.Helper()
	loader := newRecordingLoader()
	renderer := newFakeRenderer(sizes...)
	e, err := NewEngineBuilder(cfg).
		WithLoader(loader).
		WithRenderer(renderer).
		WithClock(func() time.Time { return fixedNow }).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return testEngine{Engine: e, loader: loader, renderer: renderer}
}

func pdfFile(name string, data []byte) File {
	return File{Name: name, MIMEType: MIMEPDF, Data: data}
}

// pageSizes reloads a serialized document and lists its page sizes.
func pageSizes(t *testing.T, data []byte) []geometry.Size {
	t.Helper()
	h, err := container.NewLoader(container.DefaultOptions()).Load(data)
	if err != nil {
		t.Fatalf("reload output: %v", err)
	}
	var out []geometry.Size
	for _, p := range h.Pages() {
		out = append(out, geometry.Size{Width: math.Round(p.Width()), Height: math.Round(p.Height())})
	}
	return out
}

func sameSizes(a, b []geometry.Size) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Width-b[i].Width) > 0.5 || math.Abs(a[i].Height-b[i].Height) > 0.5 {
			return false
		}
	}
	return true
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }
