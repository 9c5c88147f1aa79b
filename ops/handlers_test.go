package ops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/container/containertest"
	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/raster"
)

var (
	sizeA = geometry.Size{Width: 300, Height: 400}
	sizeB = geometry.Size{Width: 400, Height: 300}
	sizeC = geometry.Size{Width: 200, Height: 200}
	sizeD = geometry.Size{Width: 612, Height: 792}
)

func process(t *testing.T, e testEngine, kind Kind, files []File, opts Options) Artifact {
	t.Helper()
	art, err := e.Process(context.Background(), kind, files, opts)
	if err != nil {
		t.Fatalf("%s: %v", kind, err)
	}
	return art
}

func TestMergeKeepsFileAndPageOrder(t *testing.T) {
	e := newTestEngine(t)
	a := pdfFile("a.pdf", containertest.Document(t, sizeA, sizeB))
	b := pdfFile("b.pdf", containertest.Document(t, sizeC))
	art := process(t, e, KindMerge, []File{a, b}, MergeOptions{})
	if art.Name != "merged_silk_1700000000000.pdf" || art.MIMEType != MIMEPDF {
		t.Fatalf("artifact = %s (%s)", art.Name, art.MIMEType)
	}
	if got := pageSizes(t, art.Data); !sameSizes(got, []geometry.Size{sizeA, sizeB, sizeC}) {
		t.Fatalf("pages = %v", got)
	}
}

func TestMergeIsAssociative(t *testing.T) {
	e := newTestEngine(t)
	a := pdfFile("a.pdf", containertest.Document(t, sizeA, sizeB))
	b := pdfFile("b.pdf", containertest.Document(t, sizeC))
	c := pdfFile("c.pdf", containertest.Document(t, sizeD, sizeA))

	ab := process(t, e, KindMerge, []File{a, b}, nil)
	abThenC := process(t, e, KindMerge, []File{pdfFile("ab.pdf", ab.Data), c}, nil)
	abc := process(t, e, KindMerge, []File{a, b, c}, nil)

	left, right := pageSizes(t, abThenC.Data), pageSizes(t, abc.Data)
	if !sameSizes(left, right) || len(left) != 5 {
		t.Fatalf("(a+b)+c = %v, a+b+c = %v", left, right)
	}
}

func TestSplitRange(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("src.pdf", containertest.Document(t, sizeA, sizeB, sizeC, sizeD))
	art := process(t, e, KindSplit, []File{src}, SplitOptions{Mode: SplitRange, Range: "4, 2-3"})
	if !strings.HasPrefix(art.Name, "split_range_silk_") {
		t.Fatalf("name = %s", art.Name)
	}
	if got := pageSizes(t, art.Data); !sameSizes(got, []geometry.Size{sizeB, sizeC, sizeD}) {
		t.Fatalf("pages = %v", got)
	}
}

func TestSplitRangeRejectsEmptySelection(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("src.pdf", containertest.Pages(t, 3))
	for _, r := range []string{"", "abc", ",;"} {
		_, err := e.Process(context.Background(), KindSplit, []File{src}, SplitOptions{Mode: SplitRange, Range: r})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Error() != "invalid page range or no pages selected" {
			t.Fatalf("range %q: err = %v", r, err)
		}
	}
}

func TestSplitThenMergeReconstructs(t *testing.T) {
	e := newTestEngine(t)
	original := []geometry.Size{sizeA, sizeB, sizeC, sizeD, sizeA}
	src := pdfFile("src.pdf", containertest.Document(t, original...))
	var parts []File
	for i, r := range []string{"1-2", "3", "4-5"} {
		art := process(t, e, KindSplit, []File{src}, SplitOptions{Mode: SplitRange, Range: r})
		parts = append(parts, pdfFile(fmt.Sprintf("part%d.pdf", i), art.Data))
	}
	merged := process(t, e, KindMerge, parts, nil)
	if got := pageSizes(t, merged.Data); !sameSizes(got, original) {
		t.Fatalf("reconstructed = %v, want %v", got, original)
	}
}

func TestSplitAllPacksOneEntryPerPage(t *testing.T) {
	e := newTestEngine(t)
	sizes := []geometry.Size{sizeA, sizeB, sizeC, sizeD}
	src := pdfFile("src.pdf", containertest.Document(t, sizes...))
	art := process(t, e, KindSplit, []File{src}, nil)
	if art.MIMEType != MIMEZip || art.Name != "split_all_pages_silk_1700000000000.zip" {
		t.Fatalf("artifact = %s (%s)", art.Name, art.MIMEType)
	}
	zr, err := zip.NewReader(bytes.NewReader(art.Data), int64(len(art.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != len(sizes) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(sizes))
	}
	for i, f := range zr.File {
		if want := fmt.Sprintf("page_%03d.pdf", i+1); f.Name != want {
			t.Fatalf("entry %d = %s, want %s", i, f.Name, want)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if got := pageSizes(t, data); !sameSizes(got, sizes[i:i+1]) {
			t.Fatalf("entry %s pages = %v", f.Name, got)
		}
	}
}

func TestSplitEntryName(t *testing.T) {
	tests := []struct {
		i, n int
		want string
	}{
		{0, 1, "page_001.pdf"},
		{9, 12, "page_010.pdf"},
		{998, 999, "page_999.pdf"},
		{41, 1200, "page_0042.pdf"},
		{0, 10000, "page_00001.pdf"},
	}
	for _, tt := range tests {
		if got := splitEntryName(tt.i, tt.n); got != tt.want {
			t.Fatalf("splitEntryName(%d, %d) = %s, want %s", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestCompressStandard(t *testing.T) {
	e := newTestEngine(t)
	in := containertest.Pages(t, 3)
	art := process(t, e, KindCompress, []File{pdfFile("in.pdf", in)}, CompressOptions{Level: CompressStandard})
	if !strings.HasPrefix(art.Name, "compressed_silk_") {
		t.Fatalf("name = %s", art.Name)
	}
	if len(pageSizes(t, art.Data)) != 3 {
		t.Fatalf("page count changed")
	}
	if len(art.Data) > len(in)+2048 {
		t.Fatalf("standard compression grew %d -> %d bytes", len(in), len(art.Data))
	}
	if len(e.renderer.rendered) != 0 {
		t.Fatalf("standard compression must not rasterize")
	}
}

func TestOperationsAcceptCompressedOutput(t *testing.T) {
	e := newTestEngine(t)
	sizes := []geometry.Size{sizeA, sizeB, sizeC}
	compressed := process(t, e, KindCompress, []File{pdfFile("in.pdf", containertest.Document(t, sizes...))}, nil)
	src := pdfFile("compressed.pdf", compressed.Data)

	merged := process(t, e, KindMerge, []File{src, src}, nil)
	if got := pageSizes(t, merged.Data); !sameSizes(got, append(append([]geometry.Size{}, sizes...), sizes...)) {
		t.Fatalf("merged = %v", got)
	}

	picked := process(t, e, KindSplit, []File{src}, SplitOptions{Mode: SplitRange, Range: "3,1"})
	if got := pageSizes(t, picked.Data); !sameSizes(got, []geometry.Size{sizeA, sizeC}) {
		t.Fatalf("split range = %v", got)
	}

	archive := process(t, e, KindSplit, []File{src}, SplitOptions{Mode: SplitAll})
	zr, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var parts []File
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		parts = append(parts, pdfFile(f.Name, data))
	}
	rebuilt := process(t, e, KindMerge, parts, nil)
	if got := pageSizes(t, rebuilt.Data); !sameSizes(got, sizes) {
		t.Fatalf("rebuilt = %v, want %v", got, sizes)
	}

	marked := process(t, e, KindWatermark, []File{src}, WatermarkOptions{Text: "DRAFT"})
	if got := pageSizes(t, marked.Data); !sameSizes(got, sizes) {
		t.Fatalf("watermarked = %v", got)
	}
	signed := process(t, e, KindSign, []File{src}, SignOptions{Signature: containertest.PNG(t, 80, 40)})
	if got := pageSizes(t, signed.Data); !sameSizes(got, sizes) {
		t.Fatalf("signed = %v", got)
	}
}

func TestCompressRasterLevels(t *testing.T) {
	sizes := []geometry.Size{sizeA, sizeD, sizeB}
	for _, tt := range []struct {
		level CompressLevel
		scale float64
	}{
		{CompressStrong, 1.5},
		{CompressExtreme, 1.0},
	} {
		e := newTestEngine(t, sizes...)
		src := pdfFile("in.pdf", containertest.Document(t, sizes...))
		art := process(t, e, KindCompress, []File{src}, CompressOptions{Level: tt.level})
		if got := pageSizes(t, art.Data); !sameSizes(got, sizes) {
			t.Fatalf("%s: pages = %v, want %v", tt.level, got, sizes)
		}
		for _, s := range e.renderer.scales {
			if s != tt.scale {
				t.Fatalf("%s: rendered at %v, want %v", tt.level, s, tt.scale)
			}
		}
		if fmt.Sprint(e.renderer.rendered) != "[0 1 2]" || e.renderer.closed != 1 {
			t.Fatalf("%s: rendered %v closed %d", tt.level, e.renderer.rendered, e.renderer.closed)
		}

		dst := e.loader.created[len(e.loader.created)-1]
		for i, p := range dst.Pages() {
			o := p.Overlays()[0].(container.ImageOverlay)
			if o.X != 0 || o.Y != 0 || o.Width != sizes[i].Width || o.Height != sizes[i].Height {
				t.Fatalf("%s: page %d image = %+v", tt.level, i, o)
			}
			if o.Image.Format != imagecodec.JPEG {
				t.Fatalf("%s: page %d embedded as %s", tt.level, i, o.Image.Format)
			}
		}
	}
}

func TestCompressRejectsUnknownLevel(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Process(context.Background(), KindCompress, []File{pdfFile("a", containertest.Pages(t, 1))}, CompressOptions{Level: "ultra"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderFailureAbortsOperation(t *testing.T) {
	sizes := []geometry.Size{sizeA, sizeA, sizeA}
	e := newTestEngine(t, sizes...)
	e.renderer.failPage = 1
	_, err := e.Process(context.Background(), KindCompress, []File{pdfFile("a", containertest.Document(t, sizes...))}, CompressOptions{Level: CompressExtreme})
	var re *raster.RenderError
	if !errors.Is(err, ErrContainer) || !errors.As(err, &re) || re.Page != 1 {
		t.Fatalf("err = %v", err)
	}
}

func TestPlaceImageCentersInsideMargins(t *testing.T) {
	dec, err := imagecodec.Decode(containertest.PNG(t, 1000, 1000), imagecodec.PNG)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	img, err := container.NewImage(dec)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	dst := container.NewLoader(container.DefaultOptions()).New()
	placeImage(dst, img, ImagesOptions{Orientation: geometry.Landscape, Margin: geometry.MarginSmall})

	page, _ := dst.Page(0)
	if !near(page.Width(), geometry.A4Height) || !near(page.Height(), geometry.A4Width) {
		t.Fatalf("page = %vx%v", page.Width(), page.Height())
	}
	o := page.Overlays()[0].(container.ImageOverlay)
	if !near(o.Width, o.Height) {
		t.Fatalf("aspect lost: %vx%v", o.Width, o.Height)
	}
	if !near(o.X+o.Width/2, page.Width()/2) || !near(o.Y+o.Height/2, page.Height()/2) {
		t.Fatalf("not centered: %+v", o)
	}
	const m = 20
	if o.X < m-1e-6 || o.Y < m-1e-6 || o.X+o.Width > page.Width()-m+1e-6 || o.Y+o.Height > page.Height()-m+1e-6 {
		t.Fatalf("image crosses margin: %+v", o)
	}
	if !near(o.Height, geometry.A4Width-2*m) {
		t.Fatalf("square image should fill the short side: %v", o.Height)
	}
}

func TestImagesToDocument(t *testing.T) {
	e := newTestEngine(t)
	files := []File{
		// JPEG bytes behind a PNG name exercise the decode cascade.
		{Name: "photo.png", Data: containertest.JPEG(t, 64, 48)},
		{Name: "scan.png", MIMEType: "image/png", Data: containertest.PNG(t, 30, 90)},
	}
	art := process(t, e, KindImages, files, ImagesOptions{Orientation: geometry.Landscape, Margin: geometry.MarginBig})
	if !strings.HasPrefix(art.Name, "images_silk_") {
		t.Fatalf("name = %s", art.Name)
	}
	want := []geometry.Size{{Width: geometry.A4Height, Height: geometry.A4Width}, {Width: geometry.A4Height, Height: geometry.A4Width}}
	if got := pageSizes(t, art.Data); !sameSizes(got, want) {
		t.Fatalf("pages = %v", got)
	}
	dst := e.loader.created[0]
	if f := dst.Pages()[0].Overlays()[0].(container.ImageOverlay).Image.Format; f != imagecodec.JPEG {
		t.Fatalf("first image decoded as %s", f)
	}
}

func TestImagesRejectsUndecodable(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Process(context.Background(), KindImages, []File{{Name: "x.jpg", Data: []byte("nope")}}, nil)
	var de *imagecodec.DecodeError
	if !errors.Is(err, ErrContainer) || !errors.As(err, &de) || len(de.Attempts) != 3 {
		t.Fatalf("err = %v", err)
	}
	if _, err := e.Process(context.Background(), KindImages, []File{{Name: "x.png", Data: containertest.PNG(t, 2, 2)}}, ImagesOptions{Margin: "huge"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad margin err = %v", err)
	}
}

func TestSignPlacement(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Document(t, geometry.Size{Width: 600, Height: 800}, sizeA))
	sig := containertest.PNG(t, 200, 100)
	art := process(t, e, KindSign, []File{src}, SignOptions{Signature: sig, WidthRatio: 0.3})
	if !strings.HasPrefix(art.Name, "signed_silk_") {
		t.Fatalf("name = %s", art.Name)
	}
	doc := e.loader.loaded[0]
	o := doc.Pages()[0].Overlays()[0].(container.ImageOverlay)
	if !near(o.Width, 180) || !near(o.Height, 90) {
		t.Fatalf("signature = %vx%v, want 180x90", o.Width, o.Height)
	}
	if !near(o.X, 210) || !near(o.Y, 800-280-90) {
		t.Fatalf("signature at (%v, %v)", o.X, o.Y)
	}
	if len(doc.Pages()[1].Overlays()) != 0 {
		t.Fatalf("signature drawn on an untargeted page")
	}
	if got := pageSizes(t, art.Data); len(got) != 2 {
		t.Fatalf("pages = %v", got)
	}
}

func TestSignTargetPageAndDataURL(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Document(t, sizeA, sizeB))
	url := imagecodec.DataURL("image/png", containertest.PNG(t, 50, 50))
	pos := &geometry.NormalizedPosition{X: 0, Y: 0}

	process(t, e, KindSign, []File{src}, SignOptions{Signature: []byte(url), Position: pos, TargetPage: 1})
	doc := e.loader.loaded[0]
	o := doc.Pages()[1].Overlays()[0].(container.ImageOverlay)
	if !near(o.X, 0) || !near(o.Y+o.Height, sizeB.Height) {
		t.Fatalf("top-left signature at (%v, %v) h %v", o.X, o.Y, o.Height)
	}

	process(t, e, KindSign, []File{src}, SignOptions{Signature: []byte(url), TargetPage: 7})
	doc = e.loader.loaded[1]
	if len(doc.Pages()[0].Overlays()) != 1 || len(doc.Pages()[1].Overlays()) != 0 {
		t.Fatalf("out-of-range target should fall back to the first page")
	}
}

func TestSignWithoutSignatureIsNoop(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Document(t, sizeA, sizeB))
	art := process(t, e, KindSign, []File{src}, nil)
	for _, p := range e.loader.loaded[0].Pages() {
		if len(p.Overlays()) != 0 {
			t.Fatalf("overlay drawn without signature")
		}
	}
	if got := pageSizes(t, art.Data); !sameSizes(got, []geometry.Size{sizeA, sizeB}) {
		t.Fatalf("pages = %v", got)
	}
}

func TestSignValidatesPlacement(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Pages(t, 1))
	for _, o := range []SignOptions{
		{Position: &geometry.NormalizedPosition{X: 1.2, Y: 0}},
		{Position: &geometry.NormalizedPosition{X: 0.5, Y: -0.1}},
		{WidthRatio: 1.5},
		{WidthRatio: -0.2},
		{Signature: []byte("data:image/png;base64,@@@")},
	} {
		if _, err := e.Process(context.Background(), KindSign, []File{src}, o); !errors.Is(err, ErrValidation) {
			t.Fatalf("%+v: err = %v", o, err)
		}
	}
}

func TestWatermarkTilesEveryPage(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Document(t, sizeD, sizeB))
	art := process(t, e, KindWatermark, []File{src}, WatermarkOptions{Text: "DRAFT"})
	if !strings.HasPrefix(art.Name, "watermarked_silk_") {
		t.Fatalf("name = %s", art.Name)
	}
	doc := e.loader.loaded[0]
	for i, p := range doc.Pages() {
		overlays := p.Overlays()
		if len(overlays) != watermarkRows*watermarkCols {
			t.Fatalf("page %d overlays = %d", i, len(overlays))
		}
		xStep, yStep := p.Width()/3, p.Height()/4
		for k, ov := range overlays {
			o := ov.(container.TextOverlay)
			r, c := k/3, k%3
			if o.Text != "DRAFT" || !near(o.X, float64(c)*xStep+20) || !near(o.Y, float64(r)*yStep+20) {
				t.Fatalf("page %d cell %d = %+v", i, k, o)
			}
			if o.Options.Size != 48 || o.Options.Rotate != 45 || o.Options.Opacity != 0.3 || o.Options.Color != container.LightGray {
				t.Fatalf("page %d style = %+v", i, o.Options)
			}
		}
	}
	if got := pageSizes(t, art.Data); !sameSizes(got, []geometry.Size{sizeD, sizeB}) {
		t.Fatalf("pages = %v", got)
	}
}

func TestWatermarkEmptyTextIsNoop(t *testing.T) {
	e := newTestEngine(t)
	src := pdfFile("doc.pdf", containertest.Pages(t, 2))
	process(t, e, KindWatermark, []File{src}, WatermarkOptions{FontSize: 20})
	for _, p := range e.loader.loaded[0].Pages() {
		if len(p.Overlays()) != 0 {
			t.Fatalf("overlay drawn for empty text")
		}
	}
}

func TestExportMarkup(t *testing.T) {
	e := newTestEngine(t, geometry.Size{Width: 600, Height: 800}, sizeA)
	e.renderer.runs[0] = []raster.TextRun{
		{Text: "Total <due> & paid", Transform: geometry.Matrix{12, 0, 0, 12, 54.5, 716}},
	}
	e.renderer.runs[1] = []raster.TextRun{
		{Text: "second", Transform: geometry.Matrix{10, 0, 0, 10, 20, 30}},
	}
	art := process(t, e, KindExport, []File{pdfFile("doc.pdf", containertest.Document(t, geometry.Size{Width: 600, Height: 800}, sizeA))}, nil)
	if art.Name != "converted_silk_1700000000000.doc" || art.MIMEType != MIMEWord {
		t.Fatalf("artifact = %s (%s)", art.Name, art.MIMEType)
	}
	out := string(art.Data)
	for _, want := range []string{
		`xmlns:w="urn:schemas-microsoft-com:office:word"`,
		`<meta charset="utf-8"/>`,
		`width: 600pt; height: 800pt; page-break-after: always;`,
		`left: 54.5pt; top: 72pt; font-size: 12pt;`,
		`Total &lt;due&gt; &amp; paid`,
		`left: 20pt; top: 360pt; font-size: 10pt;`,
		`src="data:image/jpeg;base64,`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "page-break-after: always"); n != 2 {
		t.Fatalf("page blocks = %d", n)
	}
	if e.renderer.closed != 1 {
		t.Fatalf("document not closed")
	}
}

func TestPreviewPageClampsAndDownscales(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreviewMaxWidth = 100
	e := newTestEngineWithConfig(t, cfg, sizeA, sizeB)
	src := pdfFile("doc.pdf", containertest.Document(t, sizeA, sizeB))

	out, err := e.PreviewPage(context.Background(), src, 9, 0)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if fmt.Sprint(e.renderer.rendered) != "[1]" || e.renderer.scales[0] != 1 {
		t.Fatalf("rendered %v at %v", e.renderer.rendered, e.renderer.scales)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 75 {
		t.Fatalf("preview = %v, want 100x75", b)
	}

	if _, err := e.PreviewPage(context.Background(), src, -3, 0.5); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if e.renderer.rendered[1] != 0 {
		t.Fatalf("negative page should clamp to the first page")
	}
}

func TestPreviewImages(t *testing.T) {
	e := newTestEngine(t)
	art, err := e.PreviewImages(context.Background(), File{Name: "a.jpg", Data: containertest.JPEG(t, 40, 40)}, ImagesOptions{})
	if err != nil {
		t.Fatalf("preview images: %v", err)
	}
	if art.Name != "preview_silk_1700000000000.pdf" {
		t.Fatalf("name = %s", art.Name)
	}
	if got := pageSizes(t, art.Data); !sameSizes(got, []geometry.Size{{Width: geometry.A4Width, Height: geometry.A4Height}}) {
		t.Fatalf("pages = %v", got)
	}
}
