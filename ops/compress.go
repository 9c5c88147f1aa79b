package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) compress(ctx context.Context, log observability.Logger, f File, o CompressOptions) (Artifact, error) {
	switch o.Level {
	case "":
		o.Level = CompressStandard
	case CompressStandard, CompressStrong, CompressExtreme:
	default:
		return Artifact{}, &ValidationError{Field: "level", Message: fmt.Sprintf("unknown compression level %q", o.Level)}
	}
	src, err := e.load("compress", &f)
	if err != nil {
		return Artifact{}, err
	}
	if o.Level == CompressStandard {
		// Re-encoding only compacts the container structure.
		data, err := e.serialize("compress", src)
		if err != nil {
			return Artifact{}, err
		}
		return e.pdfArtifact("compressed", data), nil
	}

	data, err := e.rasterize(ctx, log, f, src, e.cfg.profile(o.Level))
	if err != nil {
		return Artifact{}, err
	}
	log.Debug("compressed",
		observability.String("level", string(o.Level)),
		observability.Int(observability.MetricInputBytes, len(f.Data)),
		observability.Int(observability.MetricOutputBytes, len(data)),
	)
	return e.pdfArtifact("compressed", data), nil
}

// rasterize replaces every page with a JPEG of itself rendered at the
// profile's scale, drawn over a page of the original size. One pixel buffer
// is alive at a time.
func (e *Engine) rasterize(ctx context.Context, log observability.Logger, f File, src container.Handle, prof RasterProfile) ([]byte, error) {
	doc, err := e.open("compress", &f)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if doc.PageCount() != src.PageCount() {
		return nil, classify("compress", &f, fmt.Errorf("renderer sees %d pages, container has %d", doc.PageCount(), src.PageCount()))
	}

	dst := e.loader.New()
	for i, page := range src.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		img, err := doc.RenderPage(i, prof.Scale)
		if err != nil {
			return nil, classify("compress", &f, err)
		}
		rendered := time.Since(start)
		b := img.Bounds()
		data, err := imagecodec.EncodeJPEG(img, prof.Quality)
		if err != nil {
			return nil, classify("compress", &f, err)
		}
		log.Debug("page rasterized",
			observability.Int("page", i+1),
			observability.Duration(observability.MetricRenderTime, rendered),
			observability.Duration(observability.MetricEncodeTime, time.Since(start)-rendered),
		)
		embedded := &container.Image{Data: data, Format: imagecodec.JPEG, Width: b.Dx(), Height: b.Dy()}
		w, h := page.Width(), page.Height()
		dst.AddBlankPage(w, h).DrawImage(embedded, 0, 0, w, h)
	}
	return e.serialize("compress", dst)
}
