package ops

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/observability"
)

// Info describes a loaded document.
type Info struct {
	Pages []geometry.Size
}

func (i Info) PageCount() int { return len(i.Pages) }

// Inspect reports the page count and page sizes of a document.
func (e *Engine) Inspect(ctx context.Context, f File) (Info, error) {
	if err := e.cfg.checkFiles("inspect", []File{f}); err != nil {
		return Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	doc, err := e.load("inspect", &f)
	if err != nil {
		return Info{}, err
	}
	info := Info{Pages: make([]geometry.Size, 0, doc.PageCount())}
	for _, p := range doc.Pages() {
		info.Pages = append(info.Pages, p.Size())
	}
	return info, nil
}

// PreviewPage renders one page as PNG. The page index is clamped into
// range; a non-positive scale uses the configured preview scale.
func (e *Engine) PreviewPage(ctx context.Context, f File, page int, scale float64) ([]byte, error) {
	if err := e.cfg.checkFiles("preview", []File{f}); err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = e.cfg.PreviewScale
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := e.open("preview", &f)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if doc.PageCount() == 0 {
		return nil, classify("preview", &f, errNoPages)
	}
	index := geometry.ClampPage(page+1, doc.PageCount()) - 1
	img, err := doc.RenderPage(index, scale)
	if err != nil {
		return nil, classify("preview", &f, err)
	}
	out, err := imagecodec.EncodePNG(downscale(img, e.cfg.PreviewMaxWidth))
	if err != nil {
		return nil, classify("preview", &f, err)
	}
	e.logger.Debug("page previewed",
		observability.Int("page", index+1),
		observability.Float64("scale", scale),
		observability.Int(observability.MetricOutputBytes, len(out)),
	)
	return out, nil
}

// PreviewImages converts a single image with the image operation's layout,
// for showing the result before committing to a full conversion.
func (e *Engine) PreviewImages(ctx context.Context, f File, o ImagesOptions) (Artifact, error) {
	return e.run(ctx, KindImages, []File{f}, func(ctx context.Context, log observability.Logger) (Artifact, error) {
		if err := e.cfg.checkFiles(KindImages, []File{f}); err != nil {
			return Artifact{}, err
		}
		art, err := e.images(ctx, log, []File{f}, o)
		if err != nil {
			return Artifact{}, err
		}
		art.Name = e.artifactName("preview", "pdf")
		return art, nil
	})
}

// downscale shrinks img to maxWidth keeping its aspect ratio. Images already
// narrow enough are returned as is.
func downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
