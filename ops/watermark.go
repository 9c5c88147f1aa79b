package ops

import (
	"context"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) watermark(ctx context.Context, log observability.Logger, f File, o WatermarkOptions) (Artifact, error) {
	size := o.FontSize
	if size <= 0 {
		size = DefaultWatermarkSize
	}
	doc, err := e.load("watermark", &f)
	if err != nil {
		return Artifact{}, err
	}
	if o.Text != "" {
		text := container.TextOptions{
			Size:    size,
			Color:   container.LightGray,
			Opacity: watermarkOpacity,
			Rotate:  watermarkRotation,
		}
		for i, page := range doc.Pages() {
			if err := ctx.Err(); err != nil {
				return Artifact{}, err
			}
			tile(page, o.Text, text)
			log.Debug("page watermarked", observability.Int("page", i+1))
		}
	}
	data, err := e.serialize("watermark", doc)
	if err != nil {
		return Artifact{}, err
	}
	return e.pdfArtifact("watermarked", data), nil
}

// tile draws text on a rows x cols grid spanning the page's own size.
func tile(page *container.Page, text string, opts container.TextOptions) {
	xStep := page.Width() / watermarkCols
	yStep := page.Height() / watermarkRows
	for r := 0; r < watermarkRows; r++ {
		for c := 0; c < watermarkCols; c++ {
			page.DrawText(text, float64(c)*xStep+watermarkOffset, float64(r)*yStep+watermarkOffset, opts)
		}
	}
}
