package ops

import (
	"context"
	"fmt"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) images(ctx context.Context, log observability.Logger, files []File, o ImagesOptions) (Artifact, error) {
	o, err := normalizeImagesOptions(o)
	if err != nil {
		return Artifact{}, err
	}
	dst := e.loader.New()
	for i := range files {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		img, err := e.decodeImage("images", &files[i], imagecodec.InferFormat(files[i].Name, files[i].MIMEType))
		if err != nil {
			return Artifact{}, err
		}
		placeImage(dst, img, o)
		log.Debug("image placed",
			observability.String("file", files[i].Name),
			observability.String("format", string(img.Format)),
		)
	}
	data, err := e.serialize("images", dst)
	if err != nil {
		return Artifact{}, err
	}
	return e.pdfArtifact("images", data), nil
}

func normalizeImagesOptions(o ImagesOptions) (ImagesOptions, error) {
	if o.Orientation == "" {
		o.Orientation = geometry.Portrait
	}
	if o.Margin == "" {
		o.Margin = geometry.MarginNone
	}
	if !o.Orientation.Valid() {
		return o, &ValidationError{Field: "orientation", Message: fmt.Sprintf("unknown orientation %q", o.Orientation)}
	}
	if !o.Margin.Valid() {
		return o, &ValidationError{Field: "margin", Message: fmt.Sprintf("unknown margin %q", o.Margin)}
	}
	return o, nil
}

// placeImage adds one reference-size page with img scaled to fit inside the
// margins and centered.
func placeImage(dst container.Handle, img *container.Image, o ImagesOptions) {
	page := o.Orientation.PageSize()
	m := o.Margin.Points()
	fit := geometry.Fit(float64(img.Width), float64(img.Height), page.Width-2*m, page.Height-2*m)
	dst.AddBlankPage(page.Width, page.Height).
		DrawImage(img, m+fit.OffsetX, m+fit.OffsetY, fit.Width, fit.Height)
}

// decodeImage checks the image header against the pixel limit, then decodes
// through the format cascade.
func (e *Engine) decodeImage(op string, f *File, hint imagecodec.Format) (*container.Image, error) {
	w, h, _, err := imagecodec.Probe(f.Data, hint)
	if err != nil {
		return nil, classify(op, f, err)
	}
	if err := imagecodec.CheckBounds(w, h, e.cfg.Limits.MaxPixels); err != nil {
		return nil, &ValidationError{Field: "files", Message: fmt.Sprintf("image %q: %v", f.Name, err)}
	}
	dec, err := imagecodec.Decode(f.Data, hint)
	if err != nil {
		return nil, classify(op, f, err)
	}
	img, err := container.NewImage(dec)
	if err != nil {
		return nil, classify(op, f, err)
	}
	return img, nil
}
