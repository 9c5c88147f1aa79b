package ops

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) sign(ctx context.Context, log observability.Logger, f File, o SignOptions) (Artifact, error) {
	pos, ratio, err := signPlacement(o)
	if err != nil {
		return Artifact{}, err
	}
	var sig []byte
	var hint imagecodec.Format
	if len(o.Signature) > 0 {
		data, mimeType, err := imagecodec.ParseDataURL(string(o.Signature))
		if err != nil {
			return Artifact{}, &ValidationError{Field: "signature", Message: err.Error()}
		}
		sig, hint = data, imagecodec.InferFormat("", mimeType)
	}

	doc, err := e.load("sign", &f)
	if err != nil {
		return Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if len(sig) > 0 {
		img, err := e.decodeImage("sign", &File{Name: "signature", Data: sig}, hint)
		if err != nil {
			return Artifact{}, err
		}
		target := o.TargetPage
		if target < 0 || target >= doc.PageCount() {
			target = 0
		}
		page, err := doc.Page(target)
		if err != nil {
			return Artifact{}, classify("sign", &f, err)
		}
		w := ratio * page.Width()
		h := w * float64(img.Height) / float64(img.Width)
		at := geometry.ToAbsolute(pos, page.Width(), page.Height(), h)
		page.DrawImage(img, at.X, at.Y, w, h)
		log.Debug("signature placed",
			observability.Int("page", target+1),
			observability.Float64("x", at.X),
			observability.Float64("y", at.Y),
			observability.Float64("width", w),
			observability.Float64("height", h),
		)
	}
	data, err := e.serialize("sign", doc)
	if err != nil {
		return Artifact{}, err
	}
	return e.pdfArtifact("signed", data), nil
}

func signPlacement(o SignOptions) (geometry.NormalizedPosition, float64, error) {
	pos := geometry.NormalizedPosition{X: DefaultSignatureX, Y: DefaultSignatureY}
	if o.Position != nil {
		pos = *o.Position
	}
	if !unit(pos.X) || !unit(pos.Y) {
		return pos, 0, &ValidationError{Field: "position", Message: fmt.Sprintf("position (%v, %v) must lie within [0, 1]", pos.X, pos.Y)}
	}
	ratio := o.WidthRatio
	if ratio == 0 {
		ratio = DefaultWidthRatio
	}
	if !(ratio > 0 && ratio <= 1) {
		return pos, 0, &ValidationError{Field: "width_ratio", Message: fmt.Sprintf("width ratio %v must lie within (0, 1]", ratio)}
	}
	return pos, ratio, nil
}

func unit(v float64) bool { return !math.IsNaN(v) && v >= 0 && v <= 1 }
