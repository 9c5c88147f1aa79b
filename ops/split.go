package ops

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wudi/silkpdf/archive"
	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) split(ctx context.Context, log observability.Logger, f File, o SplitOptions) (Artifact, error) {
	switch o.Mode {
	case SplitRange, SplitAll:
	case "":
		o.Mode = SplitAll
	default:
		return Artifact{}, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown split mode %q", o.Mode)}
	}
	src, err := e.load("split", &f)
	if err != nil {
		return Artifact{}, err
	}
	if o.Mode == SplitRange {
		return e.splitRange(ctx, log, src, o.Range)
	}
	return e.splitAll(ctx, log, src)
}

func (e *Engine) splitRange(ctx context.Context, log observability.Logger, src container.Handle, spec string) (Artifact, error) {
	indices := geometry.ParsePageRange(spec, src.PageCount())
	if len(indices) == 0 {
		return Artifact{}, &ValidationError{Field: "range", Message: "invalid page range or no pages selected"}
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	dst := e.loader.New()
	if err := appendPages(dst, src, indices); err != nil {
		return Artifact{}, classify("split", nil, err)
	}
	data, err := e.serialize("split", dst)
	if err != nil {
		return Artifact{}, err
	}
	log.Debug("split range", observability.String("range", spec), observability.Int(observability.MetricPageCount, len(indices)))
	return e.pdfArtifact("split_range", data), nil
}

func (e *Engine) splitAll(ctx context.Context, log observability.Logger, src container.Handle) (Artifact, error) {
	n := src.PageCount()
	packer := archive.NewPacker(e.now())
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		dst := e.loader.New()
		if err := appendPages(dst, src, []int{i}); err != nil {
			return Artifact{}, classify("split", nil, err)
		}
		data, err := e.serialize("split", dst)
		if err != nil {
			return Artifact{}, err
		}
		if err := packer.Add(splitEntryName(i, n), data); err != nil {
			return Artifact{}, classify("split", nil, err)
		}
	}
	data, err := packer.Bytes()
	if err != nil {
		return Artifact{}, classify("split", nil, err)
	}
	log.Debug("split all pages", observability.Int(observability.MetricPageCount, n))
	return Artifact{Name: e.artifactName("split_all_pages", "zip"), Data: data, MIMEType: MIMEZip}, nil
}

// splitEntryName names page i of n, zero-padded to at least three digits so
// entries sort in page order.
func splitEntryName(i, n int) string {
	pad := max(splitEntryPad, len(strconv.Itoa(n)))
	return fmt.Sprintf("page_%0*d.pdf", pad, i+1)
}
