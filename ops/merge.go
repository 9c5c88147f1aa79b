package ops

import (
	"context"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/observability"
)

func (e *Engine) merge(ctx context.Context, log observability.Logger, files []File) (Artifact, error) {
	dst := e.loader.New()
	for i := range files {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		src, err := e.load("merge", &files[i])
		if err != nil {
			return Artifact{}, err
		}
		if err := appendPages(dst, src, geometry.AllPages(src.PageCount())); err != nil {
			return Artifact{}, classify("merge", &files[i], err)
		}
		log.Debug("merged file", observability.String("file", files[i].Name), observability.Int(observability.MetricPageCount, src.PageCount()))
	}
	data, err := e.serialize("merge", dst)
	if err != nil {
		return Artifact{}, err
	}
	return e.pdfArtifact("merged", data), nil
}

// appendPages copies indices of src onto the end of dst, in order.
func appendPages(dst, src container.Handle, indices []int) error {
	pages, err := dst.CopyPages(src, indices)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := dst.AddPage(p); err != nil {
			return err
		}
	}
	return nil
}
