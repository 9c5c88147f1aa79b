package container

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/silkpdf/geometry"
)

type loaderImpl struct {
	opts Options
}

// NewLoader returns a Loader backed by pdfcpu and fpdf.
func NewLoader(opts Options) Loader {
	return &loaderImpl{opts: opts}
}

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Load parses and validates data and returns a pristine handle over it.
func (l *loaderImpl) Load(data []byte) (Handle, error) {
	if len(data) == 0 {
		return nil, &LoadError{Err: errors.New("empty input")}
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if ctx.Encrypt != nil {
		return nil, &LoadError{Err: ErrEncrypted}
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, &LoadError{Err: err}
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("page dimensions: %w", err)}
	}

	flat, err := classicXRef(ctx, data)
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("rewrite cross-reference: %w", err)}
	}

	src := &source{data: data, rs: bytes.NewReader(flat), sizes: make([]geometry.Size, len(dims))}
	for i, d := range dims {
		src.sizes[i] = geometry.Size{Width: d.Width, Height: d.Height}
	}

	h := &handle{loader: l, origin: src}
	for i, sz := range src.sizes {
		h.pages = append(h.pages, &Page{
			owner:    h,
			added:    true,
			width:    sz.Width,
			height:   sz.Height,
			src:      src,
			srcIndex: i,
		})
	}
	return h, nil
}

// classicXRef returns data rewritten with a plain cross-reference table and
// no object streams, the only layout the page importer reads. Documents
// already in that layout are returned as is.
func classicXRef(ctx *model.Context, data []byte) ([]byte, error) {
	if !ctx.Read.UsingXRefStreams && !ctx.Read.UsingObjectStreams {
		return data, nil
	}
	ctx.WriteObjectStream = false
	ctx.WriteXRefStream = false
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *loaderImpl) New() Handle {
	return &handle{loader: l}
}

type handle struct {
	loader *loaderImpl
	// origin is set for handles produced by Load.
	origin *source
	pages  []*Page
}

func (h *handle) PageCount() int { return len(h.pages) }

func (h *handle) Pages() []*Page { return append([]*Page(nil), h.pages...) }

func (h *handle) Page(index int) (*Page, error) {
	if index < 0 || index >= len(h.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(h.pages))
	}
	return h.pages[index], nil
}

func (h *handle) CopyPages(src Handle, indices []int) ([]*Page, error) {
	s, ok := src.(*handle)
	if !ok {
		return nil, fmt.Errorf("copy pages: unsupported handle type %T", src)
	}
	out := make([]*Page, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.pages) {
			return nil, fmt.Errorf("copy pages: index %d out of range [0,%d)", idx, len(s.pages))
		}
		out = append(out, s.pages[idx].clone(h))
	}
	return out, nil
}

func (h *handle) AddPage(page *Page) error {
	if page == nil {
		return errors.New("add page: nil page")
	}
	if page.owner != h {
		return errors.New("add page: page belongs to another handle; copy it first")
	}
	if page.added {
		return errors.New("add page: page already added")
	}
	page.added = true
	h.pages = append(h.pages, page)
	return nil
}

func (h *handle) AddBlankPage(width, height float64) *Page {
	p := &Page{owner: h, added: true, width: width, height: height, srcIndex: -1}
	h.pages = append(h.pages, p)
	return p
}

// pristine reports whether the handle is exactly its loaded source.
func (h *handle) pristine() bool {
	if h.origin == nil || len(h.pages) != len(h.origin.sizes) {
		return false
	}
	for i, p := range h.pages {
		if p.src != h.origin || p.srcIndex != i || len(p.overlays) > 0 {
			return false
		}
	}
	return true
}

func (h *handle) Serialize() ([]byte, error) {
	if h.pristine() {
		var buf bytes.Buffer
		if err := api.Optimize(bytes.NewReader(h.origin.data), &buf, pdfcpuConfig()); err != nil {
			return nil, &SerializeError{Err: err}
		}
		return buf.Bytes(), nil
	}
	if len(h.pages) == 0 {
		return nil, &SerializeError{Err: errors.New("no pages")}
	}
	data, err := compose(h.pages, h.loader.opts)
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	return data, nil
}
