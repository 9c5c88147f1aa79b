package container

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/wudi/silkpdf/imagecodec"
)

type templateKey struct {
	src   *source
	index int
}

// compose writes pages into a fresh document. Source pages are imported as
// form templates and overlays are painted over them in order.
func compose(pages []*Page, opts Options) (out []byte, err error) {
	defer func() {
		// gofpdi reports malformed input by panicking.
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("compose: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCompression(opts.Compress)
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
		pdf.SetProducer(opts.Creator, true)
	}
	created := opts.CreationDate
	if created.IsZero() {
		now := opts.Clock
		if now == nil {
			now = time.Now
		}
		created = now()
	}
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)

	c := &composer{
		pdf:       pdf,
		imp:       gofpdi.NewImporter(),
		tr:        pdf.UnicodeTranslatorFromDescriptor(""),
		templates: make(map[templateKey]int),
		images:    make(map[*Image]string),
	}
	for i, p := range pages {
		if err := c.page(p); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if pdf.Err() {
			return nil, fmt.Errorf("page %d: %w", i+1, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type composer struct {
	pdf       *fpdf.Fpdf
	imp       *gofpdi.Importer
	tr        func(string) string
	templates map[templateKey]int
	images    map[*Image]string
}

func (c *composer) page(p *Page) error {
	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: p.width, Ht: p.height})
	if p.src != nil {
		key := templateKey{src: p.src, index: p.srcIndex}
		tpl, ok := c.templates[key]
		if !ok {
			tpl = c.imp.ImportPageFromStream(c.pdf, &p.src.rs, p.srcIndex+1, "/MediaBox")
			c.templates[key] = tpl
		}
		c.imp.UseImportedTemplate(c.pdf, tpl, 0, 0, p.width, p.height)
	}
	for _, o := range p.overlays {
		switch o := o.(type) {
		case ImageOverlay:
			if err := c.image(p, o); err != nil {
				return err
			}
		case TextOverlay:
			c.text(p, o)
		}
	}
	return nil
}

func (c *composer) image(p *Page, o ImageOverlay) error {
	if o.Image == nil {
		return fmt.Errorf("image overlay without image")
	}
	imgType := "PNG"
	if o.Image.Format == imagecodec.JPEG {
		imgType = "JPG"
	}
	opts := fpdf.ImageOptions{ImageType: imgType}
	name, ok := c.images[o.Image]
	if !ok {
		name = fmt.Sprintf("img%d", len(c.images)+1)
		c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(o.Image.Data))
		if c.pdf.Err() {
			return fmt.Errorf("register image: %w", c.pdf.Error())
		}
		c.images[o.Image] = name
	}
	top := p.height - o.Y - o.Height
	c.pdf.ImageOptions(name, o.X, top, o.Width, o.Height, false, opts, 0, "")
	return nil
}

func (c *composer) text(p *Page, o TextOverlay) {
	opt := o.Options
	c.pdf.SetFont("Helvetica", "", opt.Size)
	c.pdf.SetTextColor(channel(opt.Color.R), channel(opt.Color.G), channel(opt.Color.B))
	if opt.Opacity < 1 {
		c.pdf.SetAlpha(opt.Opacity, "Normal")
	}
	y := p.height - o.Y
	if opt.Rotate != 0 {
		c.pdf.TransformBegin()
		c.pdf.TransformRotate(opt.Rotate, o.X, y)
	}
	c.pdf.Text(o.X, y, c.tr(o.Text))
	if opt.Rotate != 0 {
		c.pdf.TransformEnd()
	}
	if opt.Opacity < 1 {
		c.pdf.SetAlpha(1, "Normal")
	}
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
