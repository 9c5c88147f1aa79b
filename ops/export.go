package ops

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/silkpdf/imagecodec"
	"github.com/wudi/silkpdf/observability"
	"github.com/wudi/silkpdf/raster"
)

const exportFontFamily = "Times New Roman, serif"

// export converts each page into a page-sized block holding a raster
// background and one absolutely positioned node per text run. The document
// is HTML with Word namespaces, which word processors open as .doc.
func (e *Engine) export(ctx context.Context, log observability.Logger, f File) (Artifact, error) {
	doc, err := e.open("export", &f)
	if err != nil {
		return Artifact{}, err
	}
	defer doc.Close()

	root, body := exportDocument()
	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		block, err := e.exportPage(doc, i)
		if err != nil {
			return Artifact{}, classify("export", &f, err)
		}
		body.AppendChild(block)
		log.Debug("page exported", observability.Int("page", i+1))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return Artifact{}, classify("export", &f, err)
	}
	return Artifact{Name: e.artifactName("converted", "doc"), Data: buf.Bytes(), MIMEType: MIMEWord}, nil
}

func (e *Engine) exportPage(doc raster.Document, i int) (*html.Node, error) {
	w, h, err := doc.PageSize(i)
	if err != nil {
		return nil, err
	}
	img, err := doc.RenderPage(i, 1)
	if err != nil {
		return nil, err
	}
	jpeg, err := imagecodec.EncodeJPEG(img, e.cfg.ExportQuality)
	if err != nil {
		return nil, &raster.RenderError{Page: i, Err: err}
	}
	runs, err := doc.TextRuns(i)
	if err != nil {
		return nil, err
	}

	block := element(atom.Div, "style", fmt.Sprintf(
		"position: relative; width: %s; height: %s; page-break-after: always; margin-bottom: 20px; border: 1px solid #eee;",
		pt(w), pt(h)))
	block.AppendChild(element(atom.Img,
		"src", imagecodec.DataURL(imagecodec.JPEG.MIMEType(), jpeg),
		"style", "position: absolute; left: 0; top: 0; width: 100%; height: 100%; z-index: -1;"))
	for _, r := range runs {
		size := r.FontSize()
		top := h - r.Y() - size
		node := element(atom.Div, "style", fmt.Sprintf(
			"position: absolute; left: %s; top: %s; font-size: %s; font-family: %s; white-space: nowrap;",
			pt(r.X()), pt(top), pt(size), exportFontFamily))
		node.AppendChild(&html.Node{Type: html.TextNode, Data: r.Text})
		block.AppendChild(node)
	}
	return block, nil
}

func exportDocument() (root, body *html.Node) {
	root = &html.Node{Type: html.DocumentNode}
	htmlEl := element(atom.Html,
		"xmlns:o", "urn:schemas-microsoft-com:office:office",
		"xmlns:w", "urn:schemas-microsoft-com:office:word",
		"xmlns", "http://www.w3.org/TR/REC-html40")
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, "charset", "utf-8"))
	title := element(atom.Title)
	title.AppendChild(&html.Node{Type: html.TextNode, Data: "Converted Document"})
	head.AppendChild(title)
	body = element(atom.Body)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)
	return root, body
}

// element builds an element from alternating attribute keys and values.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func pt(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "pt"
}
