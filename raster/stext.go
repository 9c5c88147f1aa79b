package raster

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/wudi/silkpdf/geometry"
)

const defaultRunSize = 12

// ParseStructuredText extracts text runs from MuPDF's structured-text HTML.
// Every element positioned with top and left that contains text becomes one
// run; its font size comes from the first descendant declaring one. Positions
// are flipped into bottom-left space using the page height declared by the
// page block, or pageHeight when the markup has none.
func ParseStructuredText(markup string, pageHeight float64) ([]TextRun, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse structured text: %w", err)
	}
	p := &stextParser{height: pageHeight}
	p.walk(doc)
	return p.runs, nil
}

type stextParser struct {
	height float64
	runs   []TextRun
}

func (p *stextParser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		style := parseStyle(attr(n, "style"))
		top, hasTop := style["top"]
		left, hasLeft := style["left"]
		if hasTop && hasLeft {
			p.addRun(n, top, left, style)
			return
		}
		if h, ok := style["height"]; ok && pageBlock(n) {
			p.height = h
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *stextParser) addRun(n *html.Node, top, left float64, style map[string]float64) {
	text := textContent(n)
	if strings.TrimSpace(text) == "" {
		return
	}
	size := fontSize(n)
	if size <= 0 {
		size = style["line-height"]
	}
	if size <= 0 {
		size = defaultRunSize
	}
	m := geometry.Matrix{size, 0, 0, size, left, p.height - top - size}
	p.runs = append(p.runs, TextRun{Text: text, Transform: m})
}

func pageBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "div" && strings.HasPrefix(attr(n, "id"), "page")
}

// pageExtent reports the page size declared by the page block of
// structured-text markup.
func pageExtent(markup string) (geometry.Size, bool) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return geometry.Size{}, false
	}
	var size geometry.Size
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if pageBlock(n) {
			style := parseStyle(attr(n, "style"))
			w, okW := style["width"]
			h, okH := style["height"]
			if okW && okH && w > 0 && h > 0 {
				size, found = geometry.Size{Width: w, Height: h}, true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return size, found
}

func fontSize(n *html.Node) float64 {
	if n.Type == html.ElementNode {
		if v, ok := parseStyle(attr(n, "style"))["font-size"]; ok {
			return v
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := fontSize(c); v > 0 {
			return v
		}
	}
	return 0
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// parseStyle returns the numeric declarations of an inline style, with any
// "pt" or "px" unit stripped. Non-numeric declarations are dropped.
func parseStyle(style string) map[string]float64 {
	out := make(map[string]float64)
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		v = strings.TrimSuffix(strings.TrimSuffix(v, "pt"), "px")
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = f
	}
	return out
}
