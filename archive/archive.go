// Package archive bundles the outputs of a fan-out operation into one zip.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

var ErrFinalized = errors.New("archive: already finalized")

// Packer accumulates named entries in memory.
type Packer struct {
	buf      bytes.Buffer
	zw       *zip.Writer
	names    map[string]struct{}
	order    []string
	modified time.Time
	done     bool
}

// NewPacker returns an empty packer. Entry timestamps are set to modified so
// archives built from the same inputs are byte-identical.
func NewPacker(modified time.Time) *Packer {
	p := &Packer{names: make(map[string]struct{}), modified: modified}
	p.zw = zip.NewWriter(&p.buf)
	return p
}

// Add writes one entry. Names must be unique.
func (p *Packer) Add(name string, data []byte) error {
	if p.done {
		return ErrFinalized
	}
	if name == "" {
		return errors.New("archive: empty entry name")
	}
	if _, dup := p.names[name]; dup {
		return fmt.Errorf("archive: duplicate entry %q", name)
	}
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: p.modified}
	w, err := p.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("archive: write %s: %w", name, err)
	}
	p.names[name] = struct{}{}
	p.order = append(p.order, name)
	return nil
}

func (p *Packer) Len() int { return len(p.order) }

// Names returns entry names in insertion order.
func (p *Packer) Names() []string { return append([]string(nil), p.order...) }

// Bytes finalizes the archive and returns its encoding. Further calls return
// the same bytes; Add fails afterwards.
func (p *Packer) Bytes() ([]byte, error) {
	if !p.done {
		if err := p.zw.Close(); err != nil {
			return nil, fmt.Errorf("archive: finalize: %w", err)
		}
		p.done = true
	}
	return p.buf.Bytes(), nil
}
