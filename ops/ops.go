// Package ops is the operation engine: one handler per document operation,
// each composing the container, raster, imagecodec and archive adapters with
// the geometry and policy of that operation.
//
// Every operation takes a list of input files and a typed options value and
// yields exactly one Artifact. Handlers are sequential and deterministic in
// page order; any adapter failure aborts the whole operation.
package ops

import (
	"fmt"

	"github.com/wudi/silkpdf/geometry"
)

// Kind selects an operation.
type Kind string

const (
	KindMerge     Kind = "merge"
	KindSplit     Kind = "split"
	KindCompress  Kind = "compress"
	KindImages    Kind = "images"
	KindSign      Kind = "sign"
	KindWatermark Kind = "watermark"
	KindExport    Kind = "export"
)

// Kinds lists every operation in display order.
var Kinds = []Kind{KindMerge, KindSplit, KindCompress, KindImages, KindSign, KindWatermark, KindExport}

// ParseKind maps a name to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown operation %q", s)}
}

const (
	MIMEPDF  = "application/pdf"
	MIMEZip  = "application/zip"
	MIMEWord = "application/msword"
	MIMEPNG  = "image/png"
)

// File is one input buffer. Name and MIMEType only steer image format
// inference.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Artifact is the single output of an operation.
type Artifact struct {
	Name     string
	Data     []byte
	MIMEType string
}

// Options is the per-kind options record. A nil Options selects the
// defaults of the requested kind.
type Options interface {
	Kind() Kind
}

type MergeOptions struct{}

type SplitMode string

const (
	SplitRange SplitMode = "range"
	SplitAll   SplitMode = "all"
)

type SplitOptions struct {
	Mode SplitMode
	// Range is a page range such as "1-5,8,10-12". Used when Mode is SplitRange.
	Range string
}

type CompressLevel string

const (
	CompressStandard CompressLevel = "standard"
	CompressStrong   CompressLevel = "strong"
	CompressExtreme  CompressLevel = "extreme"
)

type CompressOptions struct {
	Level CompressLevel
}

type ImagesOptions struct {
	Orientation geometry.Orientation
	Margin      geometry.Margin
}

type SignOptions struct {
	// Signature is PNG or JPEG bytes, or a data: URL carrying one. Empty
	// means no signature; the document is returned unmodified.
	Signature []byte
	// Position is the top-left corner of the signature as page fractions.
	// Nil means the default (0.35, 0.35).
	Position *geometry.NormalizedPosition
	// WidthRatio is the signature width as a fraction of page width; zero
	// means 0.3.
	WidthRatio float64
	// TargetPage is 0-based; out of range falls back to the first page.
	TargetPage int
}

type WatermarkOptions struct {
	Text string
	// FontSize defaults to 48.
	FontSize float64
}

type ExportOptions struct{}

func (MergeOptions) Kind() Kind     { return KindMerge }
func (SplitOptions) Kind() Kind     { return KindSplit }
func (CompressOptions) Kind() Kind  { return KindCompress }
func (ImagesOptions) Kind() Kind    { return KindImages }
func (SignOptions) Kind() Kind      { return KindSign }
func (WatermarkOptions) Kind() Kind { return KindWatermark }
func (ExportOptions) Kind() Kind    { return KindExport }

const (
	DefaultSignatureX    = 0.35
	DefaultSignatureY    = 0.35
	DefaultWidthRatio    = 0.3
	DefaultWatermarkSize = 48
)

const (
	watermarkRows     = 4
	watermarkCols     = 3
	watermarkOffset   = 20
	watermarkOpacity  = 0.3
	watermarkRotation = 45
	splitEntryPad     = 3
)

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions(kind Kind) (Options, error) {
	switch kind {
	case KindMerge:
		return MergeOptions{}, nil
	case KindSplit:
		return SplitOptions{Mode: SplitAll}, nil
	case KindCompress:
		return CompressOptions{Level: CompressStandard}, nil
	case KindImages:
		return ImagesOptions{Orientation: geometry.Portrait, Margin: geometry.MarginNone}, nil
	case KindSign:
		return SignOptions{}, nil
	case KindWatermark:
		return WatermarkOptions{}, nil
	case KindExport:
		return ExportOptions{}, nil
	}
	return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown operation %q", kind)}
}

func resolveOptions(kind Kind, opts Options) (Options, error) {
	if opts == nil {
		return DefaultOptions(kind)
	}
	if _, err := DefaultOptions(kind); err != nil {
		return nil, err
	}
	if opts.Kind() != kind {
		return nil, &ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("%s options cannot be used for %s", opts.Kind(), kind),
		}
	}
	return opts, nil
}
