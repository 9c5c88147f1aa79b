// Package imagecodec decodes user-supplied raster images for embedding and
// re-encodes rendered pages. Decoding is deliberately forgiving: a file whose
// name or MIME type lies about its format is retried as the other format.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/url"
	"path"
	"strings"

	"golang.org/x/image/draw"
)

type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// Alternate returns the other supported format.
func (f Format) Alternate() Format {
	if f == JPEG {
		return PNG
	}
	return JPEG
}

// MIMEType returns the IANA media type of the format.
func (f Format) MIMEType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// InferFormat guesses the format from a MIME type, then a file name. Anything
// not recognisably JPEG is treated as PNG.
func InferFormat(name, mimeType string) Format {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return JPEG
	case "image/png":
		return PNG
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".jpe", ".jfif":
		return JPEG
	}
	return PNG
}

// Decoded is an image ready to embed: the original bytes, the format they
// decoded as, and the pixel dimensions.
type Decoded struct {
	Data   []byte
	Format Format
	Width  int
	Height int
	Image  image.Image
}

// Attempt records one failed decode.
type Attempt struct {
	Format Format
	Err    error
}

// DecodeError is returned when every attempt in the cascade failed.
type DecodeError struct {
	Attempts []Attempt
}

func (e *DecodeError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Format, a.Err)
	}
	return "decode image: all attempts failed (" + strings.Join(parts, "; ") + ")"
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Cascade is the ordered list of formats tried for a hint: the hinted format,
// then the alternate, then the hinted format once more.
func Cascade(hint Format) []Format {
	return []Format{hint, hint.Alternate(), hint}
}

// Decode tries each format of Cascade(hint) in order and returns the first
// success.
func Decode(data []byte, hint Format) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, errors.New("decode image: empty input")
	}
	var failed []Attempt
	for _, f := range Cascade(hint) {
		img, err := decodeAs(data, f)
		if err != nil {
			failed = append(failed, Attempt{Format: f, Err: err})
			continue
		}
		b := img.Bounds()
		return Decoded{Data: data, Format: f, Width: b.Dx(), Height: b.Dy(), Image: img}, nil
	}
	return Decoded{}, &DecodeError{Attempts: failed}
}

func decodeAs(data []byte, f Format) (image.Image, error) {
	r := bytes.NewReader(data)
	if f == JPEG {
		return jpeg.Decode(r)
	}
	return png.Decode(r)
}

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ToNRGBA converts img to 8-bit non-premultiplied RGBA.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a "data:" URL into its payload and media type. Input
// without the data: prefix is returned unchanged so callers can pass either
// raw bytes or a URL.
func ParseDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:") {
		return []byte(s), "", nil
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, "", errors.New("data url: missing payload separator")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("data url: %w", err)
		}
		return []byte(decoded), mimeType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("data url: %w", err)
	}
	return data, mimeType, nil
}

const (
	// MaxDimension caps decoded width/height.
	MaxDimension = 32768
	// DefaultMaxPixels bounds decoded pixel count (roughly 64MP).
	DefaultMaxPixels int64 = 64 * 1024 * 1024
)

// CheckBounds rejects images whose size would exhaust memory once decoded.
func CheckBounds(width, height int, maxPixels int64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if pixels := int64(width) * int64(height); pixels > maxPixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, maxPixels)
	}
	return nil
}

// Probe reads only the image header and reports its dimensions, trying the
// same cascade as Decode.
func Probe(data []byte, hint Format) (width, height int, f Format, err error) {
	var failed []Attempt
	for _, f := range Cascade(hint) {
		var cfg image.Config
		var cerr error
		if f == JPEG {
			cfg, cerr = jpeg.DecodeConfig(bytes.NewReader(data))
		} else {
			cfg, cerr = png.DecodeConfig(bytes.NewReader(data))
		}
		if cerr == nil {
			return cfg.Width, cfg.Height, f, nil
		}
		failed = append(failed, Attempt{Format: f, Err: cerr})
	}
	return 0, 0, hint, &DecodeError{Attempts: failed}
}
