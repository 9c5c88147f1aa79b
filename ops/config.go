package ops

import (
	"fmt"

	"github.com/wudi/silkpdf/imagecodec"
)

// Limits bounds the inputs an engine accepts. Zero fields are unlimited,
// except MaxPixels which falls back to imagecodec.DefaultMaxPixels.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
	MaxPixels    int64
}

// RasterProfile is a render scale and the JPEG quality of the re-encode.
type RasterProfile struct {
	Scale   float64
	Quality int
}

type Config struct {
	// Brand is the qualifier in artifact names.
	Brand   string
	Limits  Limits
	Strong  RasterProfile
	Extreme RasterProfile
	// ExportQuality is the JPEG quality of export page backgrounds.
	ExportQuality int
	// PreviewScale is the default render scale of PreviewPage.
	PreviewScale float64
	// PreviewMaxWidth downsizes previews wider than this; zero disables.
	PreviewMaxWidth int
	// Creator is recorded in composed documents.
	Creator string
}

func DefaultConfig() Config {
	return Config{
		Brand: "silk",
		Limits: Limits{
			MaxFiles:     100,
			MaxFileBytes: 200 << 20,
			MaxPixels:    imagecodec.DefaultMaxPixels,
		},
		Strong:        RasterProfile{Scale: 1.5, Quality: 70},
		Extreme:       RasterProfile{Scale: 1.0, Quality: 50},
		ExportQuality: 80,
		PreviewScale:  1.0,
		Creator:       "silkpdf",
	}
}

func (c Config) Validate() error {
	if c.Brand == "" {
		return fmt.Errorf("brand must not be empty")
	}
	for name, p := range map[string]RasterProfile{"strong": c.Strong, "extreme": c.Extreme} {
		if p.Scale <= 0 {
			return fmt.Errorf("%s scale must be positive", name)
		}
		if p.Quality < 1 || p.Quality > 100 {
			return fmt.Errorf("%s quality must be within 1..100", name)
		}
	}
	if c.ExportQuality < 1 || c.ExportQuality > 100 {
		return fmt.Errorf("export quality must be within 1..100")
	}
	if c.PreviewScale <= 0 {
		return fmt.Errorf("preview scale must be positive")
	}
	if c.PreviewMaxWidth < 0 || c.Limits.MaxFiles < 0 || c.Limits.MaxFileBytes < 0 || c.Limits.MaxPixels < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func (c Config) profile(level CompressLevel) RasterProfile {
	if level == CompressExtreme {
		return c.Extreme
	}
	return c.Strong
}

// checkFiles validates the input list before any adapter is touched.
func (c Config) checkFiles(kind Kind, files []File) error {
	if len(files) == 0 {
		return &ValidationError{Field: "files", Message: fmt.Sprintf("%s requires at least one file", kind)}
	}
	if c.Limits.MaxFiles > 0 && len(files) > c.Limits.MaxFiles {
		return &ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("too many files: %d exceeds limit %d", len(files), c.Limits.MaxFiles),
		}
	}
	for _, f := range files {
		if c.Limits.MaxFileBytes > 0 && int64(len(f.Data)) > c.Limits.MaxFileBytes {
			return &ValidationError{
				Field:   "files",
				Message: fmt.Sprintf("file %q is %d bytes, exceeding limit %d", f.Name, len(f.Data), c.Limits.MaxFileBytes),
			}
		}
	}
	return nil
}
