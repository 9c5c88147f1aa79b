package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/silkpdf/container"
	"github.com/wudi/silkpdf/observability"
	"github.com/wudi/silkpdf/raster"
)

// Engine dispatches operations. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	cfg      Config
	loader   container.Loader
	renderer raster.Renderer
	logger   observability.Logger
	tracer   observability.Tracer
	now      func() time.Time
}

// EngineBuilder assembles an Engine. Unset collaborators get working
// defaults: the pdfcpu/fpdf loader, the MuPDF renderer and no-op logging.
type EngineBuilder struct {
	cfg      Config
	loader   container.Loader
	renderer raster.Renderer
	logger   observability.Logger
	tracer   observability.Tracer
	now      func() time.Time
}

func NewEngineBuilder(cfg Config) *EngineBuilder { return &EngineBuilder{cfg: cfg} }

func (b *EngineBuilder) WithLoader(l container.Loader) *EngineBuilder {
	b.loader = l
	return b
}

func (b *EngineBuilder) WithRenderer(r raster.Renderer) *EngineBuilder {
	b.renderer = r
	return b
}

func (b *EngineBuilder) WithLogger(l observability.Logger) *EngineBuilder {
	b.logger = l
	return b
}

func (b *EngineBuilder) WithTracer(t observability.Tracer) *EngineBuilder {
	b.tracer = t
	return b
}

// WithClock sets the clock used for artifact timestamps and, with the
// default loader, the dates recorded in composed documents.
func (b *EngineBuilder) WithClock(now func() time.Time) *EngineBuilder {
	b.now = now
	return b
}

func (b *EngineBuilder) Build() (*Engine, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	e := &Engine{
		cfg:      b.cfg,
		loader:   b.loader,
		renderer: b.renderer,
		logger:   b.logger,
		tracer:   b.tracer,
		now:      b.now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loader == nil {
		opts := container.DefaultOptions()
		opts.Creator = e.cfg.Creator
		opts.Clock = e.now
		e.loader = container.NewLoader(opts)
	}
	if e.renderer == nil {
		e.renderer = raster.NewRenderer()
	}
	if e.logger == nil {
		e.logger = observability.NopLogger{}
	}
	if e.tracer == nil {
		e.tracer = observability.NopTracer()
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Process runs one operation over files and returns its artifact. No
// partial artifact is ever returned.
func (e *Engine) Process(ctx context.Context, kind Kind, files []File, opts Options) (Artifact, error) {
	return e.run(ctx, kind, files, func(ctx context.Context, log observability.Logger) (Artifact, error) {
		resolved, err := resolveOptions(kind, opts)
		if err != nil {
			return Artifact{}, err
		}
		if err := e.cfg.checkFiles(kind, files); err != nil {
			return Artifact{}, err
		}
		switch o := resolved.(type) {
		case MergeOptions:
			return e.merge(ctx, log, files)
		case SplitOptions:
			return e.split(ctx, log, files[0], o)
		case CompressOptions:
			return e.compress(ctx, log, files[0], o)
		case ImagesOptions:
			return e.images(ctx, log, files, o)
		case SignOptions:
			return e.sign(ctx, log, files[0], o)
		case WatermarkOptions:
			return e.watermark(ctx, log, files[0], o)
		case ExportOptions:
			return e.export(ctx, log, files[0])
		}
		return Artifact{}, &ValidationError{Field: "options", Message: fmt.Sprintf("unsupported options %T", resolved)}
	})
}

// run wraps an operation with an id, a span and start/finish logging.
func (e *Engine) run(ctx context.Context, kind Kind, files []File, fn func(context.Context, observability.Logger) (Artifact, error)) (Artifact, error) {
	log := e.logger.With(
		observability.String("op_id", uuid.NewString()),
		observability.String("op", string(kind)),
	)
	ctx, span := e.tracer.StartSpan(ctx, "ops."+string(kind))
	defer span.Finish()

	var inBytes int64
	for _, f := range files {
		inBytes += int64(len(f.Data))
	}
	span.SetTag(observability.MetricInputBytes, inBytes)
	log.Info("operation started",
		observability.Int("files", len(files)),
		observability.Int64(observability.MetricInputBytes, inBytes),
	)

	start := time.Now()
	art, err := fn(ctx, log)
	if err != nil {
		span.SetError(err)
		log.Error("operation failed",
			observability.Error("error", err),
			observability.Duration(observability.MetricOperationTime, time.Since(start)),
		)
		return Artifact{}, err
	}
	span.SetTag(observability.MetricOutputBytes, len(art.Data))
	log.Info("operation finished",
		observability.String("artifact", art.Name),
		observability.Int(observability.MetricOutputBytes, len(art.Data)),
		observability.Duration(observability.MetricOperationTime, time.Since(start)),
	)
	return art, nil
}

// artifactName builds {prefix}_{brand}_{unix millis}.{ext}.
func (e *Engine) artifactName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s_%d.%s", prefix, e.cfg.Brand, e.now().UnixMilli(), ext)
}

func (e *Engine) pdfArtifact(prefix string, data []byte) Artifact {
	return Artifact{Name: e.artifactName(prefix, "pdf"), Data: data, MIMEType: MIMEPDF}
}

func (e *Engine) load(op string, f *File) (container.Handle, error) {
	h, err := e.loader.Load(f.Data)
	if err != nil {
		return nil, classify(op, f, err)
	}
	return h, nil
}

func (e *Engine) serialize(op string, h container.Handle) ([]byte, error) {
	data, err := h.Serialize()
	if err != nil {
		return nil, classify(op, nil, err)
	}
	return data, nil
}

func (e *Engine) open(op string, f *File) (raster.Document, error) {
	doc, err := e.renderer.Open(f.Data)
	if err != nil {
		return nil, classify(op, f, err)
	}
	return doc, nil
}
