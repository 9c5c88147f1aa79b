// Command silkpdf runs document operations from the command line: merge,
// split, compress, image conversion, signing, watermarking and export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wudi/silkpdf/config"
	"github.com/wudi/silkpdf/observability"
	"github.com/wudi/silkpdf/ops"
	"github.com/wudi/silkpdf/raster"
)

// app holds the state shared by every subcommand once the root command's
// pre-run has loaded configuration.
type app struct {
	cfgFile   string
	outDir    string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger observability.Logger
	engine *ops.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "silkpdf",
		Short:         "Merge, split, compress, sign, watermark and convert PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default: defaults and SILKPDF_* env vars)")
	root.PersistentFlags().StringVarP(&a.outDir, "out", "o", ".", "directory the artifact is written to")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		a.newMergeCmd(),
		a.newSplitCmd(),
		a.newCompressCmd(),
		a.newImagesCmd(),
		a.newSignCmd(),
		a.newWatermarkCmd(),
		a.newExportCmd(),
		a.newInfoCmd(),
		a.newPreviewCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewZerologLogger(cfg.Logger())

	// Operations that do not rasterize still work without the renderer.
	if err := raster.Init(); err != nil {
		a.logger.Warn("renderer unavailable", observability.Error("error", err))
	}

	a.engine, err = ops.NewEngineBuilder(cfg.Engine()).WithLogger(a.logger).Build()
	return err
}

func (a *app) run(cmd *cobra.Command, kind ops.Kind, paths []string, opts ops.Options) error {
	files, err := readFiles(paths)
	if err != nil {
		return err
	}
	art, err := a.engine.Process(cmd.Context(), kind, files, opts)
	if err != nil {
		return err
	}
	return a.write(cmd, art.Name, art.Data)
}

func (a *app) write(cmd *cobra.Command, name string, data []byte) error {
	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(a.outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func readFiles(paths []string) ([]ops.File, error) {
	files := make([]ops.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, ops.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "silkpdf: %v\n", err)
		os.Exit(1)
	}
}
