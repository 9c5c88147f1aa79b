package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wudi/silkpdf/geometry"
	"github.com/wudi/silkpdf/ops"
)

func (a *app) newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <input.pdf>...",
		Short: "Concatenate documents in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.KindMerge, args, ops.MergeOptions{})
		},
	}
}

func (a *app) newSplitCmd() *cobra.Command {
	var pages string
	cmd := &cobra.Command{
		Use:   "split <input.pdf>",
		Short: "Extract a page range, or every page into a zip archive",
		Long: `Without --pages every page becomes its own document, packed into one zip.
With --pages (for example "1-5,8,10-12") the selected pages form one document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ops.SplitOptions{Mode: ops.SplitAll}
			if pages != "" {
				opts = ops.SplitOptions{Mode: ops.SplitRange, Range: pages}
			}
			return a.run(cmd, ops.KindSplit, args, opts)
		},
	}
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "page range to extract")
	return cmd
}

func (a *app) newCompressCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "compress <input.pdf>",
		Short: "Re-encode a document, optionally rasterizing every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.KindCompress, args, ops.CompressOptions{Level: ops.CompressLevel(level)})
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", string(ops.CompressStandard), "standard, strong or extreme")
	return cmd
}

func (a *app) newImagesCmd() *cobra.Command {
	var orientation, margin string
	var preview bool
	cmd := &cobra.Command{
		Use:   "images <image>...",
		Short: "Convert JPEG and PNG images into a document, one page per image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ops.ImagesOptions{
				Orientation: geometry.Orientation(orientation),
				Margin:      geometry.Margin(margin),
			}
			if !preview {
				return a.run(cmd, ops.KindImages, args, opts)
			}
			files, err := readFiles(args[:1])
			if err != nil {
				return err
			}
			art, err := a.engine.PreviewImages(cmd.Context(), files[0], opts)
			if err != nil {
				return err
			}
			return a.write(cmd, art.Name, art.Data)
		},
	}
	cmd.Flags().StringVar(&orientation, "orientation", string(geometry.Portrait), "portrait or landscape")
	cmd.Flags().StringVar(&margin, "margin", string(geometry.MarginNone), "none, small or big")
	cmd.Flags().BoolVar(&preview, "preview", false, "convert only the first image")
	return cmd
}

func (a *app) newSignCmd() *cobra.Command {
	var (
		signature  string
		x, y       float64
		widthRatio float64
		page       int
	)
	cmd := &cobra.Command{
		Use:   "sign <input.pdf>",
		Short: "Place a signature image on one page",
		Long: `Position and width are fractions of the page, measured from its top-left
corner, and are kept within the same bounds as dragging in an editor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := os.ReadFile(signature)
			if err != nil {
				return fmt.Errorf("read signature: %w", err)
			}
			pos := geometry.ClampPosition(geometry.NormalizedPosition{X: x, Y: y})
			return a.run(cmd, ops.KindSign, args, ops.SignOptions{
				Signature:  sig,
				Position:   &pos,
				WidthRatio: geometry.ClampWidthRatio(widthRatio),
				TargetPage: page - 1,
			})
		},
	}
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "PNG or JPEG signature image")
	cmd.Flags().Float64Var(&x, "x", ops.DefaultSignatureX, "left edge as a fraction of page width")
	cmd.Flags().Float64Var(&y, "y", ops.DefaultSignatureY, "top edge as a fraction of page height")
	cmd.Flags().Float64Var(&widthRatio, "width", ops.DefaultWidthRatio, "signature width as a fraction of page width")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "1-based page to sign")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func (a *app) newWatermarkCmd() *cobra.Command {
	var text string
	var size float64
	cmd := &cobra.Command{
		Use:   "watermark <input.pdf>",
		Short: "Tile diagonal text across every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.KindWatermark, args, ops.WatermarkOptions{Text: text, FontSize: size})
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "watermark text")
	cmd.Flags().Float64Var(&size, "size", ops.DefaultWatermarkSize, "font size in points")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <input.pdf>",
		Short: "Export a document as a Word-compatible .doc",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.KindExport, args, ops.ExportOptions{})
		},
	}
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.pdf>",
		Short: "Print the page count and page sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}
			info, err := a.engine.Inspect(cmd.Context(), files[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d pages\n", files[0].Name, info.PageCount())
			for i, p := range info.Pages {
				fmt.Fprintf(out, "  page %d: %.2f x %.2f pt\n", i+1, p.Width, p.Height)
			}
			return nil
		},
	}
}

func (a *app) newPreviewCmd() *cobra.Command {
	var page int
	var scale float64
	cmd := &cobra.Command{
		Use:   "preview <input.pdf>",
		Short: "Render one page to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}
			data, err := a.engine.PreviewPage(cmd.Context(), files[0], page-1, scale)
			if err != nil {
				return err
			}
			base := strings.TrimSuffix(files[0].Name, filepath.Ext(files[0].Name))
			return a.write(cmd, fmt.Sprintf("%s_page%d.png", base, page), data)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "1-based page to render")
	cmd.Flags().Float64Var(&scale, "scale", 0, "pixels per point (default from config)")
	return cmd
}
