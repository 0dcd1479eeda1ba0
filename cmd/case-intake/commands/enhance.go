package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/case-intake/cmd/case-intake/ui"
	"github.com/spherical/case-intake/internal/attachment"
)

var enhanceOutDir string

var enhanceCmd = &cobra.Command{
	Use:   "enhance IMAGE...",
	Short: "Clean up document photos",
	Long: `Enhance runs each photo through the document enhancement pipeline
(denoise, contrast, binarize, upscale) and straightens it. Results are
written as <name>-enhanced.png.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceOutDir, "out-dir", "o", "", "output directory (default next to each input)")
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ui.Section("Image Enhancement")

	images := make([][]byte, len(args))
	for i, path := range args {
		if images[i], err = os.ReadFile(path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	spin := ui.NewSpinner(fmt.Sprintf("enhancing %d images on %d workers", len(args), client.Config().Concurrency()))
	spin.Start()
	results := client.EnhanceImages(ctx, images)
	spin.Stop()

	bar := ui.NewProgressBar(int64(len(results)), "writing")
	failed := 0
	for i, r := range results {
		bar.Add(1)
		if r.Err != nil {
			failed++
			ui.Error("%s: %v", args[i], r.Err)
			continue
		}
		out := enhancedPath(args[i])
		if err := attachment.SavePNG(r.Result.Raster, out); err != nil {
			failed++
			ui.Error("%s: %v", out, err)
			continue
		}
		if ui.Verbose() {
			ui.Step("%s -> %s (deskew %.2f°)", args[i], out, r.Result.DeskewAngle)
		}
	}
	bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	ui.Success("Enhanced %d images", len(args))
	return nil
}

func enhancedPath(in string) string {
	dir := filepath.Dir(in)
	if enhanceOutDir != "" {
		dir = enhanceOutDir
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(dir, base+"-enhanced.png")
}
