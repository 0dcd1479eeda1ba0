package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/case-intake/cmd/case-intake/ui"
	"github.com/spherical/case-intake/internal/attachment"
)

var (
	attachPage   int
	attachRegion string
	attachAreas  []string
	attachOutput string
)

var highlightCmd = &cobra.Command{
	Use:   "highlight PDF",
	Short: "Cut out a page region as a framed proof image",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

var previewCmd = &cobra.Command{
	Use:   "preview PDF",
	Short: "Render a page with areas outlined",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	for _, c := range []*cobra.Command{highlightCmd, previewCmd} {
		c.Flags().IntVarP(&attachPage, "page", "p", 0, "page index, starting at 0")
		c.Flags().StringVarP(&attachOutput, "output", "o", "", "output PNG (default <pdf>-p<page>-<kind>.png)")
	}
	highlightCmd.Flags().StringVarP(&attachRegion, "region", "r", "", "region x,y,w,h in page points (required)")
	highlightCmd.MarkFlagRequired("region")
	previewCmd.Flags().StringArrayVarP(&attachAreas, "area", "a", nil, "area x,y,w,h in page points to outline (repeatable)")

	rootCmd.AddCommand(highlightCmd, previewCmd)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	region, err := parseRect(attachRegion)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	img, err := client.Attachments().HighlightImage(data, attachPage, region)
	if err != nil {
		return err
	}
	out := attachPath(args[0], "highlight")
	if err := attachment.SavePNG(img, out); err != nil {
		return err
	}
	ui.Success("Wrote %s (%dx%d)", out, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	areas, err := parseRects(attachAreas)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	img, err := client.Attachments().PagePreview(data, attachPage, areas...)
	if err != nil {
		return err
	}
	out := attachPath(args[0], "preview")
	if err := attachment.SavePNG(img, out); err != nil {
		return err
	}
	ui.Success("Wrote %s with %d outlined areas", out, len(areas))
	return nil
}

func attachPath(pdfPath, kind string) string {
	if attachOutput != "" {
		return attachOutput
	}
	base := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	return fmt.Sprintf("%s-p%d-%s.png", base, attachPage, kind)
}
