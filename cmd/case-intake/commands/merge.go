package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/case-intake/cmd/case-intake/ui"
	"github.com/spherical/case-intake/pkg/intake"
)

var (
	mergeOutput string
	mergeCover  bool
	mergeCaseID string
	mergeKind   string
	mergeStrict bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge FILE...",
	Short: "Merge case uploads into one PDF",
	Long: `Merge converts every file, in the order given, into pages of one PDF.
PDFs are appended as they are, images become one page each, and other files
become a placeholder page naming the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output PDF (default <output_dir>/case-<id>.pdf)")
	mergeCmd.Flags().BoolVar(&mergeCover, "cover", false, "prepend a case summary page")
	mergeCmd.Flags().StringVar(&mergeCaseID, "case-id", "", "case identifier shown on the cover page")
	mergeCmd.Flags().StringVar(&mergeKind, "kind", "", "case kind shown on the cover page")
	mergeCmd.Flags().BoolVar(&mergeStrict, "strict", false, "fail on files without a name instead of skipping them")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ui.Section("Case Merge")

	files := make([]intake.UploadedFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, intake.UploadedFile{Filename: filepath.Base(path), Data: data})
	}

	opts := intake.MergeOptions{
		OutputPath:      mergeOutput,
		StrictFilenames: mergeStrict,
	}
	if mergeCover {
		opts.Cover = &intake.Cover{CaseID: mergeCaseID, Kind: mergeKind, Received: time.Now()}
	}

	bar := ui.NewProgressBar(int64(len(files)), "converting")
	opts.OnFile = func(index, total int, filename string) {
		bar.Describe(filename)
		bar.Set(int64(index))
	}

	start := time.Now()
	res, err := client.Merge(ctx, files, opts)
	if err != nil {
		return err
	}
	bar.Set(int64(len(files)))
	bar.Finish()

	rows := make([][]string, 0, len(res.Pages))
	for i, p := range res.Pages {
		source, page := "cover", "-"
		if p.SourceIndex != intake.CoverSource {
			source = res.Filenames[p.SourceIndex]
			page = strconv.Itoa(p.SourcePage + 1)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), source, page})
	}
	if ui.Verbose() {
		ui.Table([]string{"PAGE", "SOURCE", "SOURCE PAGE"}, rows)
	}

	ui.Success("Merged %d files into %d pages in %s", len(res.Filenames), res.PageCount, ui.FormatDuration(time.Since(start)))
	ui.KeyValue("Output", res.Path)
	ui.KeyValue("Files", fmt.Sprint(res.Filenames))
	return nil
}
