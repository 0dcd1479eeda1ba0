package pdf

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/spherical/case-intake/internal/domain"
)

// MergeFiles concatenates the PDFs at parts, in order, into out.
func MergeFiles(parts []string, out string) error {
	switch len(parts) {
	case 0:
		return domain.InputError("nothing to merge", domain.ErrEmptyInput)
	case 1:
		if err := copyFile(parts[0], out); err != nil {
			return domain.ResourceError("write merged document", err)
		}
		return nil
	}

	if err := api.MergeCreateFile(parts, out, false, Config()); err != nil {
		return domain.ProcessingError("merge documents", err)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
