package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/case-intake/internal/coords"
	"github.com/spherical/case-intake/internal/domain"
)

// Validator provides input validation for PDF files and render requests
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	// Check if path is empty
	if strings.TrimSpace(path) == "" {
		return domain.InputError("file path cannot be empty", nil)
	}

	// Check if file exists
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.InputError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ResourceError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.InputError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.InputError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	return nil
}

// ValidateOutputPath checks that the directory of an output path exists.
func (v *Validator) ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.InputError("output path cannot be empty", nil)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return domain.ResourceError(fmt.Sprintf("output directory not accessible: %s", dir), err)
	}
	if !info.IsDir() {
		return domain.InputError(fmt.Sprintf("output parent is not a directory: %s", dir), nil)
	}
	return nil
}

// ValidateScale validates a render scale
func (v *Validator) ValidateScale(scale coords.Scale) error {
	if !scale.Valid() {
		return domain.InputError(fmt.Sprintf("render scale must be positive, got %v", float64(scale)), nil)
	}
	return nil
}

// ValidateQuality validates image quality parameter
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.InputError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}
