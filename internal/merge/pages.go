package merge

import (
	"fmt"
	"time"

	"github.com/spherical/case-intake/internal/domain"
	"github.com/spherical/case-intake/internal/pdf"
)

// maxCoverEntries is how many filenames fit on the cover page.
const maxCoverEntries = 8

// Cover describes the optional first page summarising a case.
type Cover struct {
	CaseID   string
	Kind     string
	Received time.Time
}

// placeholderPage describes a file whose content cannot be shown inline.
func placeholderPage(f domain.UploadedFile) pdf.TextPage {
	if f.Kind() == domain.KindOffice {
		return pdf.TextPage{
			Title: "Word document included",
			Lines: []string{
				f.Filename,
				"",
				"Note: open the original file to view its full content.",
			},
		}
	}

	ext := f.Ext()
	if ext == "" {
		ext = "(none)"
	}
	return pdf.TextPage{
		Title: "Attached file",
		Lines: []string{
			f.Filename,
			"",
			"Type: " + ext,
			"Note: preview not supported for this file type.",
		},
	}
}

// coverPage lists the case details and the documents it contains.
func coverPage(c Cover, filenames []string) pdf.TextPage {
	received := c.Received
	if received.IsZero() {
		received = time.Now()
	}

	lines := []string{
		fmt.Sprintf("Reference: %s-%s", c.CaseID, received.Format("20060102")),
		"",
		"Case ID: " + c.CaseID,
		"Kind: " + c.Kind,
		"Received: " + received.Format("02/01/2006 15:04"),
		"Status: Under review",
		"",
		"Included documents:",
	}
	for i, name := range filenames {
		if i == maxCoverEntries {
			lines = append(lines, fmt.Sprintf("... and %d more files", len(filenames)-maxCoverEntries))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
	}
	return pdf.TextPage{Title: "CASE SUMMARY", Lines: lines}
}
