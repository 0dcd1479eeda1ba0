// Package ui provides terminal output helpers for the case-intake CLI.
package ui

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

var (
	noColorFlag bool
	verboseFlag bool
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	noColorFlag = noColor
	verboseFlag = verbose

	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool {
	return verboseFlag
}

func printf(c *color.Color, w *os.File, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf("%s %s\n", prefix, fmt.Sprintf(format, args...))
	if noColorFlag {
		fmt.Fprint(w, msg)
		return
	}
	c.Fprint(w, msg)
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	printf(color.New(color.FgGreen), os.Stdout, "✓", format, args...)
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	printf(color.New(color.FgRed), os.Stderr, "✗", format, args...)
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	printf(color.New(color.FgYellow), os.Stdout, "⚠", format, args...)
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	printf(color.New(color.FgCyan), os.Stdout, "ℹ", format, args...)
}

// Step displays a step indicator message.
func Step(format string, args ...interface{}) {
	printf(color.New(color.FgBlue), os.Stdout, "→", format, args...)
}

// Section displays a section header.
func Section(title string) {
	c := color.New(color.FgCyan, color.Bold)
	if noColorFlag {
		fmt.Fprintf(os.Stdout, "\n%s\n", title)
	} else {
		c.Fprintf(os.Stdout, "\n%s\n", title)
	}
	fmt.Fprintf(os.Stdout, "%s\n\n", strings.Repeat("=", len(title)))
}

// KeyValue displays a key-value pair in a formatted way.
func KeyValue(key, value string) {
	fmt.Fprintf(os.Stdout, "  %s: %s\n", key, value)
}

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
