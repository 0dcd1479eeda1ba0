package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
)

const (
	textMargin    = 50.0
	titleSize     = 18.0
	bodySize      = 12.0
	bodyLeading   = 16.0
	maxLineRunes  = 85
	fontBody      = "F1"
	fontTitle     = "F2"
	fontBodyName  = "Helvetica"
	fontTitleName = "Helvetica-Bold"
)

// TextPage describes a synthetic Letter page with a bold title and body
// lines. Long lines are wrapped on word boundaries.
type TextPage struct {
	Title string
	Lines []string
}

// AppendTextPage appends a synthetic text page.
func (d *Document) AppendTextPage(p TextPage) error {
	resources := types.Dict(map[string]types.Object{
		"Font": types.Dict(map[string]types.Object{
			fontBody:  standardFont(fontBodyName),
			fontTitle: standardFont(fontTitleName),
		}),
	})
	return d.appendPage(Letter.Width, Letter.Height, resources, textContent(p))
}

func standardFont(base string) types.Dict {
	return types.Dict(map[string]types.Object{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(base),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
}

func textContent(p TextPage) []byte {
	var b bytes.Buffer
	y := Letter.Height - textMargin - titleSize

	if p.Title != "" {
		fmt.Fprintf(&b, "BT /%s %s Tf %s %s Td (%s) Tj ET\n",
			fontTitle, num(titleSize), num(textMargin), num(y), escapeText(p.Title))
		y -= 2 * bodyLeading
	}

	var lines []string
	for _, l := range p.Lines {
		lines = append(lines, wrap(l, maxLineRunes)...)
	}
	if len(lines) == 0 {
		return b.Bytes()
	}

	fmt.Fprintf(&b, "BT /%s %s Tf %s TL %s %s Td\n",
		fontBody, num(bodySize), num(bodyLeading), num(textMargin), num(y))
	for i, l := range lines {
		if i > 0 {
			b.WriteString("T* ")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escapeText(l))
	}
	b.WriteString("ET\n")
	return b.Bytes()
}

// escapeText encodes s as WinAnsi and escapes it for a PDF literal string.
// Runes outside the encoding become '?'.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		switch {
		case c == '(' || c == ')' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// wrap splits s into lines of at most width runes, breaking on spaces when
// possible.
func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var out []string
	var cur []rune
	for _, w := range words {
		wr := []rune(w)
		for len(wr) > width {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(wr[:width]))
			wr = wr[width:]
		}
		switch {
		case len(cur) == 0:
			cur = wr
		case len(cur)+1+len(wr) <= width:
			cur = append(append(cur, ' '), wr...)
		default:
			out = append(out, string(cur))
			cur = wr
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
