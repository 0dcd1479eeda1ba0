package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spherical/case-intake/pkg/intake"
)

// parseRect parses "x,y,w,h" in page points.
func parseRect(s string) (intake.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return intake.Rect{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return intake.Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = f
	}
	r := intake.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}
	if r.Empty() {
		return intake.Rect{}, fmt.Errorf("rect %q has no area", s)
	}
	return r, nil
}

func parseRects(values []string) ([]intake.Rect, error) {
	out := make([]intake.Rect, 0, len(values))
	for _, v := range values {
		r, err := parseRect(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
