package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/case-intake/internal/domain"
)

const sampleScript = `
output: edited.pdf
operations:
  - op: rotate
    page: 0
    angle: 90
  - op: crop_custom
    page: 1
    rect: [10, 10, 100, 50]
  - op: annotate
    page: 1
    kind: rectangle
    rect: [20, 20, 30, 10]
    color: "#00ff00"
  - op: reorder
    order: [2, 0, 1]
  - op: delete
    page: 0
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)
	assert.Equal(t, "edited.pdf", s.Output)
	require.Len(t, s.Operations, 5)
	assert.Equal(t, domain.OpRotate, s.Operations[0].Op)
	assert.Equal(t, []float64{10, 10, 100, 50}, s.Operations[1].Rect)
	assert.Equal(t, []int{2, 0, 1}, s.Operations[3].Order)
}

func TestParseScript_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"unknown op", "operations: [{op: explode}]"},
		{"crop without rect", "operations: [{op: crop_custom, page: 0}]"},
		{"bad kind", "operations: [{op: annotate, kind: circle, rect: [0, 0, 1, 1]}]"},
		{"bad color", "operations: [{op: annotate, kind: highlight, rect: [0, 0, 1, 1], color: blue}]"},
		{"bad filter", "operations: [{op: apply_filter, filter: sepia}]"},
		{"empty order", "operations: [{op: reorder}]"},
		{"not yaml", "operations: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.script))
			require.Error(t, err)
			assert.True(t, domain.IsInput(err))
		})
	}
}

func TestSession_Run(t *testing.T) {
	s := open(t, writeDoc(t, 100, 200, 300))

	script, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	var seen []domain.Operation
	require.NoError(t, s.Run(script, func(_ int, st Step) { seen = append(seen, st.Op) }))

	assert.Len(t, seen, 5)
	assert.Len(t, s.Log(), 5)
	// [300, 100(rotated), 200] minus the first page.
	assert.Equal(t, []float64{100, 200}, widths(t, s))
}

func TestSession_RunStopsAtFailure(t *testing.T) {
	s := open(t, writeDoc(t, 100))

	script, err := ParseScript([]byte("operations: [{op: rotate, page: 0, angle: 90}, {op: delete, page: 4}, {op: rotate, page: 0, angle: 180}]"))
	require.NoError(t, err)

	err = s.Run(script, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	assert.Contains(t, err.Error(), "step 2")
	assert.Len(t, s.Log(), 1)
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScript), 0o600))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Len(t, s.Operations, 5)
	assert.Equal(t, filepath.Join(dir, "edited.pdf"), s.Output)

	abs := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(path, []byte("output: "+abs+"\noperations: [{op: delete, page: 0}]\n"), 0o600))
	s, err = LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, abs, s.Output)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, domain.IsInput(err))
}
