package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	cause := errors.New("bad header")
	tests := []struct {
		name string
		err  *DomainError
		want string
	}{
		{"bare", InputError("no files", nil), "[input] no files"},
		{"cause", ProcessingError("open document", cause), "[processing] open document: bad header"},
		{"file", ProcessingError("decode", cause).WithFile("a.jpg"), `[processing] decode (file "a.jpg"): bad header`},
		{"page", ResourceError("write", nil).WithPage(3), "[resource] write (page 3)"},
		{"file and page", InputError("crop", nil).WithFile("b.pdf").WithPage(0), `[input] crop (file "b.pdf") (page 0)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIndexError(t *testing.T) {
	err := IndexError(5, 2)
	assert.Equal(t, 5, err.Page)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.True(t, IsInput(err))
	assert.Equal(t, "[input] page must be in [0, 2) (page 5): page index out of range", err.Error())
}

func TestTypeOf_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("step 2 (delete): %w", ProcessingError("x", nil))
	assert.Equal(t, ErrorTypeProcessing, TypeOf(wrapped))
	assert.True(t, IsProcessing(wrapped))
	assert.False(t, IsResource(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
