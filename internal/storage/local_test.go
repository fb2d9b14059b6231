package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSave_DetectsTypeAndNamesByOwner(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, 1<<20)

	st, err := l.Save(7, bytes.NewReader(append(pngHeader, make([]byte, 100)...)), ReceiptTypes)
	require.NoError(t, err)

	assert.Equal(t, "image/png", st.MimeType)
	assert.Equal(t, "png", st.Extension)
	assert.True(t, strings.HasPrefix(st.Path, "7/"))
	assert.True(t, strings.HasSuffix(st.StoredName, ".png"))
	assert.Equal(t, int64(len(pngHeader)+100), st.Size)

	f, err := l.Open(st.Path)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngHeader))
}

func TestSave_RejectsUnsupportedType(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, 1<<20)

	_, err := l.Save(1, strings.NewReader("just some text"), ReceiptTypes)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_TooLargeLeavesNothingBehind(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, 64)

	_, err := l.Save(1, bytes.NewReader(append([]byte("%PDF-1.4\n"), make([]byte, 200)...)), ReceiptTypes)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(root, "1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_Empty(t *testing.T) {
	l := NewLocal(t.TempDir(), 0)
	_, err := l.Save(1, bytes.NewReader(nil), DocumentTypes)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestOpen_RejectsTraversal(t *testing.T) {
	l := NewLocal(t.TempDir(), 0)
	for _, p := range []string{"../etc/passwd", "/etc/passwd", "..", ""} {
		_, err := l.Open(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestRemove_MissingIsNotError(t *testing.T) {
	l := NewLocal(t.TempDir(), 0)
	assert.NoError(t, l.Remove("1/nope.pdf"))
}
