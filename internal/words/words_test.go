package words

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSkipsCommentsAndNormalizes(t *testing.T) {
	d, err := Read(strings.NewReader("# header\nCRANE\n\nslate\ncrane\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 5, d.WordLength())
	assert.True(t, d.Contains("crane"))
	assert.True(t, d.Contains("SLATE"))
	assert.False(t, d.Contains("robot"))
}

func TestNewRejectsUnequalLengths(t *testing.T) {
	_, err := New([]string{"crane", "cranes"})
	require.ErrorIs(t, err, ErrUnequalLength)
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New([]string{"", "  "})
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbravo\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestLoadEmbeddedDefault(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 50)
	assert.Equal(t, 5, d.WordLength())
	assert.True(t, d.Contains("crane"))
}

func TestRandomReturnsDictionaryWord(t *testing.T) {
	d, err := New([]string{"alpha", "bravo", "delta"})
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.True(t, d.Contains(d.Random()))
	}
}
