package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2026, 10, 16, 14, 5, 9, 0, time.UTC)

func TestFileName(t *testing.T) {
	assert.Equal(t, "laudo_pericial_20261016_140509.md", FileName(stamp))
}

func TestWriteDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := "# LAUDO\n\nconteúdo com acentuação\n"

	path, err := WriteDocument(dir, doc, stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "laudo_pericial_20261016_140509.md"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	_, err = WriteDocument(dir, "", stamp)
	assert.Error(t, err)
}

func TestToHTML(t *testing.T) {
	out, err := ToHTML("## Vistoria\n\n| Item | Estado |\n|---|---|\n| Fachada | Bom |\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<h2>Vistoria</h2>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}
