package sb3

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = content
	}
	return entries
}

func TestWriteBundle(t *testing.T) {
	manifest := []byte(`{"targets": []}`)
	assets := map[string][]byte{
		costumeA + ".svg": []byte("<svg/>"),
		soundA + ".wav":   []byte("RIFF"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, manifest, assets))

	entries := readZip(t, buf.Bytes())
	require.Len(t, entries, 3)
	assert.Equal(t, manifest, entries[ManifestFileName])
	assert.Equal(t, []byte("<svg/>"), entries[costumeA+".svg"])
	assert.Equal(t, []byte("RIFF"), entries[soundA+".wav"])
}

func TestWriterDuplicateAssetIgnored(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.AddManifest([]byte(`{}`)))
	require.NoError(t, w.AddAsset(costumeA+".svg", []byte("first")))
	require.NoError(t, w.AddAsset(costumeA+".svg", []byte("second")))
	require.NoError(t, w.Close())

	entries := readZip(t, buf.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("first"), entries[costumeA+".svg"])
}

func TestWriterRejectsInvalidAssetName(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.NoError(t, w.AddManifest([]byte(`{}`)))

	err := w.AddAsset("../escape.svg", []byte("x"))
	require.Error(t, err)
}

func TestWriterRequiresManifest(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	err := w.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifest")
}

func TestWriterRejectsSecondManifest(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.NoError(t, w.AddManifest([]byte(`{}`)))
	require.Error(t, w.AddManifest([]byte(`{}`)))
}
