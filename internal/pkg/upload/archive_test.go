package upload_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShiinaKin/random-img/internal/pkg/upload"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		if content != nil {
			_, err = f.Write(content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseArchive_ValidLayout(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"7/sunset.png": []byte("png-bytes"),
		"7/beach.jpg":  []byte("jpg-bytes"),
		"12/logo.png":  []byte("logo-bytes"),
	})

	files, err := upload.ParseArchive(data)
	require.NoError(t, err)
	require.Len(t, files, 3)

	byPath := map[string]upload.File{}
	for _, f := range files {
		byPath[f.Path] = f
	}

	sunset := byPath["7/sunset.png"]
	assert.Equal(t, int64(7), sunset.UID)
	assert.Equal(t, "sunset", sunset.PID)
	assert.Equal(t, []byte("png-bytes"), sunset.Content)

	logo := byPath["12/logo.png"]
	assert.Equal(t, int64(12), logo.UID)
	assert.Equal(t, "logo", logo.PID)
}

func TestParseArchive_ExplicitDirectoryEntries(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"7/":           nil,
		"7/sunset.png": []byte("png-bytes"),
	})

	files, err := upload.ParseArchive(data)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(7), files[0].UID)
}

func TestParseArchive_RejectsTopLevelFile(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"stray.png": []byte("x"),
	})

	_, err := upload.ParseArchive(data)
	assert.ErrorIs(t, err, upload.ErrBadArchive)
}

func TestParseArchive_RejectsNonNumericOwner(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"alice/sunset.png": []byte("x"),
	})

	_, err := upload.ParseArchive(data)
	assert.ErrorIs(t, err, upload.ErrBadArchive)
}

func TestParseArchive_RejectsDeepNesting(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string][]byte{
		"7/albums/sunset.png": []byte("x"),
	})

	_, err := upload.ParseArchive(data)
	assert.ErrorIs(t, err, upload.ErrBadArchive)
}

func TestParseArchive_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := upload.ParseArchive([]byte("not a zip"))
	assert.ErrorIs(t, err, upload.ErrBadArchive)
}
