package export_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/export"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

func TestWrite_RejectsSymlinks(t *testing.T) {
	var buf bytes.Buffer
	err := export.Write(&buf, nil, []string{"link.txt"}, false)
	require.Error(t, err)
}

func TestWrite_SortsEntriesByPath(t *testing.T) {
	files := []hashing.RawFile{
		{Path: "b.txt", Bytes: []byte("b")},
		{Path: "a.txt", Bytes: []byte("a")},
	}
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, files, nil, false))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "a.txt", zr.File[0].Name)
	assert.Equal(t, "b.txt", zr.File[1].Name)
}

func TestWrite_DeterministicModeFixesTimestamps(t *testing.T) {
	files := []hashing.RawFile{{Path: "a.txt", Bytes: []byte("a")}}

	var buf1, buf2 bytes.Buffer
	require.NoError(t, export.Write(&buf1, files, nil, true))
	require.NoError(t, export.Write(&buf2, files, nil, true))

	assert.Equal(t, buf1.Bytes(), buf2.Bytes(), "deterministic exports of the same files must be byte-identical")
}

func TestWrite_RoundTripsContent(t *testing.T) {
	files := []hashing.RawFile{{Path: "SKILL.md", Bytes: []byte("# hello\n")}}
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, files, nil, true))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# hello\n", string(data))
}
