package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_WriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	w := NewCSVWriter(nil)

	err := w.WriteCSV(path, WriteOptions{
		Headers: []string{"Date", "Registered"},
		Records: [][]string{{"2026-01-23", "113269767"}},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Registered\n2026-01-23,113269767\n", string(content))

	// replace, not append
	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"Date"}}))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date\n", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestEncode_BOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"x,y", "z"}},
		BOMPrefix: true,
	}))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	assert.Equal(t, "a,b\n\"x,y\",z\n", string(buf.Bytes()[len(utf8BOM):]))
}

func TestWriteFileAtomic_CleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()

	// a non-empty directory at the destination makes the rename fail
	dest := filepath.Join(dir, "report.xls")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "child"), 0755))
	assert.Error(t, WriteFileAtomic(dest, []byte("new")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.xls", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestFormat(t *testing.T) {
	v := 113269767.0
	assert.Equal(t, "113269767", FormatFloat(v))
	assert.Equal(t, "31.25", FormatFloat(31.25))
	assert.Equal(t, "", FormatOptionalFloat(nil))
	assert.Equal(t, "113269767", FormatOptionalFloat(&v))
}
