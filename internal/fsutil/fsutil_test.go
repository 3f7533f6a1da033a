package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	name, err := WriteFile(dir, "app-store.apk", []byte("first"), 0644)
	require.NoErrorf(t, err, "WriteFile() error = %v", err)
	assert.Equal(t, filepath.Join(dir, "app-store.apk"), name)

	// replaces the existing file.
	_, err = WriteFile(dir, "app-store.apk", []byte("second"), 0644)
	require.NoError(t, err)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	_, err := WriteFile(dir, "app.apk", []byte("data"), 0644)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteExclFile(t *testing.T) {
	dir := t.TempDir()

	for i, want := range []string{"app.apk", "app-1.apk", "app-2.apk"} {
		name, err := WriteExclFile(dir, "app", ".apk", []byte{byte(i)}, 0644)
		require.NoErrorf(t, err, "WriteExclFile() error = %v", err)
		assert.Equal(t, filepath.Join(dir, want), name)

		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, data)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "temp files must not be left behind")
}

func TestWriteExclFile_ClaimsNameBeforeData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.apk"), []byte("existing"), 0644))

	var claimed string
	afterClaim = func(name string) {
		claimed = name

		fi, err := os.Stat(name)
		require.NoError(t, err)
		assert.Zero(t, fi.Size(), "claimed name must be empty until data is renamed onto it")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 3, "existing file, claimed name, and temp file")
	}
	t.Cleanup(func() {
		afterClaim = func(string) {}
	})

	name, err := WriteExclFile(dir, "app", ".apk", []byte("data"), 0644)
	require.NoErrorf(t, err, "WriteExclFile() error = %v", err)
	assert.Equal(t, filepath.Join(dir, "app-1.apk"), name)
	assert.Equal(t, name, claimed)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	data, err = os.ReadFile(filepath.Join(dir, "app.apk"))
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), data)
}

func TestWriteExclFile_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	_, err := WriteExclFile(dir, "app", ".apk", []byte("data"), 0644)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
