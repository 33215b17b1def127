package fileutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"jamledger/stmt-ingest/internal/fileutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "statement.csv")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0600))

	assert.True(t, fileutils.FileExists(testFile))
	assert.False(t, fileutils.FileExists(filepath.Join(tmpDir, "missing.csv")))
	assert.False(t, fileutils.FileExists(tmpDir))
}

func TestDirectoryExists(t *testing.T) {
	tmpDir := t.TempDir()

	assert.True(t, fileutils.DirectoryExists(tmpDir))
	assert.False(t, fileutils.DirectoryExists(filepath.Join(tmpDir, "missing")))

	testFile := filepath.Join(tmpDir, "statement.csv")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0600))
	assert.False(t, fileutils.DirectoryExists(testFile))
}

func TestEnsureDirectoryExists(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "out", "nested")

	require.NoError(t, fileutils.EnsureDirectoryExists(newDir))
	assert.True(t, fileutils.DirectoryExists(newDir))

	// existing directory is fine
	assert.NoError(t, fileutils.EnsureDirectoryExists(newDir))
}

func TestRequireFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "statement.pdf")
	require.NoError(t, os.WriteFile(testFile, []byte("%PDF"), 0600))

	assert.NoError(t, fileutils.RequireFile(testFile))

	err := fileutils.RequireFile(filepath.Join(tmpDir, "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	err = fileutils.RequireFile(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestWriteWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "cleaned.csv")

	err := fileutils.WriteWith(path, func(f *os.File) error {
		_, err := f.WriteString("Date,Description\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path) // #nosec G304 -- test file
	require.NoError(t, err)
	assert.Equal(t, "Date,Description\n", string(data))

	// truncates on rewrite and surfaces the writer's error
	boom := errors.New("boom")
	err = fileutils.WriteWith(path, func(f *os.File) error { return boom })
	assert.ErrorIs(t, err, boom)

	data, err = os.ReadFile(path) // #nosec G304 -- test file
	require.NoError(t, err)
	assert.Empty(t, data)
}
