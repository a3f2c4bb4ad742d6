package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleFile(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Novák Jan"))
	return f
}

func TestSaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, Save(sampleFile(t), path))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Novák Jan", v)
}

func TestOpenUnreadable(t *testing.T) {
	_, err := OpenReader(strings.NewReader("not a zip archive"))
	require.ErrorIs(t, err, ErrUnreadable)

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	err := Save(sampleFile(t), filepath.Join(t.TempDir(), "no", "such", "dir", "book.xlsx"))
	require.ErrorIs(t, err, ErrWriteBack)
}

func TestBytesOpensAgain(t *testing.T) {
	data, err := Bytes(sampleFile(t))
	require.NoError(t, err)

	f, err := OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	require.NoError(t, Save(sampleFile(t), path))
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	backup, err := Backup(path)
	require.NoError(t, err)
	assert.Equal(t, path+BackupSuffix, backup)

	restored := filepath.Join(dir, "restored.xlsx")
	require.NoError(t, Restore(backup, restored))
	got, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestBackupMissingSource(t *testing.T) {
	_, err := Backup(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.ErrorIs(t, err, ErrWriteBack)
}
