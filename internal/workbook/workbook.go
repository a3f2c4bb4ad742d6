package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadable = errors.New("workbook is unreadable")
	ErrWriteBack  = errors.New("workbook could not be written back")
)

const BackupSuffix = ".orig.xz"

func Open(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return f, nil
}

func OpenReader(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return f, nil
}

// Save writes f to path. An existing file at path is replaced.
func Save(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteBack, path, err)
	}
	return nil
}

func Bytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteBack, err)
	}
	return buf.Bytes(), nil
}

// Backup stores an xz-compressed copy of the file at path next to it and
// returns the backup path.
func Backup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: backup source: %w", ErrWriteBack, err)
	}
	defer src.Close()

	dst := path + BackupSuffix
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w: backup target: %w", ErrWriteBack, err)
	}

	zw, err := xz.NewWriter(out)
	if err != nil {
		_ = out.Close()
		return "", fmt.Errorf("%w: %w", ErrWriteBack, err)
	}
	if _, err := io.Copy(zw, src); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return "", fmt.Errorf("%w: compress backup: %w", ErrWriteBack, err)
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("%w: compress backup: %w", ErrWriteBack, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteBack, err)
	}
	return dst, nil
}

// Restore decompresses a backup written by Backup into target.
func Restore(backupPath, target string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	zr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: backup %s: %w", ErrUnreadable, backupPath, err)
	}
	restored, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("%w: backup %s: %w", ErrUnreadable, backupPath, err)
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(target, restored, 0o600)
}
