package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/phillip-england/shiftrecon/internal/workbook"
	"go.uber.org/zap"
)

var saveWorkbook = workbook.Save

type FileOptions struct {
	Options
	// Out is the output path. Empty means save over the input.
	Out string
	// HTMLPath, when set, receives the HTML summary.
	HTMLPath string
	// Backup keeps an xz copy of the input before it is overwritten.
	Backup bool
}

// ProcessFile runs Process on the workbook at path and writes the results.
func ProcessFile(ctx context.Context, env *Env, path string, opts FileOptions) (*Result, error) {
	f, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	res, err := Process(ctx, env, f, opts.Options)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		target := opts.Out
		if target == "" {
			target = path
		}
		var backup string
		if target == path && opts.Backup {
			backup, err = workbook.Backup(path)
			if err != nil {
				return nil, err
			}
			env.Logger.Info("backup written", zap.String("path", backup))
		}
		if err := saveWorkbook(f, target); err != nil {
			if backup == "" {
				return nil, err
			}
			if rerr := workbook.Restore(backup, path); rerr != nil {
				env.Logger.Error("restore from backup failed", zap.String("path", path), zap.Error(rerr))
				return nil, errors.Join(err, rerr)
			}
			env.Logger.Warn("save failed, input restored from backup", zap.String("path", path), zap.Error(err))
			return nil, err
		}
		env.Logger.Info("workbook saved", zap.String("path", target))
	}

	if opts.HTMLPath != "" {
		if err := os.WriteFile(opts.HTMLPath, res.HTML, 0o644); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}
	return res, nil
}
