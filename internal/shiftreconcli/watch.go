package shiftreconcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phillip-england/shiftrecon/internal/config"
	"github.com/phillip-england/shiftrecon/internal/pipeline"
	"go.uber.org/zap"
)

const (
	watchSettle = 500 * time.Millisecond
	watchTick   = 100 * time.Millisecond
)

// inboxWatcher reconciles every workbook that lands in inbox and writes the
// result plus its HTML summary into outbox. Each file gets its own run.
type inboxWatcher struct {
	inbox   string
	outbox  string
	cfg     *config.Config
	log     *zap.Logger
	pending map[string]time.Time
	// processed is called after every attempt; tests hook in here.
	processed func(path string, err error)
}

func newInboxWatcher(inbox, outbox string, cfg *config.Config, log *zap.Logger) *inboxWatcher {
	return &inboxWatcher{
		inbox:   inbox,
		outbox:  outbox,
		cfg:     cfg,
		log:     log,
		pending: make(map[string]time.Time),
	}
}

func (w *inboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.outbox, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.inbox); err != nil {
		return fmt.Errorf("watch %s: %w", w.inbox, err)
	}
	w.log.Info("watching inbox", zap.String("inbox", w.inbox), zap.String("outbox", w.outbox))

	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *inboxWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isWorkbook(event.Name) {
		return
	}
	w.pending[event.Name] = time.Now()
}

// flush processes files that have not changed for watchSettle.
func (w *inboxWatcher) flush(ctx context.Context, now time.Time) {
	for path, seen := range w.pending {
		if now.Sub(seen) < watchSettle {
			continue
		}
		delete(w.pending, path)
		err := w.process(ctx, path)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("inbox workbook failed", zap.String("path", path), zap.Error(err))
		}
		if w.processed != nil {
			w.processed(path, err)
		}
	}
}

func (w *inboxWatcher) process(ctx context.Context, path string) error {
	env := pipeline.NewEnv(w.cfg, w.log)
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	res, err := pipeline.ProcessFile(ctx, env, path, pipeline.FileOptions{
		Out:      filepath.Join(w.outbox, name),
		HTMLPath: filepath.Join(w.outbox, stem+".html"),
	})
	if err != nil {
		return err
	}
	env.Logger.Info("inbox workbook reconciled",
		zap.String("path", path),
		zap.Int("shifts", res.Report.TotalShifts),
		zap.Int("withBoth", res.Report.ShiftsWithBoth))
	return nil
}

// isWorkbook skips office lock files and anything that is not .xlsx.
func isWorkbook(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}
