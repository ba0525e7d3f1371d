// Package watcher ingests PDFs dropped into an inbox directory.
//
// Files are picked up on creation and ingested once writes settle, so
// partially copied files are not read mid-transfer.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ragdoc-labs/ragdoc-cli/internal/core/ports/driving"
	"github.com/ragdoc-labs/ragdoc-cli/internal/logger"
)

// DefaultSettleDelay is how long a file must stay quiet before it is
// considered fully written.
const DefaultSettleDelay = 2 * time.Second

// Watcher monitors an inbox directory and ingests new PDFs.
type Watcher struct {
	ingestor driving.Ingestor
	dir      string
	settle   time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir. A settle delay of zero uses the
// default.
func New(ingestor driving.Ingestor, dir string, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{
		ingestor: ingestor,
		dir:      dir,
		settle:   settle,
		timers:   make(map[string]*time.Timer),
	}
}

// Run ingests PDFs already present in the inbox, then watches for new
// ones until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return fmt.Errorf("creating inbox directory: %w", err)
	}

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	logger.Info("Watching %s for new PDFs", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.scheduleIngest(ctx, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// ingestExisting picks up PDFs that were already in the inbox.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading inbox directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// scheduleIngest (re)starts the settle timer for a path. Each write
// event pushes the timer back, so the file is only ingested once the
// writer goes quiet.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.settle)
		return
	}

	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.ingestFile(ctx, path)
	})
}

// ingestFile hands one file to the ingestor and removes it from the
// inbox on success.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Failed to open %s: %v", path, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Warn("Failed to stat %s: %v", path, err)
		return
	}

	doc, err := w.ingestor.Ingest(ctx, filepath.Base(path), f, info.Size())
	if err != nil {
		logger.Warn("Failed to ingest %s: %v", path, err)
		return
	}
	logger.Info("Ingested %s as %s", filepath.Base(path), doc.ID)

	// The upload is stored by the ingestor; the inbox copy is done.
	if err := os.Remove(path); err != nil {
		logger.Warn("Failed to remove %s from inbox: %v", path, err)
	}
}

// stopTimers cancels pending settle timers on shutdown.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// isPDF reports whether the path has a .pdf extension.
func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
