// Package importer feeds a watch folder into the timeline: files dropped
// into the configured directory are decoded and placed on the timeline the
// same way uploads are.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Benso1tana/MusicMasher/logger"
)

// Importer is the session-side entry point the watcher hands files to.
type Importer interface {
	Import(ctx context.Context, name string, raw []byte) (string, error)
}

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".aiff": true,
	".aif":  true,
}

// IsAudioFile reports whether the file name carries a supported audio
// extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Watcher imports audio files appearing in a directory.
type Watcher struct {
	dir      string
	importer Importer
	settle   time.Duration // quiet period before a new file is read

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewWatcher creates a watcher over dir. Files are read once their size has
// been stable for the settle period, so half-copied files are not imported.
func NewWatcher(dir string, imp Importer, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		importer: imp,
		settle:   settle,
		inFlight: make(map[string]bool),
	}
}

// Run watches the directory until ctx is cancelled. Per-file failures are
// logged and never stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	logger.Info("watching import directory", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !IsAudioFile(event.Name) {
				continue
			}
			if !w.claim(event.Name) {
				continue // already being settled
			}
			go w.settleAndImport(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[path] {
		return false
	}
	w.inFlight[path] = true
	return true
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()
}

// settleAndImport waits for the file size to stop changing, then imports.
func (w *Watcher) settleAndImport(ctx context.Context, path string) {
	defer w.release(path)

	const maxWait = 30 * time.Second
	deadline := time.Now().Add(maxWait)

	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.settle):
		}

		info, err := os.Stat(path)
		if err != nil {
			// Deleted or moved away before it settled.
			logger.Debug("watched file vanished", logger.String("path", path))
			return
		}
		if info.Size() == lastSize {
			break
		}
		lastSize = info.Size()

		if time.Now().After(deadline) {
			logger.Warn("watched file never settled", logger.String("path", path))
			return
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read watched file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, err := w.importer.Import(ctx, name, raw); err != nil {
		logger.Warn("auto-import failed",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	logger.Info("auto-imported", logger.String("path", path))
}
