// Package watcher monitors the configuration file for edits so the service
// can restart with fresh settings.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors one file and calls onChange when it is written or
// replaced. The parent directory is what is actually watched: editors that
// rename-over the file would otherwise drop the watch.
type Watcher struct {
	targetPath string
	parentPath string
	onChange   func()
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	debounce   time.Duration
}

// New creates a Watcher for the given file path.
func New(targetPath string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		targetPath: targetPath,
		parentPath: filepath.Dir(targetPath),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   250 * time.Millisecond,
	}, nil
}

// Start begins watching. Missing parent directories are tolerated; the
// watch is re-established when they appear.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("failed to add initial watch")
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(w.targetPath) {
				// Parent recreated: re-establish the watch.
				if filepath.Clean(event.Name) == w.parentPath && event.Op&fsnotify.Create != 0 {
					_ = w.addWatch()
				}
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Editors fire several events per save; collapse them.
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				log.Info().Str("path", w.targetPath).Msg("configuration file changed")
				if w.onChange != nil {
					w.onChange()
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}
