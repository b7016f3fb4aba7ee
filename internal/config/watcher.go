package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/taleforge/taleforge/internal/logger"
)

// Watcher keeps the model selection current while the server runs: edits to
// the config file take effect on the next action without a restart, matching
// how operators retune the story model mid-campaign. Only the Models section
// is applied live; addresses and paths need a restart.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.RWMutex
	current *Config
}

// NewWatcher starts watching the config file at path. initial is the config
// already loaded at startup.
func NewWatcher(path string, initial *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the parent directory: editors replace files via rename, which a
	// direct file watch loses track of.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		done:    make(chan struct{}),
		current: initial,
	}

	go w.loop()

	return w, nil
}

// Models returns the current model selection.
func (w *Watcher) Models() ModelsConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Models
}

// Reload re-reads the config file and applies the Models section. A file
// that is missing or fails to parse leaves the current selection in place.
func (w *Watcher) Reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn("Config reload failed, keeping current models: %v", err)
		return
	}

	w.mu.Lock()
	changed := cfg.Models != w.current.Models
	w.current = cfg
	w.mu.Unlock()

	if changed {
		logger.Info("Model selection reloaded: story=%s keywords=%s",
			cfg.Models.StoryContinuation, cfg.Models.KeywordExtraction)
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.Reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
