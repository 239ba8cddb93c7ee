// Package policywatch keeps the navigation policy in sync with a YAML file on disk.
package policywatch

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
)

const debounceDelay = 500 * time.Millisecond

// Watcher serves the last valid policy read from path. A file that fails to
// parse or validate is logged and ignored.
type Watcher struct {
	path     string
	logger   *logrus.Logger
	current  atomic.Pointer[navigation.Policy]
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	onChange []func(*navigation.Policy)
	mu       sync.Mutex
}

// New loads the policy at path. The file is not watched until Start is called.
func New(path string, logger *logrus.Logger) (*Watcher, error) {
	p, err := navigation.Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:   filepath.Clean(path),
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	w.current.Store(p)
	return w, nil
}

func (w *Watcher) Current() *navigation.Policy {
	return w.current.Load()
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(*navigation.Policy)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start watches the directory holding the policy file. Editors often replace
// files by rename, which drops a watch placed on the file itself.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.watcher = fsw
	go w.loop()

	if w.logger != nil {
		w.logger.WithField("path", w.path).Info("Navigation policy hot reloading enabled")
	}
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				_ = w.Reload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.WithError(err).Error("Policy watcher error")
			}

		case <-w.stopCh:
			return
		}
	}
}

// Reload reads the file now. On failure the previous policy stays active.
func (w *Watcher) Reload() error {
	p, err := navigation.Load(w.path)
	if err != nil {
		if w.logger != nil {
			w.logger.WithError(err).WithField("path", w.path).Error("Invalid navigation policy after reload, keeping previous")
		}
		return err
	}
	w.current.Store(p)

	w.mu.Lock()
	callbacks := append([]func(*navigation.Policy){}, w.onChange...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(p)
	}

	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{
			"path":    w.path,
			"screens": len(p.Screens),
		}).Info("Navigation policy reloaded")
	}
	return nil
}

// Stop ends the watch loop. It is safe to call more than once, and without Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			<-w.done
		}
	})
}
