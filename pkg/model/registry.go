package model

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Registry is the process-wide option-model container referenced by
// spec.md §9's "global mutable state is limited to the option-model
// registry" design note. It is owned by the CLI entry point and passed
// explicitly to the classifier; it is read-mostly (safe to share by
// reference across the per-file worker pool) once a checking run starts,
// and supports an optional filesystem watch for long-running invocations.
type Registry struct {
	log     *logrus.Logger
	mu      sync.RWMutex
	models  map[string]Store
	mainKey string
	watcher *fsnotify.Watcher
}

// NewRegistry returns an empty Registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{log: log, models: make(map[string]Store)}
}

// LoadFile loads the model at path (dispatching on extension: ".cnf" for
// CNFStore, anything else for TextStore) and registers it under arch. The
// first model loaded becomes the main model unless SetMain is called
// explicitly afterwards.
func (r *Registry) LoadFile(arch, path string) error {
	var store Store
	var err error
	if filepath.Ext(path) == ".cnf" {
		store, err = NewCNFStore(r.log, path)
	} else {
		store, err = NewTextStore(r.log, path)
	}
	if err != nil {
		return errors.Wrapf(err, "loading model %q for arch %q", path, arch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[arch] = store
	if r.mainKey == "" {
		r.mainKey = arch
	}
	return nil
}

// SetMain designates arch as the main model used for the initial
// escalation ladder; other loaded models become cross-check models.
func (r *Registry) SetMain(arch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[arch]; !ok {
		return errors.Errorf("no model loaded for arch %q", arch)
	}
	r.mainKey = arch
	return nil
}

// Main returns the main model, or nil if none has been loaded.
func (r *Registry) Main() Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[r.mainKey]
}

// MainArch returns the arch key of the main model.
func (r *Registry) MainArch() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mainKey
}

// CrossCheck returns every loaded model other than the main model, keyed
// by arch. The result is a map, so its iteration order is not defined.
func (r *Registry) CrossCheck() map[string]Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Store, len(r.models))
	for arch, s := range r.models {
		if arch == r.mainKey {
			continue
		}
		out[arch] = s
	}
	return out
}

// Archs returns every loaded arch key, sorted.
func (r *Registry) Archs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	archs := make([]string, 0, len(r.models))
	for a := range r.models {
		archs = append(archs, a)
	}
	sort.Strings(archs)
	return archs
}

// Get returns the model loaded for arch, if any.
func (r *Registry) Get(arch string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.models[arch]
	return s, ok
}

// Watch starts watching dir for model-file changes and reloads the
// affected arch's model on write events. It is an ambient convenience
// for long-running invocations; callers that only run one-shot checks
// need not call it. The returned function stops the watch.
func (r *Registry) Watch(dir string, archOf func(path string) (arch string, ok bool)) (stop func() error, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "starting model watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "watching model directory %q", dir)
	}
	r.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				arch, ok := archOf(ev.Name)
				if !ok {
					continue
				}
				if err := r.LoadFile(arch, ev.Name); err != nil {
					r.log.WithError(err).WithField("path", ev.Name).Warn("failed to reload model")
					continue
				}
				r.log.WithField("arch", arch).WithField("path", ev.Name).Info("reloaded option model")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.log.WithError(err).Warn("model watcher error")
			}
		}
	}()

	return w.Close, nil
}
