// Package watcher triggers registry rescans when the skills directory
// changes on disk. Events are debounced so a burst of writes (an
// editor save, a git checkout) causes one rescan, not dozens.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/logging"
)

// Watcher observes a skills root and its bundle directories.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(ctx context.Context)
	fs       *fsnotify.Watcher
}

// New returns a Watcher that calls onChange after debounce of quiet
// time follows a filesystem event under root.
func New(root string, debounce time.Duration, onChange func(ctx context.Context)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create filesystem watcher")
	}

	w := &Watcher{root: root, debounce: debounce, onChange: onChange, fs: fs}
	if err := w.addAll(); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

// addAll watches the root and each bundle directory. Descriptors are
// one level deep, so two levels of watches cover every edit.
func (w *Watcher) addAll() error {
	if err := w.fs.Add(w.root); err != nil {
		return errors.Wrapf(err, "cannot watch %s", w.root)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return errors.Wrapf(err, "cannot list %s", w.root)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		// Losing one bundle watch degrades to root-level events only.
		_ = w.fs.Add(filepath.Join(w.root, e.Name()))
	}
	return nil
}

// Run blocks, dispatching debounced change callbacks until ctx is
// cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.G(ctx).WithField("root", w.root)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.fs.Add(ev.Name)
				}
			}
			log.WithField("event", ev.String()).Debug("skills directory changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.onChange(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("filesystem watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
