package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
)

// Dir is a workspace over a directory of data files. Every file a
// registered driver claims becomes a dataset named after the file.
type Dir struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	names map[string]string // dataset name to path, nil until scanned
	open  map[string]data.Dataset

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// OpenDir opens a directory workspace. The directory is scanned on
// first use and the listing is cached; Watch keeps it in step with the
// file system.
func OpenDir(dir string, opts ...Option) (*Dir, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: %s is not a directory", dir)
	}
	o := newOptions(opts)
	return &Dir{dir: dir, log: o.log, open: make(map[string]data.Dataset)}, nil
}

// Names returns the sorted dataset names visible in the directory.
func (d *Dir) Names() ([]string, error) {
	d.mu.Lock()
	names, err := d.scanLocked()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Get opens the named dataset, reusing the instance across calls.
func (d *Dir) Get(name string) (data.Dataset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := d.scanLocked()
	if err != nil {
		return nil, err
	}
	path, ok := names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if ds, ok := d.open[name]; ok {
		return ds, nil
	}
	ds, err := Open(path)
	if err != nil {
		return nil, err
	}
	d.open[name] = ds
	return ds, nil
}

// scanLocked lists the directory once and caches the result. Callers
// hold d.mu. Directory entries come back sorted, so on a name
// collision the first file wins.
func (d *Dir) scanLocked() (map[string]string, error) {
	if d.names != nil {
		return d.names, nil
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(d.dir, e.Name())
		if _, ok := DriverFor(path); !ok {
			continue
		}
		name := datasetName(e.Name())
		if prev, dup := names[name]; dup {
			d.log.Warn("duplicate dataset name",
				zap.String("name", name),
				zap.String("kept", prev),
				zap.String("ignored", path))
			continue
		}
		names[name] = path
	}
	d.names = names
	return names, nil
}

// datasetName strips the extensions off a file name.
func datasetName(file string) string {
	name := strings.TrimSuffix(file, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Watch re-scans the directory when its contents change, so listings
// and lookups follow the file system. It returns once the watcher is
// installed; watching stops when ctx is done or the workspace is
// closed.
func (d *Dir) Watch(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		return errors.New("workspace: already watching " + d.dir)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(d.dir); err != nil {
		w.Close()
		return err
	}
	d.watcher = w
	d.done = make(chan struct{})
	go d.watch(ctx, w, d.done)
	return nil
}

func (d *Dir) watch(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			d.log.Debug("directory changed",
				zap.String("path", ev.Name),
				zap.String("op", ev.Op.String()))
			d.invalidate(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Warn("watch error", zap.Error(err))
		}
	}
}

// invalidate drops the listing cache and evicts the dataset backed by
// path, closing it if it was open.
func (d *Dir) invalidate(path string) {
	name := datasetName(filepath.Base(path))
	d.mu.Lock()
	d.names = nil
	ds, ok := d.open[name]
	if ok {
		delete(d.open, name)
	}
	d.mu.Unlock()
	if ok {
		if err := ds.Close(); err != nil {
			d.log.Warn("close evicted dataset",
				zap.String("name", name), zap.Error(err))
		}
	}
}

// Close stops the watcher and closes every opened dataset.
func (d *Dir) Close() error {
	d.mu.Lock()
	w, done := d.watcher, d.done
	d.watcher, d.done = nil, nil
	d.mu.Unlock()
	if w != nil {
		w.Close()
		<-done
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for name, ds := range d.open {
		if err := ds.Close(); err != nil && first == nil {
			first = err
		}
		delete(d.open, name)
	}
	return first
}
