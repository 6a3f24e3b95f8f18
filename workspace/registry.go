package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hjanetzek/jeo/data"
)

// Manifest is the on-disk registry format:
//
//	datasets:
//	  states:
//	    driver: geojson
//	    path: fixtures/states.json
//	  parcels:
//	    path: fixtures/parcels.fgb
type Manifest struct {
	Datasets map[string]ManifestEntry `yaml:"datasets"`
}

// ManifestEntry names the driver and location of one dataset. An empty
// driver means whichever driver claims the path.
type ManifestEntry struct {
	Driver string `yaml:"driver,omitempty"`
	Path   string `yaml:"path"`
}

// Registry resolves dataset names against a manifest. Datasets open
// lazily on first Get and stay cached until Close.
type Registry struct {
	entries map[string]ManifestEntry
	log     *zap.Logger

	mu   sync.Mutex
	open map[string]data.Dataset
}

// LoadRegistry reads a YAML manifest from path. Relative dataset paths
// are resolved against the manifest's directory.
func LoadRegistry(path string, opts ...Option) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := ParseManifest(raw, opts...)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for name, e := range r.entries {
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(base, e.Path)
			r.entries[name] = e
		}
	}
	return r, nil
}

// ParseManifest builds a registry from manifest bytes. Every entry
// must carry a path, and a named driver must be registered.
func ParseManifest(raw []byte, opts ...Option) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("workspace: parse manifest: %w", err)
	}
	o := newOptions(opts)
	r := &Registry{
		entries: make(map[string]ManifestEntry, len(m.Datasets)),
		log:     o.log,
		open:    make(map[string]data.Dataset),
	}
	for name, e := range m.Datasets {
		if e.Path == "" {
			return nil, fmt.Errorf("workspace: dataset %q: missing path", name)
		}
		if e.Driver != "" {
			if _, ok := DriverByName(e.Driver); !ok {
				return nil, fmt.Errorf("%w: %q (dataset %q)", ErrUnknownDriver, e.Driver, name)
			}
		}
		r.entries[name] = e
	}
	return r, nil
}

// Names returns the sorted dataset names the manifest declares.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get opens the named dataset, reusing the instance across calls.
func (r *Registry) Get(name string) (data.Dataset, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ds, ok := r.open[name]; ok {
		return ds, nil
	}

	var d Driver
	if e.Driver != "" {
		d, ok = DriverByName(e.Driver)
	} else {
		d, ok = DriverFor(e.Path)
	}
	if !ok {
		return nil, fmt.Errorf("%w: dataset %q", ErrUnknownDriver, name)
	}
	ds, err := d.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("workspace: open %q: %w", name, err)
	}
	r.log.Debug("opened dataset",
		zap.String("name", name),
		zap.String("driver", d.Name()),
		zap.String("path", e.Path))
	r.open[name] = ds
	return ds, nil
}

// Close closes every dataset the registry opened.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for name, ds := range r.open {
		if err := ds.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.open, name)
	}
	return first
}
