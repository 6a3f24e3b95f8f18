// Package workspace names and opens datasets. Drivers map file formats
// to dataset implementations, registries resolve dataset names from a
// YAML manifest, and directory workspaces expose a folder of data
// files.
package workspace

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hjanetzek/jeo/data"
)

var (
	// ErrUnknownDriver is returned when no registered driver claims a
	// name or path.
	ErrUnknownDriver = errors.New("workspace: unknown driver")

	// ErrUnknownDataset is returned when a workspace holds no dataset
	// with the requested name.
	ErrUnknownDataset = errors.New("workspace: unknown dataset")
)

// Driver opens datasets of one format.
type Driver interface {
	// Name is the canonical driver name, unique across the registry.
	Name() string
	// Aliases lists alternate names the driver answers to.
	Aliases() []string
	// CanOpen reports whether path looks like this driver's format.
	CanOpen(path string) bool
	// Open opens the dataset at path.
	Open(path string) (data.Dataset, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under its name and aliases. It
// panics when a name is already taken, in the manner of database/sql.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	for _, name := range append([]string{d.Name()}, d.Aliases()...) {
		if _, dup := drivers[name]; dup {
			panic("workspace: Register called twice for driver " + name)
		}
		drivers[name] = d
	}
}

// Drivers returns the sorted names of the registered drivers, aliases
// included.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DriverByName resolves a driver name or alias.
func DriverByName(name string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// DriverFor finds a registered driver that can open path.
func DriverFor(path string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	for _, d := range drivers {
		if d.CanOpen(path) {
			return d, true
		}
	}
	return nil, false
}

// Open opens the dataset at path with whichever driver claims it.
func Open(path string) (data.Dataset, error) {
	d, ok := DriverFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: no driver for %q", ErrUnknownDriver, path)
	}
	return d.Open(path)
}

// Option configures a Registry or Dir.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
