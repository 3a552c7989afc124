package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/iancoleman/orderedmap"

	"github.com/WindLX/fly-ruler/log"
)

// LifecycleState is the plugin lifecycle state of spec.md §3: a plugin starts
// Disabled; a successful install transitions to Enabled; a successful
// uninstall returns to Disabled; any failed call makes it Failed terminally.
type LifecycleState int

const (
	Disabled LifecycleState = iota
	Enabled
	Failed
)

func (s LifecycleState) String() string {
	switch s {
	case Disabled:
		return "Disabled"
	case Enabled:
		return "Enabled"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Info is the descriptor metadata a manifest carries: name, author,
// version, description.
type Info struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Descriptor owns one loaded plugin's lifecycle. Concurrent install
// attempts are serialised by the descriptor's mutex (spec.md §5 "Shared
// resources").
type Descriptor struct {
	mu    sync.Mutex
	Info  Info
	Lib   *Library
	state LifecycleState
	lg    *log.Logger
}

// State returns the descriptor's current lifecycle state.
func (d *Descriptor) State() LifecycleState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// libName derives the platform-specific shared library filename from a
// plugin's declared name, per spec.md §4.2.
func libName(name string) string {
	switch runtime.GOOS {
	case "windows":
		return name + ".dll"
	case "darwin":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// LoadDirectory scans a plugin directory: it must contain a manifest.json
// (name/author/version/description) and the derived shared library. The
// library is loaded but left Disabled until Install is called.
func LoadDirectory(dir string, lg *log.Logger) (*Descriptor, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("fly-ruler: read manifest %s: %w", manifestPath, err)
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("fly-ruler: parse manifest %s: %w", manifestPath, err)
	}

	libPath := filepath.Join(dir, libName(info.Name))
	lib, err := Load(info.Name, libPath)
	if err != nil {
		return nil, err
	}

	return &Descriptor{Info: info, Lib: lib, state: Disabled, lg: lg}, nil
}

// Install transitions Disabled → Enabled. A call while not Disabled is a
// no-op that logs a warning (spec.md §4.2). Any failure moves the
// descriptor to Failed terminally.
func (d *Descriptor) Install(args []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Disabled {
		d.lg.Warnf("install requested for plugin %q in state %s, ignoring", d.Info.Name, d.state)
		return nil
	}
	if err := d.Lib.Install(args); err != nil {
		d.state = Failed
		return err
	}
	d.state = Enabled
	return nil
}

// Uninstall transitions Enabled → Disabled. A call while not Enabled is a
// no-op that logs a warning.
func (d *Descriptor) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Enabled {
		d.lg.Warnf("uninstall requested for plugin %q in state %s, ignoring", d.Info.Name, d.state)
		return nil
	}
	if err := d.Lib.Uninstall(); err != nil {
		d.state = Failed
		return err
	}
	d.state = Disabled
	return nil
}

// MarkFailed records a fatal error observed on this descriptor (e.g. a
// per-instance trim/step call returning <0), making the Failed transition
// terminal.
func (d *Descriptor) MarkFailed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Failed
}

// Registry holds every loaded plugin descriptor keyed by model id,
// preserving load order for GetModelInfos listings via orderedmap — ported
// from mmp-vice's stack (orderedmap is a direct mmp-vice dependency used
// there for deterministic JSON key ordering; here it gives deterministic
// plugin listing order instead of Go's randomised map iteration).
type Registry struct {
	mu    sync.RWMutex
	order *orderedmap.OrderedMap
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{order: orderedmap.New()}
}

// Add registers a descriptor under id, in load order.
func (r *Registry) Add(id string, d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order.Set(id, d)
}

// Get looks up a descriptor by id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.order.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Descriptor), true
}

// Snapshot returns (id, Info, state) tuples in load order, for
// GetModelInfos (spec.md §4.9).
func (r *Registry) Snapshot() []ModelInfoTuple {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := r.order.Keys()
	out := make([]ModelInfoTuple, 0, len(keys))
	for _, k := range keys {
		v, _ := r.order.Get(k)
		d := v.(*Descriptor)
		out = append(out, ModelInfoTuple{ID: k, Info: d.Info, State: d.State()})
	}
	return out
}

// ModelInfoTuple is one row of a GetModelInfos response.
type ModelInfoTuple struct {
	ID    string
	Info  Info
	State LifecycleState
}
