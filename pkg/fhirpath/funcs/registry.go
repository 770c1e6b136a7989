// Package funcs implements the FHIRPath standard function library. Every
// function registers itself into the package-level registry from an init()
// in its own file, so importing funcs for side effects is enough to make
// the full library available to an evaluator.
package funcs

import (
	"sort"
	"sync"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
)

// FuncDef re-exports eval.FuncDef so implementation files need only import
// this package.
type FuncDef = eval.FuncDef

// Registry is a concurrency-safe name -> FuncDef table. Most callers use
// the package-level functions below, which operate on a shared global
// instance; construct one directly only to sandbox a custom function set.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]eval.FuncDef
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]eval.FuncDef)}
}

func (r *Registry) Register(def eval.FuncDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[def.Name] = def
}

func (r *Registry) Get(name string) (eval.FuncDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns every registered name in sorted order, so callers printing
// or diffing the registry's contents (e.g. a `--list-functions` surface)
// get a stable result across runs despite the backing map.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// globalRegistry backs the package-level Register/Get/Has/List/GetRegistry
// functions; every funcs/*.go init() registers into this instance.
var globalRegistry = NewRegistry()

func Register(def eval.FuncDef) {
	globalRegistry.Register(def)
}

func Get(name string) (eval.FuncDef, bool) {
	return globalRegistry.Get(name)
}

func Has(name string) bool {
	return globalRegistry.Has(name)
}

func List() []string {
	return globalRegistry.List()
}

// GetRegistry exposes the global registry directly, for callers (e.g. the
// evaluator) that need to look up functions rather than just register them.
func GetRegistry() *Registry {
	return globalRegistry
}
