package vm

import (
	"sync"

	"github.com/kristofer/smog/pkg/bytecode"
	"golang.org/x/sync/singleflight"
)

// moduleState is a named module's position in its Init -> Loading -> Ready
// lifecycle.
type moduleState int

const (
	moduleInit moduleState = iota
	moduleLoading
	moduleReady
)

// moduleEntry is one named module's load state: its compiled instructions
// while unevaluated, its resulting Value once Ready.
type moduleEntry struct {
	state moduleState
	ir    []bytecode.Instruction
	value Value
}

// ModuleLoader resolves Module instructions to values, evaluating each
// named module's instruction vector at most once. Re-entrant loads of a
// module still in Loading state (a true import cycle) fail with
// ModuleLoadLoop; concurrent loads of a not-yet-ready module are
// deduplicated through a singleflight.Group rather than evaluated twice.
type ModuleLoader struct {
	mu      sync.Mutex
	modules map[string]*moduleEntry
	group   singleflight.Group
}

// NewModuleLoader returns an empty loader; modules are registered with
// AddInit (or AddReady for values supplied directly, e.g. a host-provided
// System module) before any program referencing them runs.
func NewModuleLoader() *ModuleLoader {
	return &ModuleLoader{modules: make(map[string]*moduleEntry)}
}

// AddInit registers name's compiled body, to be evaluated lazily on first
// Load.
func (l *ModuleLoader) AddInit(name string, ir []bytecode.Instruction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[name] = &moduleEntry{state: moduleInit, ir: ir}
}

// AddReady registers name as already evaluated to value, for modules the
// host supplies directly rather than compiles (e.g. System/IO).
func (l *ModuleLoader) AddReady(name string, value Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[name] = &moduleEntry{state: moduleReady, value: value}
}

// Load resolves name to its module value, evaluating it against prims if
// this is the first load. The Loading-state re-entrancy check happens
// before the singleflight call so that a genuine cycle (a module whose own
// evaluation tries to load itself, directly or transitively) is still
// reported as ModuleLoadLoop rather than silently deduplicated alongside an
// unrelated concurrent first-load.
func (l *ModuleLoader) Load(name string, prims *Primitives) (Value, error) {
	l.mu.Lock()
	entry, ok := l.modules[name]
	if !ok {
		l.mu.Unlock()
		return nil, newRuntimeError(UnknownModule, name, nil)
	}
	switch entry.state {
	case moduleReady:
		v := entry.value
		l.mu.Unlock()
		return v, nil
	case moduleLoading:
		l.mu.Unlock()
		return nil, newRuntimeError(ModuleLoadLoop, name, nil)
	}
	entry.state = moduleLoading
	ir := entry.ir
	l.mu.Unlock()

	result, err, _ := l.group.Do(name, func() (interface{}, error) {
		return New(l, prims).Run(ir)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		// Leave the module re-loadable rather than permanently wedged in
		// Loading after a failed evaluation.
		entry.state = moduleInit
		return nil, err
	}
	entry.value = result.(Value)
	entry.state = moduleReady
	return entry.value, nil
}
