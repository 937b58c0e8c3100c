package bot

import (
	"fmt"
	"log"
	"sync"
)

// Module is a hot-reloadable unit of optional behavior. A module additionally
// implements any of the event listener interfaces it is interested in.
type Module interface {
	Name() string
	Init(b *Bot) error
	Unloaded()
}

// ModuleFactory constructs a fresh module instance. Reloading a module means
// constructing a new instance, initializing it, swapping the registry slot, and
// only then unloading the old instance.
type ModuleFactory func() Module

type moduleSlot struct {
	factory  ModuleFactory
	instance Module
	version  int
}

// moduleRegistry holds the loaded extension modules in load order
type moduleRegistry struct {
	bot   *Bot
	order []string
	slots map[string]*moduleSlot
	mu    sync.RWMutex
}

func newModuleRegistry(bot *Bot) *moduleRegistry {
	return &moduleRegistry{
		bot:   bot,
		slots: make(map[string]*moduleSlot),
	}
}

// load constructs and initializes a module and registers it under its name
func (r *moduleRegistry) load(factory ModuleFactory) error {
	instance := factory()
	name := instance.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[name]; ok {
		return fmt.Errorf("module %s already loaded", name)
	}
	if err := instance.Init(r.bot); err != nil {
		return fmt.Errorf("cannot initialize module %s: %w", name, err)
	}
	r.slots[name] = &moduleSlot{factory: factory, instance: instance, version: 1}
	r.order = append(r.order, name)
	log.Printf("[module %s] loaded", name)
	return nil
}

// reload swaps a module for a freshly constructed instance. The new instance is
// initialized before the swap; the old instance is unloaded after it, inside its
// own failure boundary.
func (r *moduleRegistry) reload(name string) error {
	r.mu.Lock()
	slot, ok := r.slots[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("no module named %s", name)
	}
	instance := slot.factory()
	if err := instance.Init(r.bot); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("cannot initialize module %s: %w", name, err)
	}
	old := slot.instance
	slot.instance = instance
	slot.version++
	version := slot.version
	r.mu.Unlock()
	unloadModule(old)
	log.Printf("[module %s] reloaded (version %d)", name, version)
	return nil
}

// unloadAll notifies every module of shutdown, each inside its own failure boundary,
// so one panicking module cannot prevent the others from being notified
func (r *moduleRegistry) unloadAll() {
	for _, module := range r.loaded() {
		unloadModule(module)
	}
	r.mu.Lock()
	r.order = nil
	r.slots = make(map[string]*moduleSlot)
	r.mu.Unlock()
}

// loaded snapshots the module instances in load order
func (r *moduleRegistry) loaded() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.slots[name].instance)
	}
	return modules
}

func unloadModule(module Module) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[module %s] panicked during unload: %v", module.Name(), r)
		}
	}()
	module.Unloaded()
}
