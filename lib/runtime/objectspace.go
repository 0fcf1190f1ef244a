package runtime

import (
	"sort"
	"sync"
	"sync/atomic"
)

// MethodFunc is the signature for compiled and native method bodies.
// args has exactly NumArgs entries.
type MethodFunc func(self Object, args []Value) (Value, error)

// MethodEntry describes a single method slot
type MethodEntry struct {
	Selector int
	Name     string
	Impl     MethodFunc
	NumArgs  int
	Owner    *Class
}

// MethodTable collects the methods of a class while it is being defined.
// It is frozen when the definition callback returns.
type MethodTable struct {
	selectors *SelectorTable
	methods   map[int]*MethodEntry
	frozen    bool
}

// AddMethod adds or replaces the method for a selector ID.
func (mt *MethodTable) AddMethod(selector int, numArgs int, impl MethodFunc) {
	if mt.frozen {
		contractViolation("MethodTable.AddMethod", "class already sealed (selector %q)", mt.selectors.Name(selector))
	}
	mt.methods[selector] = &MethodEntry{
		Selector: selector,
		Name:     mt.selectors.Name(selector),
		Impl:     impl,
		NumArgs:  numArgs,
	}
}

// AddNamedMethod interns signature and adds the method under it.
func (mt *MethodTable) AddNamedMethod(signature string, numArgs int, impl MethodFunc) int {
	sel := mt.selectors.Intern(signature)
	mt.AddMethod(sel, numArgs, impl)
	return sel
}

// Class is the per-type descriptor: a name, an optional superclass and a
// vtable indexed by selector ID. A Class is immutable once defined.
type Class struct {
	Name       string
	Superclass *Class
	vtable     []*MethodEntry
}

// Lookup finds the method for selector, walking the superclass chain.
// Returns nil if no class in the chain defines it.
func (c *Class) Lookup(selector int) *MethodEntry {
	for k := c; k != nil; k = k.Superclass {
		if m := k.LookupLocal(selector); m != nil {
			return m
		}
	}
	return nil
}

// LookupLocal finds a method in this class only.
func (c *Class) LookupLocal(selector int) *MethodEntry {
	if selector >= 0 && selector < len(c.vtable) {
		return c.vtable[selector]
	}
	return nil
}

// HasMethod returns true if this class (not its ancestors) defines selector.
func (c *Class) HasMethod(selector int) bool {
	return c.LookupLocal(selector) != nil
}

// IsSubclassOf returns true if c is other or descends from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// LocalSelectors returns the selector IDs this class defines, sorted.
func (c *Class) LocalSelectors() []int {
	var sels []int
	for i, m := range c.vtable {
		if m != nil {
			sels = append(sels, i)
		}
	}
	return sels
}

func (c *Class) String() string {
	return c.Name
}

type classEntry struct {
	once  sync.Once
	class atomic.Pointer[Class]
	err   error
}

// ClassSpace holds every class defined in a runtime.
type ClassSpace struct {
	selectors *SelectorTable
	root      *Class
	classes   map[string]*classEntry
	mu        sync.RWMutex
}

// NewClassSpace creates an empty class space
func NewClassSpace(selectors *SelectorTable) *ClassSpace {
	return &ClassSpace{
		selectors: selectors,
		classes:   make(map[string]*classEntry),
	}
}

// Define registers a class exactly once. Concurrent and repeated calls
// with the same name run init at most once and all return the same
// *Class. A nil superclass means java.lang.Object.
func (cs *ClassSpace) Define(name string, superclass *Class, init func(mt *MethodTable)) (*Class, error) {
	if name == "" {
		return nil, newError(KindIllegalArgument, "defineClass", "empty class name")
	}

	cs.mu.Lock()
	entry, ok := cs.classes[name]
	if !ok {
		entry = &classEntry{}
		cs.classes[name] = entry
	}
	cs.mu.Unlock()

	entry.once.Do(func() {
		var class *Class
		class, entry.err = cs.build(name, superclass, init)
		if entry.err == nil {
			entry.class.Store(class)
			logger().Debug("class defined", "class", name, "methods", len(class.LocalSelectors()))
		}
	})
	if entry.err != nil {
		return nil, entry.err
	}
	class := entry.class.Load()
	if class == nil {
		return nil, newError(KindIllegalState, "defineClass", "definition of %s did not complete", name)
	}
	if superclass != nil && class.Superclass != superclass {
		return nil, newError(KindIllegalState, "defineClass",
			"%s already defined with superclass %s", name, class.Superclass)
	}
	return class, nil
}

func (cs *ClassSpace) mustDefine(name string, superclass *Class, init func(mt *MethodTable)) *Class {
	c, err := cs.Define(name, superclass, init)
	if err != nil {
		panic(err)
	}
	return c
}

func (cs *ClassSpace) build(name string, superclass *Class, init func(mt *MethodTable)) (*Class, error) {
	if superclass == nil {
		superclass = cs.Root()
	}
	if superclass != nil && cs.Get(superclass.Name) != superclass {
		return nil, newError(KindIllegalArgument, "defineClass",
			"superclass %s of %s is not defined in this runtime", superclass.Name, name)
	}

	mt := &MethodTable{
		selectors: cs.selectors,
		methods:   make(map[int]*MethodEntry),
	}
	if init != nil {
		init(mt)
	}
	mt.frozen = true

	class := &Class{Name: name, Superclass: superclass}
	maxSel := -1
	for sel := range mt.methods {
		if sel > maxSel {
			maxSel = sel
		}
	}
	class.vtable = make([]*MethodEntry, maxSel+1)
	for sel, m := range mt.methods {
		m.Owner = class
		class.vtable[sel] = m
	}

	return class, nil
}

// Root returns java.lang.Object, the implicit superclass of every class.
func (cs *ClassSpace) Root() *Class {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.root
}

func (cs *ClassSpace) setRoot(c *Class) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.root = c
}

// Get retrieves a defined class by name, or nil.
func (cs *ClassSpace) Get(name string) *Class {
	cs.mu.RLock()
	entry, ok := cs.classes[name]
	cs.mu.RUnlock()
	if !ok {
		return nil
	}
	// A class still being built is not visible yet.
	return entry.class.Load()
}

// Names returns all defined class names, sorted
func (cs *ClassSpace) Names() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.classes))
	for name, entry := range cs.classes {
		if entry.class.Load() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Count returns the number of defined classes
func (cs *ClassSpace) Count() int {
	return len(cs.Names())
}
