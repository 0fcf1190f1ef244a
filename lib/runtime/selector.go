package runtime

import "sync"

// Well-known selectors. They are interned first, in this order, by every
// SelectorTable so generated code may use the constants directly.
const (
	SelEquals = iota
	SelToString
	SelHashCode
	SelCharAt
	SelLength
	SelRun
	SelStart
	SelJoin
	SelJoinMillis
	SelJoinMillisNanos
	SelIsAlive
	SelAppendObject
	SelAppendInt
	SelAppendLong

	numWellKnownSelectors
)

var wellKnownSelectors = [numWellKnownSelectors]string{
	SelEquals:          "equals(Object)",
	SelToString:        "toString()",
	SelHashCode:        "hashCode()",
	SelCharAt:          "charAt(int)",
	SelLength:          "length()",
	SelRun:             "run()",
	SelStart:           "start()",
	SelJoin:            "join()",
	SelJoinMillis:      "join(long)",
	SelJoinMillisNanos: "join(long,int)",
	SelIsAlive:         "isAlive()",
	SelAppendObject:    "append(Object)",
	SelAppendInt:       "append(int)",
	SelAppendLong:      "append(long)",
}

// SelectorTable interns method signatures to numeric IDs so that vtable
// lookup is a slice index rather than a string comparison.
//
// The table is append-only. Concurrent Intern calls are safe.
type SelectorTable struct {
	mu     sync.RWMutex
	byName map[string]int
	byID   []string
}

// NewSelectorTable creates a table holding the well-known selectors.
func NewSelectorTable() *SelectorTable {
	st := &SelectorTable{
		byName: make(map[string]int, 64),
		byID:   make([]string, 0, 64),
	}
	for _, name := range wellKnownSelectors {
		st.Intern(name)
	}
	return st
}

// Intern returns the ID for a signature, creating a new ID if needed.
func (st *SelectorTable) Intern(name string) int {
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := len(st.byID)
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a signature, or -1 if it was never interned.
func (st *SelectorTable) Lookup(name string) int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id, ok := st.byName[name]; ok {
		return id
	}
	return -1
}

// Name returns the signature for an ID, or "" if invalid.
func (st *SelectorTable) Name(id int) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id < 0 || id >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned selectors.
func (st *SelectorTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}
