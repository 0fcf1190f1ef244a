package runtime

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
)

func currentGoroutineID() int64 {
	return goid.Get()
}

// ThreadRegistry tracks every started thread for the shutdown barrier,
// and maps goroutine ids to thread handles for CurrentThread.
type ThreadRegistry struct {
	mu         deadlock.Mutex
	started    []*Thread
	goroutines map[int64]*Thread
	adopted    int

	threadID     atomic.Int64
	threadNumber atomic.Int64
}

// NewThreadRegistry creates an empty registry
func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{
		goroutines: make(map[int64]*Thread),
	}
}

// nextThreadID returns ids starting at 1.
func (tr *ThreadRegistry) nextThreadID() int64 {
	return tr.threadID.Add(1)
}

// nextThreadNumber numbers unnamed threads from 0, as Thread-0, Thread-1...
func (tr *ThreadRegistry) nextThreadNumber() int64 {
	return tr.threadNumber.Add(1) - 1
}

func (tr *ThreadRegistry) register(t *Thread) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.started = append(tr.started, t)
}

func (tr *ThreadRegistry) bind(gid int64, t *Thread) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.goroutines[gid] = t
}

func (tr *ThreadRegistry) unbind(gid int64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.goroutines, gid)
}

func (tr *ThreadRegistry) lookup(gid int64) *Thread {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.goroutines[gid]
}

// adopt returns the handle for goroutine gid, creating it if needed. The
// first adopted goroutine is named "main".
func (tr *ThreadRegistry) adopt(r *Runtime, gid int64) *Thread {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if t, ok := tr.goroutines[gid]; ok {
		return t
	}
	name := "main"
	if tr.adopted > 0 {
		name = fmt.Sprintf("host-%d", gid)
	}
	tr.adopted++
	t := r.newAdoptedThread(name)
	tr.goroutines[gid] = t
	return t
}

// Threads returns every started thread in start order.
func (tr *ThreadRegistry) Threads() []*Thread {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]*Thread, len(tr.started))
	copy(out, tr.started)
	return out
}

// Count returns the number of started threads.
func (tr *ThreadRegistry) Count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.started)
}

// Live returns the started threads that have not terminated.
func (tr *ThreadRegistry) Live() []*Thread {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var live []*Thread
	for _, t := range tr.started {
		if t.State() != ThreadTerminated {
			live = append(live, t)
		}
	}
	return live
}

// JoinAll waits for every started thread to terminate, including threads
// started while it waits. The calling thread, if it is registered, is
// skipped. It returns early only when ctx is done.
func (tr *ThreadRegistry) JoinAll(ctx context.Context, self *Thread) error {
	for pass := 1; ; pass++ {
		var pending []*Thread
		for _, t := range tr.Live() {
			if t != self {
				pending = append(pending, t)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		threadLogger().Debug("joining outstanding threads", "pass", pass, "count", len(pending))
		for _, t := range pending {
			if err := t.JoinContext(ctx); err != nil {
				return fmt.Errorf("join-all interrupted waiting for %s: %w", t.Name(), err)
			}
		}
	}
}
