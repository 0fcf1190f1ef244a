package runtime

import (
	"bytes"
	"context"
	"fmt"
	"math"
	goruntime "runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadState is the lifecycle state of a Thread.
type ThreadState int32

const (
	ThreadNew ThreadState = iota
	ThreadStarted
	ThreadRunning
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadNew:
		return "NEW"
	case ThreadStarted:
		return "STARTED"
	case ThreadRunning:
		return "RUNNABLE"
	case ThreadTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// ThreadObject is implemented by Thread and by every generated type that
// embeds it to override run().
type ThreadObject interface {
	Object
	JavaThread() *Thread
}

// Thread is java.lang.Thread backed by a goroutine.
type Thread struct {
	Header
	rt      *Runtime
	self    Object // outermost object; run() is dispatched on it
	target  Object // work item, may be nil
	id      int64
	adopted bool // handle for a goroutine the runtime did not spawn

	started atomic.Bool
	state   atomic.Int32
	done    chan struct{}

	mu       sync.Mutex
	name     string
	uncaught error
}

// JavaThread returns the receiver; embedding types inherit it.
func (t *Thread) JavaThread() *Thread {
	return t
}

// NewThread creates a java.lang.Thread whose run() invokes target's
// run(), or does nothing when target is nil.
func (r *Runtime) NewThread(target Object) *Thread {
	t := &Thread{}
	if err := r.InitThread(t, r.ThreadClass, target); err != nil {
		panic(err)
	}
	return t
}

// InitThread constructs self, a Thread or a generated subclass embedding
// one, as an instance of class. Overrides of run() on class are honored.
func (r *Runtime) InitThread(self ThreadObject, class *Class, target Object) error {
	if class == nil || !class.IsSubclassOf(r.ThreadClass) {
		return newError(KindIllegalArgument, "Thread.<init>", "%v is not a subclass of java.lang.Thread", class)
	}
	if err := Construct(self, class); err != nil {
		return err
	}
	t := self.JavaThread()
	t.rt = r
	t.self = self
	t.target = target
	t.id = r.threads.nextThreadID()
	t.name = fmt.Sprintf("Thread-%d", r.threads.nextThreadNumber())
	t.done = make(chan struct{})
	return nil
}

// Start spawns the goroutine that runs this thread. A thread can be
// started once; a second call fails with ErrIllegalState.
func (t *Thread) Start() error {
	if t.rt == nil {
		return newError(KindIllegalState, "Thread.start", "thread was not initialized")
	}
	if t.adopted || !t.started.CompareAndSwap(false, true) {
		return newError(KindIllegalState, "Thread.start", "%s already started", t.Name())
	}
	t.state.Store(int32(ThreadStarted))
	t.rt.threads.register(t)
	threadLogger().Debug("thread started", "thread", t.Name(), "id", t.id)
	go t.execute()
	return nil
}

func (t *Thread) execute() {
	gid := currentGoroutineID()
	t.rt.threads.bind(gid, t)
	defer func() {
		if p := recover(); p != nil {
			t.recordUncaught(fmt.Errorf("panic: %v", p), debug.Stack())
		}
		t.rt.threads.unbind(gid)
		t.state.Store(int32(ThreadTerminated))
		close(t.done)
		threadLogger().Debug("thread terminated", "thread", t.Name(), "id", t.id)
	}()

	t.state.Store(int32(ThreadRunning))
	if _, err := t.rt.Dispatch(t.self, SelRun); err != nil {
		t.recordUncaught(err, nil)
	}
}

// recordUncaught keeps the first failure that escaped run() and reports
// it the way a JVM reports an uncaught exception.
func (t *Thread) recordUncaught(err error, stack []byte) {
	t.mu.Lock()
	if t.uncaught == nil {
		t.uncaught = err
	}
	name := t.name
	t.mu.Unlock()

	var report bytes.Buffer
	fmt.Fprintf(&report, "Exception in thread %q %v\n", name, err)
	report.Write(stack)
	t.rt.writeStderr(report.Bytes())
	threadLogger().Critical("uncaught failure in thread", "thread", name, "id", t.id, "error", err.Error())
}

// Run invokes run() on the calling goroutine, as calling t.run()
// directly does in Java.
func (t *Thread) Run() error {
	if t.rt == nil {
		return newError(KindIllegalState, "Thread.run", "thread was not initialized")
	}
	_, err := t.rt.Dispatch(t.self, SelRun)
	return err
}

// Join blocks until the thread terminates. It returns immediately for a
// terminated thread and fails with ErrIllegalState if it never started
// or is an adopted host goroutine.
func (t *Thread) Join() error {
	if err := t.checkJoinable("Thread.join"); err != nil {
		return err
	}
	<-t.done
	return nil
}

// JoinMillis waits at most millis milliseconds; zero waits forever.
func (t *Thread) JoinMillis(millis int64) error {
	return t.JoinTimeout(millis, 0)
}

// JoinTimeout waits until the thread terminates or the timeout elapses.
// A zero timeout waits forever. Timing out is not an error; use IsAlive.
func (t *Thread) JoinTimeout(millis int64, nanos int32) error {
	d, err := timeoutDuration("Thread.join", millis, nanos)
	if err != nil {
		return err
	}
	if err := t.checkJoinable("Thread.join"); err != nil {
		return err
	}
	if d == 0 {
		<-t.done
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
	case <-timer.C:
	}
	return nil
}

// JoinContext waits until the thread terminates or ctx is done.
func (t *Thread) JoinContext(ctx context.Context) error {
	if err := t.checkJoinable("Thread.join"); err != nil {
		return err
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Thread) checkJoinable(op string) error {
	if t.adopted {
		return newError(KindIllegalState, op, "%s is not a runtime thread and cannot be joined", t.Name())
	}
	if t.rt == nil || !t.started.Load() {
		return newError(KindIllegalState, op, "%s was never started", t.Name())
	}
	return nil
}

// timeoutDuration validates Java's (millis, nanos) pair. Zero means no
// timeout; durations beyond time.Duration's range are treated the same.
func timeoutDuration(op string, millis int64, nanos int32) (time.Duration, error) {
	if millis < 0 {
		return 0, newError(KindIllegalArgument, op, "timeout value is negative: %d", millis)
	}
	if nanos < 0 || nanos > 999999 {
		return 0, newError(KindIllegalArgument, op, "nanosecond timeout value out of range: %d", nanos)
	}
	if millis > (math.MaxInt64-int64(nanos))/int64(time.Millisecond) {
		return 0, nil
	}
	return time.Duration(millis)*time.Millisecond + time.Duration(nanos), nil
}

// ID returns the thread's numeric id.
func (t *Thread) ID() int64 {
	return t.id
}

// Name returns the thread's name.
func (t *Thread) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName renames the thread.
func (t *Thread) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState {
	return ThreadState(t.state.Load())
}

// IsAlive reports whether the thread has started and not yet terminated.
func (t *Thread) IsAlive() bool {
	s := t.State()
	return s == ThreadStarted || s == ThreadRunning
}

// Uncaught returns the failure that escaped run(), if any.
func (t *Thread) Uncaught() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uncaught
}

// Done is closed when the thread terminates.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// ToString renders the thread as Thread[name].
func (t *Thread) ToString() (*String, error) {
	return t.rt.NewString("Thread[" + t.Name() + "]")
}

// Interrupt is declared by java.lang.Thread but has no defined semantics
// in this runtime yet.
func (t *Thread) Interrupt() error {
	return newError(KindUnsupported, "Thread.interrupt", "thread interruption is not implemented")
}

// Interrupted is declared by java.lang.Thread but not implemented.
func Interrupted() (bool, error) {
	return false, newError(KindUnsupported, "Thread.interrupted", "thread interruption is not implemented")
}

// HoldsLock is declared by java.lang.Thread but not implemented.
func HoldsLock(obj Object) (bool, error) {
	return false, newError(KindUnsupported, "Thread.holdsLock", "monitor ownership is not tracked")
}

// Sleep suspends the calling goroutine for at least millis milliseconds.
func Sleep(millis int64) error {
	return SleepNanos(millis, 0)
}

// SleepNanos suspends the calling goroutine for millis plus nanos.
func SleepNanos(millis int64, nanos int32) error {
	d, err := timeoutDuration("Thread.sleep", millis, nanos)
	if err != nil {
		return err
	}
	if d == 0 && millis > 0 {
		d = time.Duration(math.MaxInt64)
	}
	time.Sleep(d)
	return nil
}

// Yield hints the scheduler to run another goroutine.
func Yield() {
	goruntime.Gosched()
}

// CurrentThread returns the handle of the calling goroutine. Goroutines
// not started through Thread.Start get an adopted handle on first call.
// Adopted handles stay mapped for the life of the runtime, so short-lived
// host goroutines should not call it. They cannot be started or joined.
func (r *Runtime) CurrentThread() *Thread {
	gid := currentGoroutineID()
	if t := r.threads.lookup(gid); t != nil {
		return t
	}
	return r.threads.adopt(r, gid)
}

// DumpStack writes the calling goroutine's stack to the runtime's error
// writer.
func (r *Runtime) DumpStack() {
	var report bytes.Buffer
	fmt.Fprintf(&report, "Stack trace of thread %q:\n%s", r.CurrentThread().Name(), debug.Stack())
	r.writeStderr(report.Bytes())
}

// newAdoptedThread builds the handle for a goroutine the runtime did not
// spawn, such as the one running main. It is running, never registered
// with the shutdown barrier, and cannot be started.
func (r *Runtime) newAdoptedThread(name string) *Thread {
	t := &Thread{
		rt:      r,
		id:      r.threads.nextThreadID(),
		adopted: true,
		name:    name,
		done:    make(chan struct{}),
	}
	mustConstruct(t, r.ThreadClass)
	t.self = t
	t.started.Store(true)
	t.state.Store(int32(ThreadRunning))
	return t
}

// RunnableFunc adapts a Go function into a work item for NewThread.
type RunnableFunc struct {
	Header
	fn func() error
}

// NewRunnable wraps fn as a java.lang.Runnable.
func (r *Runtime) NewRunnable(fn func() error) *RunnableFunc {
	rf := &RunnableFunc{fn: fn}
	mustConstruct(rf, r.RunnableFuncClass)
	return rf
}

func registerThreadClasses(r *Runtime) (thread, runnable *Class) {
	thread = r.Classes.mustDefine("java.lang.Thread", nil, func(mt *MethodTable) {
		// run() delegates to the work item; subclasses override it.
		mt.AddMethod(SelRun, 0, func(self Object, args []Value) (Value, error) {
			t := self.(ThreadObject).JavaThread()
			if t.target == nil {
				return NilValue(), nil
			}
			return r.Dispatch(t.target, SelRun)
		})

		mt.AddMethod(SelStart, 0, func(self Object, args []Value) (Value, error) {
			return NilValue(), self.(ThreadObject).JavaThread().Start()
		})

		mt.AddMethod(SelJoin, 0, func(self Object, args []Value) (Value, error) {
			return NilValue(), self.(ThreadObject).JavaThread().Join()
		})

		mt.AddMethod(SelJoinMillis, 1, func(self Object, args []Value) (Value, error) {
			return NilValue(), self.(ThreadObject).JavaThread().JoinMillis(args[0].AsLong())
		})

		mt.AddMethod(SelJoinMillisNanos, 2, func(self Object, args []Value) (Value, error) {
			return NilValue(), self.(ThreadObject).JavaThread().JoinTimeout(args[0].AsLong(), args[1].AsInt())
		})

		mt.AddMethod(SelIsAlive, 0, func(self Object, args []Value) (Value, error) {
			return BoolValue(self.(ThreadObject).JavaThread().IsAlive()), nil
		})

		mt.AddMethod(SelToString, 0, func(self Object, args []Value) (Value, error) {
			s, err := self.(ThreadObject).JavaThread().ToString()
			if err != nil {
				return NilValue(), err
			}
			return ObjectValue(s), nil
		})
	})

	runnable = r.Classes.mustDefine("java.lang.Runnable$Func", nil, func(mt *MethodTable) {
		mt.AddMethod(SelRun, 0, func(self Object, args []Value) (Value, error) {
			rf := self.(*RunnableFunc)
			if rf.fn == nil {
				return NilValue(), nil
			}
			return NilValue(), rf.fn()
		})
	})
	return thread, runnable
}
