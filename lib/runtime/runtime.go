package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// Runtime is the main entry point for generated code. It owns the class
// space, the built-in classes, the literal pool and the thread registry.
type Runtime struct {
	Selectors *SelectorTable
	Classes   *ClassSpace

	ObjectClass       *Class
	StringClass       *Class
	StringBufferClass *Class
	ThreadClass       *Class
	RunnableFuncClass *Class

	cfg       Config
	session   uuid.UUID
	startedAt time.Time
	stderr    io.Writer
	stderrMu  deadlock.Mutex
	constants sync.Map // literal -> *String
	threads   *ThreadRegistry
	shutdowns atomic.Int32
}

// Config holds runtime configuration
type Config struct {
	MaxStringLength       int           // characters per String; 0 means unbounded
	BufferInitialCapacity int           // initial StringBuffer capacity
	MaxBufferCapacity     int           // StringBuffer growth limit
	ShutdownTimeout       time.Duration // bound for JoinAllThreads; 0 waits forever
	ReportPath            string        // CBOR shutdown report, written when set
	LockChecking          bool          // go-deadlock lock-order and timeout reports; process-wide
	Verbosity             int           // commonlog verbosity
	LogFile               string        // log destination; stderr when empty
	Stderr                io.Writer     // uncaught failures and stack dumps; os.Stderr when nil
}

// DefaultConfig returns a configuration with default values, honoring
// RJAVA_MAX_STRING and RJAVA_DEBUG.
func DefaultConfig() *Config {
	cfg := &Config{
		MaxStringLength:       DefaultMaxStringLength,
		BufferInitialCapacity: DefaultBufferCapacity,
		MaxBufferCapacity:     DefaultMaxBufferCapacity,
	}
	if v := os.Getenv("RJAVA_MAX_STRING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxStringLength = n
		}
	}
	if os.Getenv("RJAVA_DEBUG") != "" {
		cfg.Verbosity = 2
		cfg.LockChecking = true
	}
	return cfg
}

// Validate reports configuration values the runtime cannot honor.
func (c *Config) Validate() error {
	switch {
	case c.MaxStringLength < 0:
		return fmt.Errorf("max string length must not be negative, got %d", c.MaxStringLength)
	case c.BufferInitialCapacity < 0:
		return fmt.Errorf("buffer initial capacity must not be negative, got %d", c.BufferInitialCapacity)
	case c.MaxBufferCapacity < 0:
		return fmt.Errorf("buffer max capacity must not be negative, got %d", c.MaxBufferCapacity)
	case c.MaxBufferCapacity > 0 && c.BufferInitialCapacity > c.MaxBufferCapacity:
		return fmt.Errorf("buffer initial capacity %d exceeds max capacity %d",
			c.BufferInitialCapacity, c.MaxBufferCapacity)
	case c.ShutdownTimeout < 0:
		return fmt.Errorf("shutdown timeout must not be negative, got %s", c.ShutdownTimeout)
	}
	return nil
}

// New creates a runtime and defines the built-in classes.
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runtime config: %w", err)
	}
	applyLockChecking(cfg.LockChecking)

	r := &Runtime{
		Selectors: NewSelectorTable(),
		cfg:       *cfg,
		session:   uuid.New(),
		startedAt: time.Now(),
		stderr:    cfg.Stderr,
		threads:   NewThreadRegistry(),
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	r.Classes = NewClassSpace(r.Selectors)

	// Built-in classes are defined eagerly, before any generated code runs.
	r.ObjectClass = registerObjectClass(r)
	r.StringClass = registerStringClass(r)
	r.StringBufferClass = registerStringBufferClass(r)
	r.ThreadClass, r.RunnableFuncClass = registerThreadClasses(r)

	logger().Info("runtime created", "session", r.session.String(), "classes", r.Classes.Count())
	return r, nil
}

// DefineClass registers a generated class once; see ClassSpace.Define.
func (r *Runtime) DefineClass(name string, superclass *Class, init func(mt *MethodTable)) (*Class, error) {
	return r.Classes.Define(name, superclass, init)
}

// Config returns a copy of the runtime's configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Session returns the id stamped on this runtime's logs and reports.
func (r *Runtime) Session() uuid.UUID {
	return r.session
}

// Threads returns the thread registry.
func (r *Runtime) Threads() *ThreadRegistry {
	return r.threads
}

// JoinAllThreads is the shutdown barrier: it waits for every started
// thread to terminate, bounded by the configured shutdown timeout, then
// writes the shutdown report if one is configured.
func (r *Runtime) JoinAllThreads() error {
	ctx := context.Background()
	if r.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ShutdownTimeout)
		defer cancel()
	}
	return r.JoinAllThreadsContext(ctx)
}

// JoinAllThreadsContext is JoinAllThreads with a caller-supplied bound.
func (r *Runtime) JoinAllThreadsContext(ctx context.Context) error {
	var self *Thread
	if t := r.threads.lookup(currentGoroutineID()); t != nil && !t.adopted {
		self = t
	}
	joinErr := r.threads.JoinAll(ctx, self)
	if joinErr != nil {
		logger().Error("shutdown barrier incomplete", "session", r.session.String(), "error", joinErr.Error())
	} else {
		logger().Debug("shutdown barrier complete", "session", r.session.String(), "threads", r.threads.Count())
	}

	r.shutdowns.Add(1)
	if r.cfg.ReportPath != "" {
		if err := WriteReport(r.cfg.ReportPath, r.Report()); err != nil {
			if joinErr != nil {
				return fmt.Errorf("%w; %v", joinErr, err)
			}
			return err
		}
	}
	return joinErr
}

// Close runs the shutdown barrier.
func (r *Runtime) Close() error {
	return r.JoinAllThreads()
}

// ============================================================================
// Global runtime instance (for generated main functions)
// ============================================================================

var (
	globalRuntime *Runtime
	globalMu      sync.Mutex
)

// GlobalRuntime returns the global runtime instance
func GlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalRuntime
}

// InitGlobal initializes the global runtime and applies the process-wide
// logging and lock-checking settings. Later calls are no-ops.
func InitGlobal(cfg *Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return nil // Already initialized
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ApplyProcessSettings(cfg)

	r, err := New(cfg)
	if err != nil {
		return err
	}

	globalRuntime = r
	return nil
}

// CloseGlobal discards the global runtime. It does not run the shutdown
// barrier; generated main functions call JoinAllThreads for that, once.
func CloseGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRuntime = nil
}

// JoinAllThreads is the shutdown hook generated main functions call
// once before returning. It is a no-op without a global runtime.
func JoinAllThreads() error {
	if r := GlobalRuntime(); r != nil {
		return r.JoinAllThreads()
	}
	return nil
}

// CurrentThread returns the calling goroutine's handle in the global
// runtime, or nil without one.
func CurrentThread() *Thread {
	if r := GlobalRuntime(); r != nil {
		return r.CurrentThread()
	}
	return nil
}
