// rjdemo drives the runtime the way compiled Java programs do: it defines
// classes, starts threads that append to a shared StringBuffer, joins
// them, and runs the shutdown barrier before exiting.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/rjava/lib/runtime"
	"github.com/chazu/rjava/manifest"
)

type options struct {
	configDir string
	workers   int
	rounds    int
	report    string
	verbose   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "C", ".", "Directory to search upward for rjava.toml")
	flag.IntVar(&opts.workers, "threads", 4, "Number of worker threads")
	flag.IntVar(&opts.rounds, "rounds", 3, "Appends per worker")
	flag.StringVar(&opts.report, "report", "", "Write a CBOR shutdown report to this path")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rjdemo [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a small multi-threaded program against the rjava runtime.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (*runtime.Config, error) {
	cfg := runtime.DefaultConfig()
	m, err := manifest.FindAndLoad(opts.configDir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		if cfg, err = m.RuntimeConfig(); err != nil {
			return nil, err
		}
	}
	if opts.report != "" {
		cfg.ReportPath = opts.report
	}
	if opts.verbose && cfg.Verbosity < 2 {
		cfg.Verbosity = 2
	}
	return cfg, nil
}

func run(opts options, out io.Writer) error {
	if opts.workers < 1 || opts.rounds < 0 {
		return fmt.Errorf("need at least one thread and a non-negative round count")
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := runtime.InitGlobal(cfg); err != nil {
		return err
	}
	defer runtime.CloseGlobal()
	rt := runtime.GlobalRuntime()

	// static initialization
	workerClass, err := defineWorker(rt)
	if err != nil {
		return err
	}

	shared := rt.NewStringBuffer()
	workers := make([]*worker, opts.workers)
	for i := range workers {
		w := &worker{shared: shared, rounds: opts.rounds}
		if err := rt.InitThread(w, workerClass, nil); err != nil {
			return err
		}
		w.SetName(fmt.Sprintf("worker-%d", i))
		workers[i] = w
	}

	// A plain Thread wrapping a Runnable, joined with a timeout.
	greeter := rt.NewThread(rt.NewRunnable(func() error {
		_, err := fmt.Fprintf(out, "hello from %s\n", runtime.CurrentThread().Name())
		return err
	}))

	for _, w := range workers {
		if _, err := rt.Dispatch(w, runtime.SelStart); err != nil {
			return err
		}
	}
	if err := greeter.Start(); err != nil {
		return err
	}
	if err := greeter.JoinMillis(1000); err != nil {
		return err
	}

	for _, w := range workers {
		if err := w.Join(); err != nil {
			return err
		}
		if err := w.Uncaught(); err != nil {
			return fmt.Errorf("%s failed: %w", w.Name(), err)
		}
	}

	text, err := shared.ToString()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d characters, hash %d\n", text.Length(), text.HashCode())
	fmt.Fprintln(out, text.String())

	return runtime.JoinAllThreads()
}

// worker is a Thread subclass whose run() appends its progress to a
// buffer shared by every worker.
type worker struct {
	runtime.Thread
	shared *runtime.StringBuffer
	rounds int
}

func defineWorker(rt *runtime.Runtime) (*runtime.Class, error) {
	return rt.DefineClass("demo.Worker", rt.ThreadClass, func(mt *runtime.MethodTable) {
		mt.AddMethod(runtime.SelRun, 0, func(self runtime.Object, args []runtime.Value) (runtime.Value, error) {
			w := self.(*worker)
			for i := 0; i < w.rounds; i++ {
				line, err := rt.NewStringBuffer().
					AppendString(rt.StringConstant("[")).
					AppendObject(w)
				if err != nil {
					return runtime.NilValue(), err
				}
				line.AppendChar(' ').
					AppendInt(int32(i)).
					AppendString(rt.StringConstant("]"))
				s, err := line.ToString()
				if err != nil {
					return runtime.NilValue(), err
				}
				w.shared.AppendString(s)
				runtime.Yield()
			}
			return runtime.NilValue(), w.shared.Err()
		})
	})
}
