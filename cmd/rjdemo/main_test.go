package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/rjava/lib/runtime"
)

func TestRunDemo(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rjava.toml"), []byte("[runtime]\nshutdown-timeout = \"10s\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(dir, "shutdown.cbor")

	var out bytes.Buffer
	err := run(options{configDir: dir, workers: 3, rounds: 2, report: report}, &out)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "hello from Thread-") {
		t.Errorf("greeter output missing:\n%s", got)
	}
	for _, want := range []string{"[Thread[worker-0] 0]", "[Thread[worker-2] 1]"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	rep, err := runtime.ReadReport(report)
	if err != nil {
		t.Fatalf("ReadReport failed: %v", err)
	}
	if rep.Barriers != 1 {
		t.Errorf("shutdown barrier ran %d times, want 1", rep.Barriers)
	}
	if len(rep.Threads) != 4 {
		t.Errorf("report lists %d threads, want 4", len(rep.Threads))
	}
	for _, rec := range rep.Threads {
		if rec.State != "TERMINATED" || rec.Uncaught != "" {
			t.Errorf("thread record %+v", rec)
		}
	}
	if runtime.GlobalRuntime() != nil {
		t.Error("global runtime should be closed after run")
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	if err := run(options{configDir: t.TempDir(), workers: 0}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for zero workers")
	}
}

func TestLoadConfigFlagsOverrideManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rjava.toml"), []byte("[runtime]\nreport = \"from-file.cbor\"\n[log]\nverbosity = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(options{configDir: dir, report: "/tmp/flag.cbor", verbose: true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReportPath != "/tmp/flag.cbor" {
		t.Errorf("ReportPath = %q, want the flag value", cfg.ReportPath)
	}
	if cfg.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", cfg.Verbosity)
	}
}
