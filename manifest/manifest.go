// Package manifest handles rjava.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/rjava/lib/runtime"
)

// FileName is the name of the configuration file Load looks for.
const FileName = "rjava.toml"

// Manifest represents an rjava.toml file.
type Manifest struct {
	Runtime RuntimeSection `toml:"runtime"`
	Text    TextSection    `toml:"text"`
	Log     LogSection     `toml:"log"`

	// Dir is the directory containing the rjava.toml file (set at load time).
	Dir string `toml:"-"`

	meta toml.MetaData
}

// RuntimeSection configures thread shutdown.
type RuntimeSection struct {
	ShutdownTimeout string `toml:"shutdown-timeout"`
	Report          string `toml:"report"`
	LockChecking    bool   `toml:"lock-checking"`
}

// TextSection bounds strings and string buffers.
type TextSection struct {
	MaxLength             int `toml:"max-length"`
	BufferInitialCapacity int `toml:"buffer-initial-capacity"`
	BufferMaxCapacity     int `toml:"buffer-max-capacity"`
}

// LogSection configures commonlog.
type LogSection struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses an rjava.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	m.meta, err = toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := m.meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an rjava.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// IsSet reports whether the file defined the dotted key, e.g. "text.max-length".
func (m *Manifest) IsSet(key string) bool {
	return m.meta.IsDefined(strings.Split(key, ".")...)
}

// RuntimeConfig overlays the keys present in the file on
// runtime.DefaultConfig and validates the result. A relative report or
// log path is resolved against the manifest's directory.
func (m *Manifest) RuntimeConfig() (*runtime.Config, error) {
	cfg := runtime.DefaultConfig()

	if m.IsSet("runtime.shutdown-timeout") {
		d, err := time.ParseDuration(m.Runtime.ShutdownTimeout)
		if err != nil {
			return nil, fmt.Errorf("runtime.shutdown-timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if m.IsSet("runtime.report") && m.Runtime.Report != "" {
		cfg.ReportPath = m.resolve(m.Runtime.Report)
	}
	if m.IsSet("runtime.lock-checking") {
		cfg.LockChecking = m.Runtime.LockChecking
	}

	if m.IsSet("text.max-length") {
		cfg.MaxStringLength = m.Text.MaxLength
	}
	if m.IsSet("text.buffer-initial-capacity") {
		cfg.BufferInitialCapacity = m.Text.BufferInitialCapacity
	}
	if m.IsSet("text.buffer-max-capacity") {
		cfg.MaxBufferCapacity = m.Text.BufferMaxCapacity
	}

	if m.IsSet("log.verbosity") {
		cfg.Verbosity = m.Log.Verbosity
	}
	if m.IsSet("log.file") && m.Log.File != "" {
		cfg.LogFile = m.resolve(m.Log.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(m.Dir, FileName), err)
	}
	return cfg, nil
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}
