// Package manifest handles playlang.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/playlang/vm"
)

// FileName is the name of the configuration file looked up by FindAndLoad.
const FileName = "playlang.toml"

// Log levels accepted in [log] level and by the -l flag.
var Levels = []string{"d", "i", "w", "e", "c"}

// Manifest represents a playlang.toml configuration.
type Manifest struct {
	Run Run `toml:"run"`
	Log Log `toml:"log"`

	// Path is the file the manifest was read from (set at load time).
	Path string `toml:"-"`
}

// Run configures program execution.
type Run struct {
	ByteWidth       int  `toml:"byte-width"`
	TrailingNewline bool `toml:"trailing-newline"`
	Trace           bool `toml:"trace"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no playlang.toml exists.
func Default() *Manifest {
	return &Manifest{
		Run: Run{
			ByteWidth:       vm.DefaultByteWidth,
			TrailingNewline: true,
		},
		Log: Log{Level: "w"},
	}
}

// Load parses playlang.toml from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file. Keys missing from the file keep
// their default values.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a playlang.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (m *Manifest) Validate() error {
	if err := vm.ValidateByteWidth(m.Run.ByteWidth); err != nil {
		return err
	}
	if !ValidLevel(m.Log.Level) {
		return fmt.Errorf("unknown log level %q (want one of %v)", m.Log.Level, Levels)
	}
	return nil
}

// ValidLevel reports whether level is one of Levels.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Verbosity maps a level letter to a commonlog verbosity.
func Verbosity(level string) int {
	switch level {
	case "d":
		return 2
	case "i":
		return 1
	case "e":
		return -2
	case "c":
		return -3
	}
	return -1
}
