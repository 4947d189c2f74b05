// Package config loads a TOML session configuration the way
// cmd/gprobe/config.go loads gprobeConfig: a naoina/toml decoder
// configured so struct field names double as TOML keys verbatim, with
// an unknown-field hook that logs a warning and keeps loading instead
// of failing, the same deprecated-field-tolerant behavior the teacher's
// own MissingField hook implements.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/olealgoritme/ramfuck/internal/log"
)

// tomlSettings mirrors cmd/gprobe/config.go's tomlSettings: identity
// field<->key mapping, and a MissingField hook that warns about a field
// this version doesn't know about instead of failing the load, the same
// way the teacher's hook logs a deprecated field and continues.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		log.Warnf("config field is not defined, ignoring", "field", fmt.Sprintf("%s.%s", rt.String(), field))
		return nil
	},
}

// Target describes how to attach to a process: by pid or by name (the
// first process gopsutil's process list matches, in order).
type Target struct {
	Pid  int32  `toml:",omitempty"`
	Name string `toml:",omitempty"`
}

// Scan holds the scan engine's tunables.
type Scan struct {
	Alignment   int     `toml:",omitempty"` // candidate address stride in bytes; 0 means use Type's natural width
	Parallel    bool    `toml:",omitempty"` // scan regions concurrently via golang.org/x/sync's errgroup
	MaxWorkers  int     `toml:",omitempty"`
	RegionCache int     `toml:",omitempty"` // hashicorp/golang-lru entry count for the region metadata cache
	RateLimit   float64 `toml:",omitempty"` // max target reads/sec via golang.org/x/time/rate; 0 disables throttling
	RateBurst   int     `toml:",omitempty"`
}

// Shell holds interactive-shell presentation settings.
type Shell struct {
	Prompt     string `toml:",omitempty"`
	Color      bool   `toml:",omitempty"`
	HistoryFile string `toml:",omitempty"`
}

// Config is the full session configuration, decoded from a single TOML
// document (spec.md's ambient "session config" surface).
type Config struct {
	Target Target
	Scan   Scan
	Shell  Shell
}

// Default returns the configuration a fresh session starts with absent
// a config file or flags.
func Default() Config {
	return Config{
		Scan: Scan{
			Parallel:    true,
			MaxWorkers:  4,
			RegionCache: 256,
		},
		Shell: Shell{
			Prompt: "ramfuck> ",
			Color:  true,
		},
	}
}

// Load reads and decodes a TOML file into cfg, starting from cfg's
// current contents (typically Default()) so unset fields keep their
// defaults.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = fmt.Errorf("%s, %w", path, err)
	}
	return err
}
