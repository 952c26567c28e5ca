// Package replconfig loads the optional REPL configuration file. It is
// consulted only by cmd/pycfgrepl; the core evaluator (package pycfg and
// everything under internal/) never reads it, keeping Eval's behavior a
// pure function of the source text handed to it.
package replconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the shape of an optional ~/.pycfgrc.yaml.
type Config struct {
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
	Trace       bool   `yaml:"trace"`
}

// Default returns the REPL's built-in defaults, used when no config file
// is present.
func Default() *Config {
	return &Config{HistoryFile: ".pycfg_history", Prompt: ">>> "}
}

// Load reads and parses path. A missing file is not an error: it returns
// Default() unchanged, matching the teacher's REPL which works fine with
// no on-disk state at all.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
