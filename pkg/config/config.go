package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Tree    TreeConfig    `yaml:"tree"`
	Server  ServerConfig  `yaml:"server"`
	CLI     CLIConfig     `yaml:"cli"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`    // json | sqlite | leveldb | memory
	Path      string `yaml:"path"`       // snapshot location, meaning depends on backend
	OnCorrupt string `yaml:"on_corrupt"` // fail | reset
}

type TreeConfig struct {
	Degree int `yaml:"degree"` // branching parameter t of every table index
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // binary protocol listener, empty disables it
}

type CLIConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	OnCorruptFail  = "fail"
	OnCorruptReset = "reset"
)

var (
	backends  = []string{"json", "sqlite", "leveldb", "memory"}
	logLevels = []string{"debug", "info", "warn", "error"}
)

var ErrInvalid = errors.New("config: invalid value")

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   "json",
			Path:      "simplerdb_data/db.json",
			OnCorrupt: OnCorruptFail,
		},
		Tree: TreeConfig{
			Degree: 2,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		CLI: CLIConfig{
			Prompt: "> ",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configPath on top of the defaults. With an empty path the
// usual locations are tried and a missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/simplerdb.yaml", "simplerdb.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				return decode(cfg, data)
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}
	return decode(cfg, data)
}

func decode(cfg *Config, data []byte) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Storage.OnCorrupt == "" {
		cfg.Storage.OnCorrupt = def.Storage.OnCorrupt
	}
	if cfg.Tree.Degree == 0 {
		cfg.Tree.Degree = def.Tree.Degree
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.CLI.Prompt == "" {
		cfg.CLI.Prompt = def.CLI.Prompt
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// Validate rejects values no component can work with.
func (cfg *Config) Validate() error {
	if !slices.Contains(backends, cfg.Storage.Backend) {
		return fmt.Errorf("%w: storage.backend %q (want one of %v)", ErrInvalid, cfg.Storage.Backend, backends)
	}
	if cfg.Storage.OnCorrupt != OnCorruptFail && cfg.Storage.OnCorrupt != OnCorruptReset {
		return fmt.Errorf("%w: storage.on_corrupt %q", ErrInvalid, cfg.Storage.OnCorrupt)
	}
	if cfg.Tree.Degree < 2 {
		return fmt.Errorf("%w: tree.degree %d (minimum 2)", ErrInvalid, cfg.Tree.Degree)
	}
	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, cfg.Log.Level)
	}
	return nil
}
