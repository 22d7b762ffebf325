/*
Engine configuration, loaded from an ini file:

	[storage]
	data_dir  = data
	pool_size = 16

	[log]
	level = info

Every key is optional; missing keys keep their defaults. The storage
packages take plain parameters and never read config themselves — this
layer exists for the binaries in cmd/.
*/
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config is the engine configuration
type Config struct {
	// DataDir is the directory holding the heap file
	DataDir string
	// PoolSize is the number of frames in the buffer pool
	PoolSize int
	// LogLevel is the logrus level name
	LogLevel string
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		DataDir:  "data",
		PoolSize: 16,
		LogLevel: "info",
	}
}

// Load reads the configuration file, falling back to defaults for
// missing keys
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}

	cfg := Default()
	st := f.Section("storage")
	if st.HasKey("data_dir") {
		cfg.DataDir = st.Key("data_dir").String()
	}
	if st.HasKey("pool_size") {
		size, err := st.Key("pool_size").Int()
		if err != nil {
			return nil, errors.Wrap(err, "pool_size is not an integer")
		}
		if size <= 0 {
			return nil, errors.Errorf("pool_size must be positive: %d", size)
		}
		cfg.PoolSize = size
	}
	lg := f.Section("log")
	if lg.HasKey("level") {
		cfg.LogLevel = lg.Key("level").String()
	}
	return cfg, nil
}
