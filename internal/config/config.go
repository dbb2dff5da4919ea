package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional ferry configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Device   DeviceConfig   `toml:"device"`
}

// DefaultsConfig holds persistent flag defaults. Pointer fields distinguish
// "unset" from a zero value so CLI flags can fall back correctly.
type DefaultsConfig struct {
	ChunkSize *string `toml:"chunk_size"`
	BWLimit   *string `toml:"bwlimit"`
	Compress  *bool   `toml:"compress"`
	SSHPort   *int    `toml:"ssh_port"`
	SSHKey    *string `toml:"ssh_key"`
	Verbose   *bool   `toml:"verbose"`
}

// DeviceConfig holds the defaults of the device agent run by ferry serve.
type DeviceConfig struct {
	Address *string `toml:"address"`
	Root    *string `toml:"root"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ferry", "config.toml")
}

// Load reads the config file from the XDG path. A missing file yields a zero
// Config and no error.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file. Unknown keys are rejected so typos
// do not silently fall back to defaults.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
