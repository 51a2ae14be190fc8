// Package config loads the daemon configuration: defaults overridden by
// an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `toml:"listen"`

	Mongo  Mongo  `toml:"mongo"`
	S3     S3     `toml:"s3"`
	Cache  Cache  `toml:"cache"`
	Reaper Reaper `toml:"reaper"`
}

// Mongo configures the metadata store.
type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// S3 configures the role blob store.
type S3 struct {
	Bucket string `toml:"bucket"`
	Region string `toml:"region"`
	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint string `toml:"endpoint"`
}

// Cache configures the project metadata cache.
type Cache struct {
	Capacity int `toml:"capacity"`
}

// Reaper configures the expired-project sweep.
type Reaper struct {
	Interval duration `toml:"interval"`
}

// duration lets TOML carry values like "90s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:7777",
		Mongo: Mongo{
			URI:      "mongodb://127.0.0.1:27017",
			Database: "netsblox",
		},
		S3: S3{
			Bucket: "netsblox-projects",
			Region: "us-east-1",
		},
		Cache:  Cache{Capacity: 500},
		Reaper: Reaper{Interval: duration{time.Minute}},
	}
}

// Load returns the defaults overridden by the TOML file at path. An
// empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, nil
}

// ReaperInterval returns the configured sweep interval.
func (c Config) ReaperInterval() time.Duration { return c.Reaper.Interval.Duration }
