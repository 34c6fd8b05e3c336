package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/bigbag/slipstream/slip"
)

// Config holds CLI settings. Zero-value fields in a file keep their defaults.
type Config struct {
	Serial Serial
	Reader Reader
	Link   Link
	Log    Log
}

// Serial configures the serial port.
type Serial struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// Reader configures frame reading.
type Reader struct {
	BufferSize int
}

// Link configures request/response exchanges.
type Link struct {
	Timeout  time.Duration
	Attempts int
}

// Log configures console logging.
type Log struct {
	Level string
}

type fileConfig struct {
	Serial struct {
		Port        string `toml:"port"`
		Baud        int    `toml:"baud"`
		ReadTimeout string `toml:"read_timeout"`
	} `toml:"serial"`
	Reader struct {
		BufferSize int `toml:"buffer_size"`
	} `toml:"reader"`
	Link struct {
		Timeout  string `toml:"timeout"`
		Attempts int    `toml:"attempts"`
	} `toml:"link"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: Serial{
			Baud:        115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Reader: Reader{BufferSize: slip.DefaultReadBufferSize},
		Link: Link{
			Timeout:  time.Second,
			Attempts: 5,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a TOML file over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("load config %s: unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}
	if meta.IsDefined("serial", "baud") {
		cfg.Serial.Baud = raw.Serial.Baud
	}
	if meta.IsDefined("serial", "read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Serial.ReadTimeout))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse serial.read_timeout")
		}
		cfg.Serial.ReadTimeout = d
	}
	if meta.IsDefined("reader", "buffer_size") {
		cfg.Reader.BufferSize = raw.Reader.BufferSize
	}
	if meta.IsDefined("link", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Link.Timeout))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse link.timeout")
		}
		cfg.Link.Timeout = d
	}
	if meta.IsDefined("link", "attempts") {
		cfg.Link.Attempts = raw.Link.Attempts
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Serial.Baud <= 0:
		return errors.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	case c.Serial.ReadTimeout < 0:
		return errors.Errorf("serial.read_timeout must not be negative, got %s", c.Serial.ReadTimeout)
	case c.Reader.BufferSize <= 0:
		return errors.Errorf("reader.buffer_size must be positive, got %d", c.Reader.BufferSize)
	case c.Link.Timeout <= 0:
		return errors.Errorf("link.timeout must be positive, got %s", c.Link.Timeout)
	case c.Link.Attempts <= 0:
		return errors.Errorf("link.attempts must be positive, got %d", c.Link.Attempts)
	}
	return nil
}
