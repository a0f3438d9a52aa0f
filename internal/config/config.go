package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultInput            = "./data/events.txt"
	DefaultOutput           = "./data/events.dat"
	DefaultBatchSize        = 1000
	DefaultWriteBufferBytes = 64 * 1024
	DefaultTimescale        = 1e-6 // microseconds
)

// BadRowPolicy selects what the encoder does with a row it cannot parse.
type BadRowPolicy string

const (
	// BadRowAbort fails the whole conversion.
	BadRowAbort BadRowPolicy = "abort"
	// BadRowStop treats the row as end of input and keeps what was read so far.
	BadRowStop BadRowPolicy = "stop"
)

type Config struct {
	Encode   EncodeConfig `yaml:"encode"`
	Decode   DecodeConfig `yaml:"decode"`
	LogLevel string       `yaml:"log_level"`
}

type EncodeConfig struct {
	Input            string       `yaml:"input"`
	Output           string       `yaml:"output"`
	BatchSize        int          `yaml:"batch_size"`
	OnBadRow         BadRowPolicy `yaml:"on_bad_row"`
	FlushEachFrame   bool         `yaml:"flush_each_frame"`
	WriteBufferBytes int          `yaml:"write_buffer_bytes"`
}

type DecodeConfig struct {
	Input     string  `yaml:"input"`
	Timebase  float64 `yaml:"timebase"`
	Timescale float64 `yaml:"timescale"`
	Mmap      bool    `yaml:"mmap"`
}

func Default() Config {
	return Config{
		Encode: EncodeConfig{
			Input:            DefaultInput,
			Output:           DefaultOutput,
			BatchSize:        DefaultBatchSize,
			OnBadRow:         BadRowAbort,
			WriteBufferBytes: DefaultWriteBufferBytes,
		},
		Decode: DecodeConfig{
			Input:     DefaultOutput,
			Timescale: DefaultTimescale,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. ${VAR} references are expanded.
func Load(filename string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(filename)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if err := c.Encode.Validate(); err != nil {
		return err
	}
	return c.Decode.Validate()
}

func (c *EncodeConfig) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.WriteBufferBytes < 0 {
		return fmt.Errorf("%w: write_buffer_bytes must not be negative", ErrInvalidConfig)
	}
	switch c.OnBadRow {
	case BadRowAbort, BadRowStop:
	default:
		return fmt.Errorf("%w: on_bad_row must be %q or %q, got %q", ErrInvalidConfig, BadRowAbort, BadRowStop, c.OnBadRow)
	}
	return nil
}

func (c *DecodeConfig) Validate() error {
	if !(c.Timescale > 0) {
		return fmt.Errorf("%w: timescale must be positive, got %v", ErrInvalidConfig, c.Timescale)
	}
	return nil
}
