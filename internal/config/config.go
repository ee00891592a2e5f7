// Package config loads jobgate's YAML configuration, generalizing the
// teacher's Config struct (worker/wal/snapshot/metrics sections) into the
// pool sizes, queue capacities, isolated-process toggle, deadlines, and
// output directories this system actually needs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete jobgate configuration, loaded from a single YAML
// file at startup. Immutable after Load returns, per §5.
type Config struct {
	HTTP struct {
		Addr            string        `yaml:"addr"`
		BodyLimit       string        `yaml:"body_limit"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	MessagePool struct {
		WorkerCount   int `yaml:"worker_count"`
		QueueCapacity int `yaml:"queue_capacity"`
	} `yaml:"message_pool"`

	PDFPool struct {
		WorkerCount     int  `yaml:"worker_count"`
		QueueCapacity   int  `yaml:"queue_capacity"`
		SingleQueue     bool `yaml:"single_queue"`
		Isolated        bool `yaml:"isolated"`
		IsolatedProcs   int  `yaml:"isolated_processes"`
		IsolatedQueueCap int `yaml:"isolated_queue_capacity"`
	} `yaml:"pdf_pool"`

	Deadlines struct {
		MessageSeconds int `yaml:"message_seconds"`
		PDF2ImageSeconds int `yaml:"pdf2image_seconds"`
	} `yaml:"deadlines"`

	Output struct {
		PDF2ImageDir string `yaml:"pdf2image_dir"`
		UploadsDir   string `yaml:"uploads_dir"`
	} `yaml:"output"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns a Config matching the lifecycle controller's startup
// defaults from §4.6 (1 message worker / capacity 10; 8 PDF workers /
// capacity 10 each).
func Default() Config {
	var c Config
	c.HTTP.Addr = ":8080"
	c.HTTP.BodyLimit = "10M"
	c.HTTP.ShutdownTimeout = 5 * time.Second

	c.MessagePool.WorkerCount = 1
	c.MessagePool.QueueCapacity = 10

	c.PDFPool.WorkerCount = 8
	c.PDFPool.QueueCapacity = 10
	c.PDFPool.SingleQueue = false
	c.PDFPool.Isolated = false
	c.PDFPool.IsolatedProcs = 8
	c.PDFPool.IsolatedQueueCap = 10

	c.Deadlines.MessageSeconds = 5
	c.Deadlines.PDF2ImageSeconds = 60

	c.Output.PDF2ImageDir = "./out/pdf2image"
	c.Output.UploadsDir = "./out/uploads"

	c.Metrics.Enabled = true

	return c
}

// DeadlineFor converts a whole-seconds deadline field (§4.5 step 1) to a
// time.Duration.
func (c Config) DeadlineFor(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Load reads and parses a YAML config file at path, starting from
// Default() so an unset field keeps its default rather than zeroing out.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return &cfg, nil
}
