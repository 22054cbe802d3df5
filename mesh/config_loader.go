package mesh

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a configuration that reconstructs *.xyz files from
// the data directory into out/ as OBJ.
func DefaultConfig() *Config {
	opts := DefaultOptions()
	opts.RNG = nil
	return &Config{
		Reconstruction: opts,
		Input:          InputConfig{DataDir: "data", Pattern: "*.xyz"},
		Output:         OutputConfig{Dir: "out", Formats: []string{FormatOBJ}},
		MQTT:           MQTTConfig{PublishPrefix: "roofmesh", ClientID: "roofmesh"},
		Logging:        LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads the configuration from a YAML file. Fields missing from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks enumerations and numeric ranges.
func (c *Config) Validate() error {
	r := &c.Reconstruction
	if r.Finder != "" {
		f, err := ParseFinder(string(r.Finder))
		if err != nil {
			return fmt.Errorf("reconstruction.finder: %w", err)
		}
		r.Finder = f
	}
	if r.Mode != "" {
		m, err := ParseMode(string(r.Mode))
		if err != nil {
			return fmt.Errorf("reconstruction.mode: %w", err)
		}
		r.Mode = m
	}
	if r.MaxDistance < 0 {
		return fmt.Errorf("reconstruction.maxDistance must not be negative")
	}
	if r.PlaneCap > maxSubsetPlanes {
		return fmt.Errorf("reconstruction.planeCap %d exceeds limit of %d", r.PlaneCap, maxSubsetPlanes)
	}
	if c.Input.DataDir == "" {
		return fmt.Errorf("input.dataDir is required")
	}
	for i, f := range c.Output.Formats {
		if !slices.Contains(OutputFormats, f) {
			return fmt.Errorf("output.formats[%d]: unsupported format %q", i, f)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
