// Package config loads optional tuning parameters from a JSON file. Fields
// omitted from the file keep their built-in defaults, so partial configs are
// safe; the Get* accessors fall back per field.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mavgraph/mavgraph/bytesource"
	"github.com/mavgraph/mavgraph/feed"
	"github.com/mavgraph/mavgraph/plotdata"
	"github.com/mavgraph/mavgraph/timeseries"
)

// Config holds the tunable parameters of the telemetry pipeline. All fields
// are pointers so a JSON file only needs to name the values it overrides.
// Durations are strings like "10m" or "500ms".
type Config struct {
	// Storage params
	BufferCapacity   *int    `json:"buffer_capacity,omitempty"`
	RetentionHorizon *string `json:"retention_horizon,omitempty"` // duration string like "10m"
	PruneInterval    *string `json:"prune_interval,omitempty"`    // duration string like "5s"

	// Plot params
	DecimationThreshold *int    `json:"decimation_threshold,omitempty"`
	DecimationTarget    *int    `json:"decimation_target,omitempty"`
	DecimationAlgorithm *string `json:"decimation_algorithm,omitempty"` // "stride" or "lttb"

	// Source params
	SpoofInterval *string `json:"spoof_interval,omitempty"` // duration string like "50ms"

	// Feed params
	FeedBuffer *int `json:"feed_buffer,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyConfig returns a Config with all fields unset, so every accessor
// returns its default.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The path must have a .json
// extension and the file must be under the max file size.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set fields hold usable values.
func (c *Config) Validate() error {
	if c.BufferCapacity != nil && *c.BufferCapacity < 1 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", *c.BufferCapacity)
	}

	if c.RetentionHorizon != nil && *c.RetentionHorizon != "" {
		if _, err := time.ParseDuration(*c.RetentionHorizon); err != nil {
			return fmt.Errorf("invalid retention_horizon '%s': %w", *c.RetentionHorizon, err)
		}
	}

	if c.PruneInterval != nil && *c.PruneInterval != "" {
		if _, err := time.ParseDuration(*c.PruneInterval); err != nil {
			return fmt.Errorf("invalid prune_interval '%s': %w", *c.PruneInterval, err)
		}
	}

	if c.DecimationThreshold != nil && *c.DecimationThreshold < 0 {
		return fmt.Errorf("decimation_threshold must be non-negative, got %d", *c.DecimationThreshold)
	}

	if c.DecimationTarget != nil && *c.DecimationTarget < 2 {
		return fmt.Errorf("decimation_target must be at least 2, got %d", *c.DecimationTarget)
	}

	if c.DecimationAlgorithm != nil && *c.DecimationAlgorithm != "" {
		if _, err := plotdata.ParseAlgorithm(*c.DecimationAlgorithm); err != nil {
			return err
		}
	}

	if c.SpoofInterval != nil && *c.SpoofInterval != "" {
		d, err := time.ParseDuration(*c.SpoofInterval)
		if err != nil {
			return fmt.Errorf("invalid spoof_interval '%s': %w", *c.SpoofInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("spoof_interval must be positive, got %s", d)
		}
	}

	if c.FeedBuffer != nil && *c.FeedBuffer < 0 {
		return fmt.Errorf("feed_buffer must be non-negative, got %d", *c.FeedBuffer)
	}

	return nil
}

// GetBufferCapacity returns the buffer_capacity value or the default.
func (c *Config) GetBufferCapacity() int {
	if c.BufferCapacity == nil {
		return timeseries.DefaultCapacity
	}
	return *c.BufferCapacity
}

// GetRetentionHorizon parses and returns the retention_horizon as a time.Duration.
func (c *Config) GetRetentionHorizon() time.Duration {
	if c.RetentionHorizon == nil || *c.RetentionHorizon == "" {
		return timeseries.DefaultRetention
	}
	d, err := time.ParseDuration(*c.RetentionHorizon)
	if err != nil {
		return timeseries.DefaultRetention
	}
	return d
}

// GetPruneInterval parses and returns the prune_interval as a time.Duration.
func (c *Config) GetPruneInterval() time.Duration {
	if c.PruneInterval == nil || *c.PruneInterval == "" {
		return timeseries.DefaultPruneInterval
	}
	d, err := time.ParseDuration(*c.PruneInterval)
	if err != nil {
		return timeseries.DefaultPruneInterval
	}
	return d
}

// GetDecimationThreshold returns the decimation_threshold value or the default.
func (c *Config) GetDecimationThreshold() int {
	if c.DecimationThreshold == nil {
		return plotdata.DefaultThreshold
	}
	return *c.DecimationThreshold
}

// GetDecimationTarget returns the decimation_target value or the default.
func (c *Config) GetDecimationTarget() int {
	if c.DecimationTarget == nil {
		return plotdata.DefaultTargetPoints
	}
	return *c.DecimationTarget
}

// GetDecimationAlgorithm returns the parsed decimation_algorithm or the default.
func (c *Config) GetDecimationAlgorithm() plotdata.Algorithm {
	if c.DecimationAlgorithm == nil || *c.DecimationAlgorithm == "" {
		return plotdata.Stride
	}
	a, err := plotdata.ParseAlgorithm(*c.DecimationAlgorithm)
	if err != nil {
		return plotdata.Stride
	}
	return a
}

// DecimateConfig bundles the decimation fields into a plotdata.DecimateConfig.
func (c *Config) DecimateConfig() plotdata.DecimateConfig {
	return plotdata.DecimateConfig{
		Threshold:    c.GetDecimationThreshold(),
		TargetPoints: c.GetDecimationTarget(),
		Algorithm:    c.GetDecimationAlgorithm(),
	}
}

// GetSpoofInterval parses and returns the spoof_interval as a time.Duration.
func (c *Config) GetSpoofInterval() time.Duration {
	if c.SpoofInterval == nil || *c.SpoofInterval == "" {
		return bytesource.DefaultSpoofInterval
	}
	d, err := time.ParseDuration(*c.SpoofInterval)
	if err != nil || d <= 0 {
		return bytesource.DefaultSpoofInterval
	}
	return d
}

// GetFeedBuffer returns the feed_buffer value or the default.
func (c *Config) GetFeedBuffer() int {
	if c.FeedBuffer == nil {
		return feed.DefaultBuffer
	}
	return *c.FeedBuffer
}
