package main

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DynamicConfig holds the settings a host may want to change without a
// binary restart, read from a YAML file via -config.
type DynamicConfig struct {
	ExpiryMs     int64  `yaml:"expiry_ms"`
	MinIntervalMs int64 `yaml:"min_interval_ms"`
	MaxIntervalMs int64 `yaml:"max_interval_ms"`
	Algorithm    string `yaml:"algorithm"`
}

// Expiry returns ExpiryMs as a time.Duration.
func (dc *DynamicConfig) Expiry() time.Duration {
	return time.Duration(dc.ExpiryMs) * time.Millisecond
}

// RetransmitInterval returns the configured [min, max] retransmit jitter
// window as durations.
func (dc *DynamicConfig) RetransmitInterval() (time.Duration, time.Duration) {
	return time.Duration(dc.MinIntervalMs) * time.Millisecond, time.Duration(dc.MaxIntervalMs) * time.Millisecond
}

// ReadDynamicConfig loads and validates a DynamicConfig from path.
func ReadDynamicConfig(path string) (*DynamicConfig, error) {
	dc := &DynamicConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, dc); err != nil {
		return nil, err
	}
	if dc.MinIntervalMs <= 0 || dc.MaxIntervalMs < dc.MinIntervalMs {
		return nil, fmt.Errorf("invalid retransmit interval [%d, %d]ms", dc.MinIntervalMs, dc.MaxIntervalMs)
	}
	return dc, nil
}
