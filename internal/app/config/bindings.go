package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ChannelBinding ties one witness channel to one destination application.
// Interval and batch size fall back to the relay defaults when left zero.
type ChannelBinding struct {
	ChannelID      string `yaml:"channel_id"`
	AppID          uint64 `yaml:"app_id"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	BatchSize      int    `yaml:"batch_size"`
}

// Interval returns the configured poll interval, or zero when unset.
func (b ChannelBinding) Interval() time.Duration {
	if b.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(b.PollIntervalMS) * time.Millisecond
}

// ChannelBindings is the channels file document.
type ChannelBindings struct {
	Channels []ChannelBinding `yaml:"channels"`
}

// LoadChannelBindings reads and validates the channel bindings at path.
func LoadChannelBindings(path string) (*ChannelBindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel bindings: %w", err)
	}

	var bindings ChannelBindings
	if err := yaml.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("parse channel bindings: %w", err)
	}

	seen := make(map[string]bool, len(bindings.Channels))
	for i, ch := range bindings.Channels {
		if ch.ChannelID == "" {
			return nil, fmt.Errorf("channel binding %d: channel_id is required", i)
		}
		if ch.AppID == 0 {
			return nil, fmt.Errorf("channel %s: app_id is required", ch.ChannelID)
		}
		if seen[ch.ChannelID] {
			return nil, fmt.Errorf("channel %s: bound twice", ch.ChannelID)
		}
		seen[ch.ChannelID] = true
	}

	return &bindings, nil
}

// LoadChannelBindingsOrDefault loads the bindings file, or returns an empty
// document when no path is configured or the file does not exist. A file
// that exists but does not parse is still an error.
func LoadChannelBindingsOrDefault(path string) (*ChannelBindings, error) {
	if path == "" {
		return &ChannelBindings{}, nil
	}
	bindings, err := LoadChannelBindings(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ChannelBindings{}, nil
		}
		return nil, err
	}
	return bindings, nil
}
