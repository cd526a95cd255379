// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the shape of the optional YAML config file. Flags take
// precedence over it; it exists so a long-running deployment can pin
// its sampling parameters without a wrapper script, the same role
// yaml.v3-decoded config plays for platformbuilds-telegen's collector
// and dd-trace-go's declarativeconfig source.
type fileConfig struct {
	IntervalMS int    `yaml:"interval_ms"`
	SampleIdle bool   `yaml:"sample_idle"`
	EventName  string `yaml:"event_name"`
	Format     string `yaml:"format"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("parsing config file: %w", err)
	}
	return fc, nil
}

func (fc fileConfig) intervalOrDefault(flagSet bool, flagVal time.Duration) time.Duration {
	if flagSet {
		return flagVal
	}
	if fc.IntervalMS > 0 {
		return time.Duration(fc.IntervalMS) * time.Millisecond
	}
	return flagVal
}
