// Package policy holds operational thresholds and evaluates run summaries against them.
package policy

import (
	"errors"
	"fmt"
	"os"

	goyaml "gopkg.in/yaml.v3"
)

var ErrInvalidThresholds = errors.New("invalid thresholds")

// Limit is a warning/critical pair. Zero disables that side.
type Limit struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// ThresholdSet is treated as an immutable value once loaded. Throughput is a
// floor: values at or below the limits violate it.
type ThresholdSet struct {
	P95MS      Limit `yaml:"p95_ms" json:"p95_ms"`
	P99MS      Limit `yaml:"p99_ms" json:"p99_ms"`
	ErrorRate  Limit `yaml:"error_rate" json:"error_rate"`
	Throughput Limit `yaml:"throughput_rps" json:"throughput_rps"`
}

func Defaults() ThresholdSet {
	return ThresholdSet{
		P95MS:      Limit{Warning: 100, Critical: 150},
		P99MS:      Limit{Critical: 200},
		ErrorRate:  Limit{Warning: 0.01, Critical: 0.05},
		Throughput: Limit{Warning: 15, Critical: 10},
	}
}

type fileLimit struct {
	Warning  *float64 `yaml:"warning"`
	Critical *float64 `yaml:"critical"`
}

type thresholdsFile struct {
	Thresholds struct {
		P95MS      fileLimit `yaml:"p95_ms"`
		P99MS      fileLimit `yaml:"p99_ms"`
		ErrorRate  fileLimit `yaml:"error_rate"`
		Throughput fileLimit `yaml:"throughput_rps"`
	} `yaml:"thresholds"`
}

// LoadThresholds reads the thresholds section of a YAML policy file. Limits the
// file leaves out keep their defaults.
func LoadThresholds(path string) (ThresholdSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ThresholdSet{}, err
	}
	return ParseThresholds(raw)
}

func ParseThresholds(raw []byte) (ThresholdSet, error) {
	var f thresholdsFile
	if err := goyaml.Unmarshal(raw, &f); err != nil {
		return ThresholdSet{}, fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	t := Defaults()
	merge(&t.P95MS, f.Thresholds.P95MS)
	merge(&t.P99MS, f.Thresholds.P99MS)
	merge(&t.ErrorRate, f.Thresholds.ErrorRate)
	merge(&t.Throughput, f.Thresholds.Throughput)
	if err := t.Validate(); err != nil {
		return ThresholdSet{}, err
	}
	return t, nil
}

func merge(dst *Limit, src fileLimit) {
	if src.Warning != nil {
		dst.Warning = *src.Warning
	}
	if src.Critical != nil {
		dst.Critical = *src.Critical
	}
}

func (t ThresholdSet) Validate() error {
	ceilings := []struct {
		name  string
		limit Limit
	}{
		{"p95_ms", t.P95MS},
		{"p99_ms", t.P99MS},
		{"error_rate", t.ErrorRate},
	}
	for _, c := range ceilings {
		if c.limit.Warning < 0 || c.limit.Critical < 0 {
			return fmt.Errorf("%w: %s limits must not be negative", ErrInvalidThresholds, c.name)
		}
		if c.limit.Warning > 0 && c.limit.Critical > 0 && c.limit.Warning >= c.limit.Critical {
			return fmt.Errorf("%w: %s warning (%g) must be below critical (%g)", ErrInvalidThresholds, c.name, c.limit.Warning, c.limit.Critical)
		}
	}
	if t.ErrorRate.Warning > 1 || t.ErrorRate.Critical > 1 {
		return fmt.Errorf("%w: error_rate limits are fractions in [0,1]", ErrInvalidThresholds)
	}
	fl := t.Throughput
	if fl.Warning < 0 || fl.Critical < 0 {
		return fmt.Errorf("%w: throughput_rps limits must not be negative", ErrInvalidThresholds)
	}
	if fl.Warning > 0 && fl.Critical > 0 && fl.Warning <= fl.Critical {
		return fmt.Errorf("%w: throughput_rps is a floor, warning (%g) must be above critical (%g)", ErrInvalidThresholds, fl.Warning, fl.Critical)
	}
	return nil
}
