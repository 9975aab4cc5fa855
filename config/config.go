// Package config provides YAML loading for chain definitions and backend
// registries, the inputs produced by the CLI and web collaborators.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// ChainFile is the on-disk form of a chain definition plus executor hints
// that are configuration rather than chain semantics.
type ChainFile struct {
	Chain core.Chain `yaml:",inline"`

	// Aggregator names the chain-level aggregation strategy
	// ("concat" or "first-success"; empty means concat).
	Aggregator string `yaml:"aggregator,omitempty"`

	// GroupAggregator names the parallel-group strategy.
	GroupAggregator string `yaml:"group_aggregator,omitempty"`
}

// BackendsFile is the on-disk form of the backend registry.
type BackendsFile struct {
	Backends []core.BackendConfig `yaml:"backends"`
}

// LoadChain reads and validates a chain definition from path.
func LoadChain(path string) (*ChainFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	return ParseChain(data)
}

// ParseChain parses and validates a chain definition. Unknown fields are
// rejected to catch typos in hand-written workflow files.
func ParseChain(data []byte) (*ChainFile, error) {
	var cf ChainFile
	if err := strictUnmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse chain file: %w", err)
	}
	if err := cf.Chain.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain definition: %w", err)
	}
	return &cf, nil
}

// LoadBackends reads and validates a backend registry from path.
func LoadBackends(path string) ([]core.BackendConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backends file: %w", err)
	}
	return ParseBackends(data)
}

// ParseBackends parses and validates a backend registry.
func ParseBackends(data []byte) ([]core.BackendConfig, error) {
	var bf BackendsFile
	if err := strictUnmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse backends file: %w", err)
	}
	if len(bf.Backends) == 0 {
		return nil, fmt.Errorf("backends file declares no backends")
	}
	seen := make(map[string]bool, len(bf.Backends))
	for i, b := range bf.Backends {
		if b.Name == "" {
			return nil, fmt.Errorf("backend %d: missing name", i)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("backend %q: duplicate name", b.Name)
		}
		if len(b.Tasks) == 0 {
			return nil, fmt.Errorf("backend %q: declares no tasks", b.Name)
		}
		seen[b.Name] = true
	}
	return bf.Backends, nil
}

// strictUnmarshal decodes YAML rejecting unknown fields to catch typos in
// hand-written files.
func strictUnmarshal(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
