package admission

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse reads a YAML ruleset document:
//
//	name: reporting
//	phrases: ["show me report x"]
//	keywords: [report, sales]
//	patterns: ['\breport\s+\w+\b']
func Parse(data []byte) (*Ruleset, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode ruleset: %w", err)
	}
	if r.Name == "" {
		r.Name = "custom"
	}
	return r.Compile()
}

// LoadFile parses the YAML ruleset at path.
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	return Parse(data)
}

// Load returns the ruleset from file when set, otherwise the named preset.
func Load(preset, file string) (*Ruleset, error) {
	if file != "" {
		return LoadFile(file)
	}
	return Preset(preset)
}
