package diseasemap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type file struct {
	Diseases []Entry `yaml:"diseases"`
}

// Parse decodes a YAML mapping document:
//
//	diseases:
//	  - disease: Asthma
//	    organ: Lungs
//	    specialization: Pulmonologist
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode disease map: %w", err)
	}
	if len(f.Diseases) == 0 {
		return nil, fmt.Errorf("disease map has no entries")
	}
	return New(f.Diseases)
}

// LoadFile reads a YAML mapping file. An empty path yields the built-in table.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read disease map %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
