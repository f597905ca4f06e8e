package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a registry file:
//
//	tables:
//	  - name: Country
//	    primary_keys: [cname]
//	  - name: Users
//	    primary_keys: [email]
//	    foreign_keys: {cname: Country}
type File struct {
	Tables []TableSchema `yaml:"tables"`
}

// Load decodes a YAML registry from r and validates it with NewRegistry.
// Unknown keys are rejected so typos do not silently drop a foreign key.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("schema file: no tables defined")
		}
		return nil, fmt.Errorf("schema file: decode: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("schema file: no tables defined")
	}
	return NewRegistry(f.Tables)
}

// LoadFile opens path and calls Load. An empty path yields the built-in
// default registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
