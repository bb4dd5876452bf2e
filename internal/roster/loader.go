package roster

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a roster YAML file.
//
// Example:
//
//	employees:
//	  - name: "Alice Nguyen"
//	    variants: ["alis", "allie"]
//	  - name: "Mike Jones"
//	    support: true
//	overrides:
//	  - substring: "mic"
//	    name: "Mike Jones"
type File struct {
	Employees []Employee `yaml:"employees"`
	Overrides []Override `yaml:"overrides"`
}

// Load reads and parses a roster YAML file from disk and builds a snapshot.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("roster: load %q: %w", path, err)
	}
	return r, nil
}

// LoadFromReader parses roster YAML from an [io.Reader] and builds a
// snapshot. The caller is responsible for closing the reader.
func LoadFromReader(r io.Reader) (*Roster, error) {
	var rf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("roster: decode yaml: %w", err)
	}
	if len(rf.Employees) == 0 {
		return nil, fmt.Errorf("roster: no employees defined")
	}
	return New(rf.Employees, rf.Overrides)
}
