package buildconfig

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entries maps logical bundle names to entry module paths.
//
// In YAML a plain string is accepted as the single entry named "main" and a
// config holding only that entry is written back the same way.
type Entries map[string]string

// Names returns the entry names in sorted order.
func (e Entries) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Entries) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var path string
		if err := value.Decode(&path); err != nil {
			return err
		}
		*e = Entries{DefaultEntryName: path}
		return nil
	case yaml.MappingNode:
		m := map[string]string{}
		if err := value.Decode(&m); err != nil {
			return err
		}
		*e = m
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a path or a mapping of name to path", value.Line)
	}
}

func (e Entries) MarshalYAML() (any, error) {
	if path, ok := e[DefaultEntryName]; ok && len(e) == 1 {
		return path, nil
	}
	return map[string]string(e), nil
}
