package ratecard

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Table is a rate table keyed by escort type or region.
//
// Decoding merges each entry over the row already stored under its key, so
// an overlay that sets one field of a built-in row keeps the others. Keys
// absent from the document are left alone.
type Table[V any] map[string]V

// UnmarshalJSON merges a JSON object into the table.
func (t *Table[V]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if *t == nil {
		*t = make(Table[V], len(raw))
	}
	for key, msg := range raw {
		v := (*t)[key]
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		(*t)[key] = v
	}
	return nil
}

// UnmarshalYAML merges a YAML mapping into the table.
func (t *Table[V]) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if *t == nil {
		*t = make(Table[V], len(raw))
	}
	for key, n := range raw {
		v := (*t)[key]
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		(*t)[key] = v
	}
	return nil
}
