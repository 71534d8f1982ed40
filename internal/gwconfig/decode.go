package gwconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON preserves entry declaration order, which encoding/json's
// native map decoding discards; first-wins profile resolution depends
// on that order surviving config loading.
func (p *ProfileConfig) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("gwconfig: profile definition must be an object")
	}

	p.Entries = make(map[string]SelectionConfig)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("gwconfig: profile entry key must be a string")
		}
		var sel SelectionConfig
		if err := dec.Decode(&sel); err != nil {
			return fmt.Errorf("gwconfig: entry %q: %w", key, err)
		}
		if _, dup := p.Entries[key]; !dup {
			p.EntriesOrder = append(p.EntriesOrder, key)
		}
		p.Entries[key] = sel
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// UnmarshalYAML is the yaml.v3 equivalent of UnmarshalJSON: a
// yaml.Node's MappingNode content alternates key, value nodes in
// document order, which is exactly the order first-wins resolution
// needs preserved.
func (p *ProfileConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("gwconfig: profile definition must be a mapping")
	}
	p.Entries = make(map[string]SelectionConfig)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		var sel SelectionConfig
		if err := valNode.Decode(&sel); err != nil {
			return fmt.Errorf("gwconfig: entry %q: %w", keyNode.Value, err)
		}
		if _, dup := p.Entries[keyNode.Value]; !dup {
			p.EntriesOrder = append(p.EntriesOrder, keyNode.Value)
		}
		p.Entries[keyNode.Value] = sel
	}
	return nil
}
