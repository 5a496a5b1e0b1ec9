package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// manifest is a package.json document that keeps its top-level key order
type manifest struct {
	keys   []string
	values map[string]json.RawMessage
}

func parseManifest(data []byte) (*manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("manifest must be a JSON object")
	}

	m := &manifest{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, dup := m.values[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.values[key] = raw
	}
	return m, nil
}

func (m *manifest) get(key string, v any) (bool, error) {
	raw, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *manifest) set(key string, v any) error {
	raw, err := marshal(v)
	if err != nil {
		return err
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = raw
	return nil
}

// mergeDeps overlays deps onto the object at key; incoming versions win
func (m *manifest) mergeDeps(key string, deps map[string]string) error {
	if len(deps) == 0 {
		return nil
	}
	current := map[string]string{}
	if _, err := m.get(key, &current); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if current == nil {
		current = map[string]string{}
	}
	maps.Copy(current, deps)
	return m.set(key, current)
}

// encode writes the document with 2-space indentation and a trailing newline
func (m *manifest) encode() ([]byte, error) {
	if len(m.keys) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range m.keys {
		k, err := marshal(key)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		if err := json.Indent(&buf, m.values[key], "  ", "  "); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if i < len(m.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshal encodes without HTML escaping so ranges like ">=1.0.0" stay readable
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(strings.TrimSuffix(buf.String(), "\n")), nil
}
