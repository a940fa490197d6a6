package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes a tree as a YAML document. Nodes with children become
// mappings, or sequences when every child is unnamed; leaves become scalars.
func MarshalYAML(n *Node) ([]byte, error) {
	out, err := yaml.Marshal(toYAML(n))
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return out, nil
}

// UnmarshalYAML decodes a YAML document into a tree rooted at an unnamed node.
func UnmarshalYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	root := New("")
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		if err := fromYAML(doc.Content[0], root); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// LoadFile reads a YAML metadata file.
func LoadFile(path string) (*Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	n, err := UnmarshalYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return n, nil
}

// SaveFile writes n as YAML.
func SaveFile(path string, n *Node) error {
	raw, err := MarshalYAML(n)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}

func isList(n *Node) bool {
	for _, c := range n.Children {
		if c.Name != "" {
			return false
		}
	}
	return true
}

func toYAML(n *Node) *yaml.Node {
	if len(n.Children) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: n.Value}
	}
	if isList(n) {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range n.Children {
			seq.Content = append(seq.Content, toYAML(c))
		}
		return seq
	}
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range n.Children {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name},
			toYAML(c))
	}
	return m
}

func fromYAML(y *yaml.Node, n *Node) error {
	switch y.Kind {
	case yaml.AliasNode:
		return fromYAML(y.Alias, n)
	case yaml.ScalarNode:
		if y.Tag != "!!null" {
			n.Value = y.Value
		}
	case yaml.SequenceNode:
		for _, item := range y.Content {
			if err := fromYAML(item, n.Append()); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i]
			c := New(key.Value)
			n.Children = append(n.Children, c)
			if err := fromYAML(y.Content[i+1], c); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("decode metadata: unexpected yaml node kind %d at line %d", y.Kind, y.Line)
	}
	return nil
}
