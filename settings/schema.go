package settings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Local tags that declare date and time settings explicitly.
const (
	tagDate     = "!date"
	tagTime     = "!time"
	tagDateTime = "!datetime"
)

// Load reads a YAML schema file and builds a root Group from it.
func Load(path string) (*Group, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings schema: %w", err)
	}
	return Parse(b)
}

// Parse builds a root Group from a YAML document whose top level is a mapping.
// Nested mappings become groups, sequences become string lists, and each scalar
// becomes a setting typed after its resolved tag.
func Parse(b []byte) (*Group, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings schema: %w", err)
	}

	root := NewGroup("")
	if doc.Kind == 0 {
		return root, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("settings schema must be a mapping")
	}

	if err := fill(root, doc.Content[0]); err != nil {
		return nil, err
	}
	return root, nil
}

func fill(group *Group, mapping *yaml.Node) error {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]
		key := keyNode.Value

		switch valueNode.Kind {
		case yaml.MappingNode:
			child, err := group.AddGroup(key)
			if err != nil {
				return fmt.Errorf("line %d: %w", keyNode.Line, err)
			}
			if err := fill(child, valueNode); err != nil {
				return err
			}

		case yaml.SequenceNode:
			list := make([]string, 0, len(valueNode.Content))
			for _, item := range valueNode.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: list %q may only hold scalars", item.Line, key)
				}
				list = append(list, item.Value)
			}
			if _, err := group.AddSetting(key, TypeStringList, list); err != nil {
				return fmt.Errorf("line %d: %w", keyNode.Line, err)
			}

		case yaml.ScalarNode:
			typ, err := scalarType(valueNode)
			if err != nil {
				return fmt.Errorf("line %d: %w", valueNode.Line, err)
			}
			value, err := typ.Parse(valueNode.Value)
			if err != nil {
				return fmt.Errorf("line %d: setting %q: %w", valueNode.Line, key, err)
			}
			if _, err := group.AddSetting(key, typ, value); err != nil {
				return fmt.Errorf("line %d: %w", keyNode.Line, err)
			}

		default:
			return fmt.Errorf("line %d: unsupported value for %q", valueNode.Line, key)
		}
	}
	return nil
}

func scalarType(node *yaml.Node) (Type, error) {
	switch tag := node.ShortTag(); tag {
	case "!!str":
		return TypeString, nil
	case "!!int":
		return TypeInteger, nil
	case "!!float":
		return TypeFloat, nil
	case "!!bool":
		return TypeBool, nil
	case "!!timestamp":
		if strings.ContainsAny(node.Value, "Tt ") {
			return TypeDateTime, nil
		}
		return TypeDate, nil
	case tagDateTime:
		return TypeDateTime, nil
	case tagDate:
		return TypeDate, nil
	case tagTime:
		return TypeTime, nil
	default:
		return 0, fmt.Errorf("unsupported tag %s", tag)
	}
}
