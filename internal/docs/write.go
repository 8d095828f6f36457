package docs

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a manifest output format.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatMermaid:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (want json, yaml or mermaid)", s)
	}
}

// Write renders m to w in the given format.
func Write(w io.Writer, m *Manifest, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return enc.Close()
	case FormatMermaid:
		_, err := io.WriteString(w, Mermaid(m))
		return err
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
}

// Mermaid renders m as a mermaid flowchart. Nodes in a cycle get the
// "cycle" class.
func Mermaid(m *Manifest) string {
	ids := make(map[string]string, len(m.Nodes))
	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for i, n := range m.Nodes {
		ids[n.ID] = fmt.Sprintf("n%d", i)
		open, closing := shape(n)
		fmt.Fprintf(&b, "  %s%s\"%s\"%s\n", ids[n.ID], open, escape(n.Label), closing)
	}
	for _, e := range m.Edges {
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", ids[e.From], e.Kind, ids[e.To])
	}
	if len(m.Cycles) > 0 {
		b.WriteString("  classDef cycle stroke:#d33,stroke-width:2px\n")
		for _, n := range m.Nodes {
			if m.InCycle(n.ID) {
				fmt.Fprintf(&b, "  class %s cycle\n", ids[n.ID])
			}
		}
	}
	return b.String()
}

func shape(n Node) (string, string) {
	switch {
	case n.Kind.IsLeaf():
		return "[(", ")]"
	case n.Kind.IsPackage():
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
