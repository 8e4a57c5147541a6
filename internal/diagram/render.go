package diagram

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// templateNode/templateEdge are the minimal, format-agnostic shapes fed to
// each format's text/template.
type templateNode struct {
	ID    string
	Label string
	Kind  string
}

type templateEdge struct {
	Source string
	Target string
	Kind   string
}

type templateData struct {
	Preset string
	Theme  ThemeSpec
	Nodes  []templateNode
	Edges  []templateEdge
}

// safeID prefixes a node ID with "n" so every format's identifier grammar
// accepts it regardless of whether the hex digest happens to start with a
// digit.
func safeID(id string) string { return "n" + id }

var mermaidTemplate = template.Must(template.New("mermaid").Parse(
	`flowchart TD
    classDef themed fill:{{.Theme.Background}},color:{{.Theme.Foreground}},stroke:{{.Theme.Accent}};
{{- range .Nodes}}
    {{.ID}}["{{.Label}}"]:::themed
{{- end}}
{{- range .Edges}}
    {{.Source}} -->|{{.Kind}}| {{.Target}}
{{- end}}
`))

var plantUMLTemplate = template.Must(template.New("plantuml").Parse(
	`@startuml
skinparam backgroundColor {{.Theme.Background}}
skinparam DefaultFontColor {{.Theme.Foreground}}
skinparam DefaultFontSize {{.Theme.FontSizePt}}
{{- range .Nodes}}
component "{{.Label}}" as {{.ID}}
{{- end}}
{{- range .Edges}}
{{.Source}} --> {{.Target}} : {{.Kind}}
{{- end}}
@enduml
`))

var graphvizTemplate = template.Must(template.New("graphviz").Parse(
	`digraph {{.Preset}} {
  bgcolor="{{.Theme.Background}}";
  node [fontcolor="{{.Theme.Foreground}}", fontsize={{.Theme.FontSizePt}}, color="{{.Theme.Accent}}"];
{{- range .Nodes}}
  {{.ID}} [label="{{.Label}}"];
{{- end}}
{{- range .Edges}}
  {{.Source}} -> {{.Target}} [label="{{.Kind}}"];
{{- end}}
}
`))

func templatesByFormat(f Format) (*template.Template, error) {
	switch f {
	case FormatMermaid:
		return mermaidTemplate, nil
	case FormatPlantUML:
		return plantUMLTemplate, nil
	case FormatGraphviz:
		return graphvizTemplate, nil
	default:
		return nil, &ConfigError{Field: "format", Value: string(f)}
	}
}

// RenderText renders sub as format's deterministic text representation,
// themed with theme. Output is byte-stable for identical inputs.
func RenderText(sub Subgraph, preset Preset, format Format, theme ThemeSpec) ([]byte, error) {
	tmpl, err := templatesByFormat(format)
	if err != nil {
		return nil, err
	}

	data := templateData{Preset: string(preset), Theme: theme}

	for _, n := range sub.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}

		data.Nodes = append(data.Nodes, templateNode{
			ID:    safeID(n.ID),
			Label: escapeLabel(label),
			Kind:  string(n.Kind),
		})
	}

	for _, r := range sub.Relationships {
		data.Edges = append(data.Edges, templateEdge{
			Source: safeID(r.SourceID),
			Target: safeID(r.TargetID),
			Kind:   string(r.Kind),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s diagram: %w", format, err)
	}

	return buf.Bytes(), nil
}

func escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, `'`)

	return strings.ReplaceAll(label, "\n", " ")
}
