package explain

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"
)

var cardTemplate = template.Must(template.New("card").Parse(
	`# Explain card: {{.Scope}}

## Summary

{{.Summary}}

## Rationale

{{.Rationale}}

## Edge Cases

{{.EdgeCasesBlock}}

## Traceability

- Node IDs: {{.NodeIDsBlock}}
- Bundle sequences: {{.BundleSequencesBlock}}
- Metrics keys: {{.MetricsKeysBlock}}
`))

type renderData struct {
	Scope                Scope
	Summary              string
	Rationale            string
	EdgeCasesBlock       string
	NodeIDsBlock         string
	BundleSequencesBlock string
	MetricsKeysBlock     string
}

func renderMarkdown(in Input) string {
	data := renderData{
		Scope:                in.Scope,
		Summary:              nonEmpty(in.Summary, "_none_"),
		Rationale:            nonEmpty(in.Rationale, "_none_"),
		EdgeCasesBlock:       listOrNone(in.EdgeCases),
		NodeIDsBlock:         listOrNone(in.Traceability.NodeIDs),
		BundleSequencesBlock: intListOrNone(in.Traceability.BundleSequences),
		MetricsKeysBlock:     listOrNone(in.Traceability.MetricsKeys),
	}

	var buf bytes.Buffer
	// cardTemplate.Execute never fails for this fixed, field-complete
	// renderData shape.
	_ = cardTemplate.Execute(&buf, data)

	return buf.String()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "_none_"
	}

	return strings.Join(items, ", ")
}

func intListOrNone(items []int) string {
	if len(items) == 0 {
		return "_none_"
	}

	strs := make([]string, len(items))
	for i, v := range items {
		strs[i] = strconv.Itoa(v)
	}

	return strings.Join(strs, ", ")
}
