package graph

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// graphMLKeys is the fixed, ordered set of GraphML <key> declarations.
// Attribute keys must be declared before any node/edge data references
// them (spec.md §4.8).
var graphMLKeys = []struct {
	ID     string
	For    string
	Name   string
	AttrOf string
}{
	{ID: "d_kind", For: "node", Name: "kind", AttrOf: "node"},
	{ID: "d_label", For: "node", Name: "label", AttrOf: "node"},
	{ID: "d_provenance", For: "node", Name: "provenance", AttrOf: "node"},
	{ID: "d_ekind", For: "edge", Name: "kind", AttrOf: "edge"},
}

type graphMLDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphMLKey `xml:"key"`
	Graph   graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
}

type graphMLGraph struct {
	EdgeDefault string      `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string         `xml:"id,attr"`
	Data []graphMLDatum `xml:"data"`
}

type graphMLEdge struct {
	ID     string         `xml:"id,attr"`
	Source string         `xml:"source,attr"`
	Target string         `xml:"target,attr"`
	Data   []graphMLDatum `xml:"data"`
}

type graphMLDatum struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// EncodeGraphML renders g as byte-stable GraphML XML with the same node
// and relationship ordering as EncodeJSONLD.
func EncodeGraphML(g *Graph) ([]byte, error) {
	doc := graphMLDoc{
		Graph: graphMLGraph{EdgeDefault: "directed"},
	}

	for _, k := range graphMLKeys {
		doc.Keys = append(doc.Keys, graphMLKey{ID: k.ID, For: k.For, Name: k.Name})
	}

	for _, n := range g.SortedNodes() {
		provenance := make([]string, len(n.Provenance))
		copy(provenance, n.Provenance)
		sort.Strings(provenance)

		doc.Graph.Nodes = append(doc.Graph.Nodes, graphMLNode{
			ID: n.ID,
			Data: []graphMLDatum{
				{Key: "d_kind", Value: string(n.Kind)},
				{Key: "d_label", Value: n.Label},
				{Key: "d_provenance", Value: strings.Join(provenance, ",")},
			},
		})
	}

	for _, r := range g.SortedRelationships() {
		doc.Graph.Edges = append(doc.Graph.Edges, graphMLEdge{
			ID:     r.ID,
			Source: r.SourceID,
			Target: r.TargetID,
			Data:   []graphMLDatum{{Key: "d_ekind", Value: string(r.Kind)}},
		})
	}

	var buf bytes.Buffer

	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode graphml: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')

	return out, nil
}
