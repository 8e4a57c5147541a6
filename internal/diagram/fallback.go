package diagram

import (
	"bytes"
	"fmt"
	"strings"
)

// fallback layout constants. The fallback renderer never attempts a real
// graph layout algorithm — it places nodes on a fixed-width grid in sorted
// order, which is enough to keep output visually legible and, more
// importantly, byte-stable across runs with no external renderer present.
const (
	fallbackColumns  = 4
	fallbackCellW    = 180
	fallbackCellH    = 80
	fallbackNodeW    = 150
	fallbackNodeH    = 40
	fallbackFontSize = 12
)

// RenderFallbackSVG emits a deterministic SVG rendering of sub when no
// external renderer (mmdc/plantuml/dot) is available (spec.md §4.10). It
// never shells out and never varies across invocations for the same
// subgraph and theme.
func RenderFallbackSVG(sub Subgraph, theme ThemeSpec) []byte {
	rows := (len(sub.Nodes) + fallbackColumns - 1) / fallbackColumns
	if rows == 0 {
		rows = 1
	}

	width := fallbackColumns * fallbackCellW
	height := rows * fallbackCellH

	var buf bytes.Buffer

	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="%s"/>`+"\n", width, height, theme.Background)

	centers := make(map[string][2]int, len(sub.Nodes))

	for i, n := range sub.Nodes {
		col := i % fallbackColumns
		row := i / fallbackColumns

		x := col*fallbackCellW + (fallbackCellW-fallbackNodeW)/2
		y := row*fallbackCellH + (fallbackCellH-fallbackNodeH)/2

		centers[n.ID] = [2]int{x + fallbackNodeW/2, y + fallbackNodeH/2}

		fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" rx="4" fill="none" stroke="%s"/>`+"\n",
			x, y, fallbackNodeW, fallbackNodeH, theme.Accent)

		label := n.Label
		if label == "" {
			label = n.ID
		}

		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`+"\n",
			x+fallbackNodeW/2, y+fallbackNodeH/2+fallbackFontSize/3, fallbackFontSize, theme.Foreground, escapeSVGText(label))
	}

	for _, r := range sub.Relationships {
		src, okSrc := centers[r.SourceID]
		dst, okDst := centers[r.TargetID]

		if !okSrc || !okDst {
			continue
		}

		fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
			src[0], src[1], dst[0], dst[1], theme.Accent)
	}

	buf.WriteString("</svg>\n")

	return buf.Bytes()
}

func escapeSVGText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	return s
}
