package glyph

import "bytes"

// sanitizeSVG normalises style declarations oksvg fails to parse:
// a space after the colon and hex colors missing their '#'.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: 000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke:000000"), []byte("stroke:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: 000000"), []byte("stroke:#000000"))
	for _, prop := range []string{"fill", "stroke", "stop-color"} {
		fixed = bytes.ReplaceAll(fixed, []byte(prop+": #"), []byte(prop+":#"))
	}
	return fixed
}
