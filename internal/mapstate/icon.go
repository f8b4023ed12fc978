package mapstate

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

// Glyph layout constants. The vehicle body is a fixed square; optional parts
// (plate label above, heading arrow above that) only grow the canvas upward,
// so the anchor is re-derived from the extra height to keep the body center
// on the geographic point.
const (
	glyphBodySize    = 44
	plateLabelHeight = 16
	headingArrowSize = 14
)

// headingQuantizationStep groups nearby headings so marker icons can be
// cached by the renderer instead of regenerated on every 1° change
const headingQuantizationStep = 15.0

// xmlEscaper covers the text interpolated into SVG <text> elements; plates
// and marker labels are user supplied
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// QuantizeHeading snaps a heading in degrees to the nearest 15° step
func QuantizeHeading(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	q := math.Round(d/headingQuantizationStep) * headingQuantizationStep
	return math.Mod(q, 360)
}

func vehicleStateColor(v *VehicleDrawable) string {
	switch {
	case v.Coupled:
		return "#8E24AA" // purple for coupled truck+trailer
	case v.Moving:
		return "#2E7D32" // green for moving
	default:
		return "#C62828" // red for stopped
	}
}

// vehicleSilhouette returns the SVG body shape for a vehicle kind, drawn in
// a 44x44 box with its visual center at (22, 22+yOffset)
func vehicleSilhouette(kind VehicleKind, color string, yOffset int) string {
	switch kind {
	case KindTrailer:
		return fmt.Sprintf(
			`<rect x="8" y="%d" width="28" height="16" fill="%s" rx="2" filter="url(#glow)"/>
  <circle cx="15" cy="%d" r="3" fill="#2F4F4F"/>
  <circle cx="29" cy="%d" r="3" fill="#2F4F4F"/>`,
			yOffset+14, color, yOffset+32, yOffset+32)
	case KindCoupled:
		return fmt.Sprintf(
			`<rect x="4" y="%d" width="14" height="14" fill="%s" rx="2" filter="url(#glow)"/>
  <rect x="20" y="%d" width="20" height="12" fill="%s" rx="2" filter="url(#glow)"/>
  <circle cx="11" cy="%d" r="3" fill="#2F4F4F"/>
  <circle cx="26" cy="%d" r="3" fill="#2F4F4F"/>
  <circle cx="36" cy="%d" r="3" fill="#2F4F4F"/>`,
			yOffset+14, color, yOffset+16, color, yOffset+31, yOffset+31, yOffset+31)
	default: // truck
		return fmt.Sprintf(
			`<rect x="6" y="%d" width="22" height="16" fill="%s" rx="2" filter="url(#glow)"/>
  <rect x="28" y="%d" width="10" height="11" fill="%s" rx="2"/>
  <rect x="30" y="%d" width="6" height="4" fill="#87CEEB" rx="1"/>
  <circle cx="13" cy="%d" r="3" fill="#2F4F4F"/>
  <circle cx="33" cy="%d" r="3" fill="#2F4F4F"/>`,
			yOffset+12, color, yOffset+17, color, yOffset+19, yOffset+31, yOffset+31)
	}
}

// buildVehicleIcon synthesizes the full vehicle glyph: silhouette, state
// badge, optional plate label and heading arrow. Pure function of drawable
// state and render options.
func buildVehicleIcon(v *VehicleDrawable, ctx RenderContext) *IconDescriptor {
	showLabel := ctx.ShowLabels && v.Plate != ""
	showArrow := ctx.ShowHeading && v.Moving

	topExtra := 0
	if showLabel {
		topExtra += plateLabelHeight
	}
	if showArrow {
		topExtra += headingArrowSize
	}

	width := glyphBodySize
	height := glyphBodySize + topExtra
	color := vehicleStateColor(v)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <filter id="glow" x="-30%%" y="-30%%" width="160%%" height="160%%">
      <feDropShadow dx="0" dy="1" stdDeviation="1.5" flood-color="#000" flood-opacity="0.4"/>
    </filter>
  </defs>
`, width, height)

	y := topExtra
	if showArrow {
		heading := QuantizeHeading(v.Heading)
		arrowY := 0
		if showLabel {
			arrowY = plateLabelHeight
		}
		fmt.Fprintf(&sb,
			`  <g transform="rotate(%.0f %d %d)"><polygon points="%d,%d %d,%d %d,%d" fill="%s"/></g>
`,
			heading, width/2, arrowY+headingArrowSize/2,
			width/2, arrowY+1,
			width/2-5, arrowY+headingArrowSize-2,
			width/2+5, arrowY+headingArrowSize-2,
			color)
	}
	if showLabel {
		fmt.Fprintf(&sb,
			`  <rect x="2" y="1" width="%d" height="%d" fill="#FFFFFF" stroke="#555" stroke-width="1" rx="2"/>
  <text x="%d" y="12" font-family="Arial, sans-serif" font-size="9" font-weight="bold" fill="#222" text-anchor="middle">%s</text>
`,
			width-4, plateLabelHeight-2, width/2, xmlEscaper.Replace(v.Plate))
	}

	sb.WriteString("  " + vehicleSilhouette(v.Kind, color, y) + "\n")

	// selection ring
	if v.Selected {
		fmt.Fprintf(&sb, `  <circle cx="%d" cy="%d" r="20" fill="none" stroke="#FFC107" stroke-width="3"/>
`, width/2, y+glyphBodySize/2)
	}
	// small sensor badges
	if v.Refrigerated {
		fmt.Fprintf(&sb, `  <circle cx="%d" cy="%d" r="5" fill="#0288D1"/><text x="%d" y="%d" font-family="Arial, sans-serif" font-size="7" fill="#fff" text-anchor="middle">❄</text>
`, width-7, y+7, width-7, y+10)
	}
	if v.DoorSensor && v.DoorOpen {
		fmt.Fprintf(&sb, `  <circle cx="7" cy="%d" r="5" fill="#F57C00"/>
`, y+7)
	}

	sb.WriteString("</svg>")

	encoded := base64.StdEncoding.EncodeToString([]byte(sb.String()))
	return &IconDescriptor{
		URL:    "data:image/svg+xml;base64," + encoded,
		Width:  width,
		Height: height,
		// anchor at the body center so the geographic point stays fixed
		// whatever optional parts are stacked above it
		AnchorX: width / 2,
		AnchorY: topExtra + glyphBodySize/2,
	}
}

func buildMarkerIcon(m *MarkerDrawable, ctx RenderContext) *IconDescriptor {
	color := m.Color
	if color == "" {
		color = "#5D4037"
	}

	label := ""
	if ctx.ShowLabels && m.Label != "" {
		label = fmt.Sprintf(`<text x="14" y="42" font-family="Arial, sans-serif" font-size="8" fill="#222" text-anchor="middle">%s</text>`, xmlEscaper.Replace(m.Label))
	}

	svg := fmt.Sprintf(`<svg width="28" height="44" xmlns="http://www.w3.org/2000/svg">
  <path d="M14 2 C7 2 2 7 2 14 C2 23 14 34 14 34 C14 34 26 23 26 14 C26 7 21 2 14 2 Z" fill="%s" stroke="#fff" stroke-width="1.5"/>
  <circle cx="14" cy="13" r="5" fill="#fff"/>
  %s
</svg>`, color, label)

	encoded := base64.StdEncoding.EncodeToString([]byte(svg))
	return &IconDescriptor{
		URL:    "data:image/svg+xml;base64," + encoded,
		Width:  28,
		Height: 44,
		// pin tip sits on the geographic point
		AnchorX: 14,
		AnchorY: 34,
	}
}

func buildClusterIcon(c *ClusterDrawable) *IconDescriptor {
	var size int
	var color string
	switch c.Bucket {
	case "large":
		size, color = 56, "#D32F2F"
	case "medium":
		size, color = 48, "#F57C00"
	default:
		size, color = 40, "#1976D2"
	}

	svg := fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
  <circle cx="%d" cy="%d" r="%d" fill="%s" fill-opacity="0.85" stroke="#fff" stroke-width="2"/>
  <text x="%d" y="%d" font-family="Arial, sans-serif" font-size="%d" font-weight="bold" fill="#fff" text-anchor="middle">%d</text>
</svg>`, size, size, size/2, size/2, size/2-2, color, size/2, size/2+5, size/4, c.Count)

	encoded := base64.StdEncoding.EncodeToString([]byte(svg))
	return &IconDescriptor{
		URL:     "data:image/svg+xml;base64," + encoded,
		Width:   size,
		Height:  size,
		AnchorX: size / 2,
		AnchorY: size / 2,
	}
}
