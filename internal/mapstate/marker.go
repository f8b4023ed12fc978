package mapstate

// MarkerDrawable is a caller-supplied custom point of interest (warehouse,
// client site, depot)
type MarkerDrawable struct {
	base
	Label    string `json:"label,omitempty"`
	IconName string `json:"icon_name,omitempty"` // named glyph: "warehouse", "client", "depot", "flag"
	Color    string `json:"color,omitempty"`
}

// NewMarkerDrawable builds a custom marker. Markers without a valid position
// yield nil.
func NewMarkerDrawable(id, label string, pos LatLng) *MarkerDrawable {
	if !pos.Valid() {
		return nil
	}
	return &MarkerDrawable{
		base: base{
			Identifier: id,
			Pos:        pos,
			ZOrder:     8,
		},
		Label: label,
	}
}

func (m *MarkerDrawable) Type() DrawableType { return TypeMarker }

func (m *MarkerDrawable) Style() Style {
	return Style{ZIndex: m.ZOrder}
}

// Icon renders the marker as a labelled pin glyph
func (m *MarkerDrawable) Icon(ctx RenderContext) *IconDescriptor {
	if !ctx.Ready {
		return nil
	}
	return buildMarkerIcon(m, ctx)
}

// ClusterDrawable is a derived, display-only aggregate of nearby vehicle
// markers. Instances are recomputed every render pass and never stored in a
// controller collection.
type ClusterDrawable struct {
	base
	Count  int    `json:"count"`
	Bucket string `json:"bucket"` // "small" | "medium" | "large"
}

// clusterBucket assigns the size bucket used for cluster badge styling
func clusterBucket(count int) string {
	switch {
	case count >= 50:
		return "large"
	case count >= 10:
		return "medium"
	default:
		return "small"
	}
}

func newClusterDrawable(id string, pos LatLng, count int) *ClusterDrawable {
	return &ClusterDrawable{
		base: base{
			Identifier: id,
			Pos:        pos,
			ZOrder:     15,
		},
		Count:  count,
		Bucket: clusterBucket(count),
	}
}

func (c *ClusterDrawable) Type() DrawableType { return TypeCluster }

func (c *ClusterDrawable) Style() Style {
	return Style{ZIndex: c.ZOrder}
}

// Icon renders the cluster count badge
func (c *ClusterDrawable) Icon(ctx RenderContext) *IconDescriptor {
	if !ctx.Ready {
		return nil
	}
	return buildClusterIcon(c)
}
