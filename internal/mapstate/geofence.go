package mapstate

// GeofenceShape is the geometry kind of a geofence
type GeofenceShape string

const (
	ShapeCircle  GeofenceShape = "circle"
	ShapePolygon GeofenceShape = "polygon"
)

// GeofenceRecord is the raw geofence shape as stored and served over REST
type GeofenceRecord struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Shape        GeofenceShape `json:"shape"`
	Center       LatLng        `json:"center,omitempty"`
	RadiusMeters float64       `json:"radius_meters,omitempty"`
	Ring         []LatLng      `json:"ring,omitempty"`
	StrokeColor  string        `json:"stroke_color,omitempty"`
	FillColor    string        `json:"fill_color,omitempty"`
	Editable     bool          `json:"editable,omitempty"`
	AlertOnEnter bool          `json:"alert_on_enter,omitempty"`
	AlertOnExit  bool          `json:"alert_on_exit,omitempty"`
}

// GeofenceDrawable renders a named circle or polygon zone
type GeofenceDrawable struct {
	base
	Name         string        `json:"name"`
	Shape        GeofenceShape `json:"shape"`
	RadiusMeters float64       `json:"radius_meters,omitempty"`
	Ring         []LatLng      `json:"ring,omitempty"`
	StrokeColor  string        `json:"stroke_color,omitempty"`
	FillColor    string        `json:"fill_color,omitempty"`
	Editable     bool          `json:"editable,omitempty"`
	Draggable    bool          `json:"draggable,omitempty"`
	AlertOnEnter bool          `json:"alert_on_enter,omitempty"`
	AlertOnExit  bool          `json:"alert_on_exit,omitempty"`
}

// NewGeofenceDrawable builds a drawable from a stored geofence. Circles need
// a valid center, polygons at least three ring points; anything else yields
// nil.
func NewGeofenceDrawable(rec GeofenceRecord) *GeofenceDrawable {
	var pos LatLng
	switch rec.Shape {
	case ShapeCircle:
		if !rec.Center.Valid() || rec.RadiusMeters <= 0 {
			return nil
		}
		pos = rec.Center
	case ShapePolygon:
		if len(rec.Ring) < 3 {
			return nil
		}
		pos = Centroid(rec.Ring)
	default:
		return nil
	}

	return &GeofenceDrawable{
		base: base{
			Identifier: rec.ID,
			Pos:        pos,
			ZOrder:     1,
		},
		Name:         rec.Name,
		Shape:        rec.Shape,
		RadiusMeters: rec.RadiusMeters,
		Ring:         rec.Ring,
		StrokeColor:  rec.StrokeColor,
		FillColor:    rec.FillColor,
		Editable:     rec.Editable,
		AlertOnEnter: rec.AlertOnEnter,
		AlertOnExit:  rec.AlertOnExit,
	}
}

func (g *GeofenceDrawable) Type() DrawableType { return TypeGeofence }

func (g *GeofenceDrawable) Style() Style {
	stroke := g.StrokeColor
	if stroke == "" {
		stroke = "#1E88E5"
	}
	fill := g.FillColor
	if fill == "" {
		fill = "#1E88E5"
	}
	return Style{
		StrokeColor:   stroke,
		StrokeOpacity: 0.9,
		StrokeWeight:  2,
		FillColor:     fill,
		FillOpacity:   0.2,
		ZIndex:        g.ZOrder,
	}
}

// Icon returns nil: geofences render as shapes, not point overlays
func (g *GeofenceDrawable) Icon(ctx RenderContext) *IconDescriptor { return nil }

// Contains reports whether p falls inside the zone. Circles compare the
// haversine distance against the radius, polygons run the ray-casting parity
// test.
func (g *GeofenceDrawable) Contains(p LatLng) bool {
	switch g.Shape {
	case ShapeCircle:
		return HaversineMeters(g.Pos, p) <= g.RadiusMeters
	case ShapePolygon:
		return PointInRing(p, g.Ring)
	}
	return false
}

// Centroid returns the zone's geometric center
func (g *GeofenceDrawable) Centroid() LatLng {
	if g.Shape == ShapePolygon {
		return Centroid(g.Ring)
	}
	return g.Pos
}

// Bounds returns the zone's axis-aligned bounding box. For circles the box
// is approximated from the radius.
func (g *GeofenceDrawable) Bounds() Bounds {
	if g.Shape == ShapePolygon {
		return BoundsOf(g.Ring)
	}
	// ~111,320 m per degree of latitude
	dLat := g.RadiusMeters / 111320.0
	dLng := dLat // close enough at dashboard zoom levels
	var b Bounds
	b.Extend(LatLng{Lat: g.Pos.Lat - dLat, Lng: g.Pos.Lng - dLng})
	b.Extend(LatLng{Lat: g.Pos.Lat + dLat, Lng: g.Pos.Lng + dLng})
	return b
}
