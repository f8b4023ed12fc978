package mapstate

import (
	"encoding/json"
	"fmt"
)

// DrawableType identifies one of the closed set of drawable variants.
type DrawableType string

const (
	TypeVehicle  DrawableType = "vehicle"
	TypeGeofence DrawableType = "geofence"
	TypeMarker   DrawableType = "marker"
	TypeRoute    DrawableType = "route"
	TypeCluster  DrawableType = "cluster"
)

// LatLng is a geographic coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is inside WGS84 bounds and not the null island sentinel
func (p LatLng) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Style describes how a drawable is rendered by the map layer
type Style struct {
	StrokeColor   string  `json:"stroke_color,omitempty"`
	StrokeOpacity float64 `json:"stroke_opacity,omitempty"`
	StrokeWeight  int     `json:"stroke_weight,omitempty"`
	FillColor     string  `json:"fill_color,omitempty"`
	FillOpacity   float64 `json:"fill_opacity,omitempty"`
	ZIndex        int     `json:"z_index,omitempty"`
}

// IconDescriptor is a renderer-neutral overlay icon: a data URI plus the
// pixel geometry the map SDK needs to place it
type IconDescriptor struct {
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	AnchorX int    `json:"anchor_x"`
	AnchorY int    `json:"anchor_y"`
}

// RenderContext carries the display options icon generation depends on.
// Ready is false until the map layer has loaded; Icon returns nil then.
type RenderContext struct {
	Ready        bool
	ShowLabels   bool
	ShowHeading  bool
	TileProvider string
}

// Drawable is the contract every map overlay variant honors.
//
// The variant set is closed: the view layer switches exhaustively on Type().
// Each drawable may hold at most one renderer-native overlay handle, set by
// the view layer via AttachHandle and released through ReleaseHandle on every
// removal path.
type Drawable interface {
	ID() string
	Type() DrawableType
	Position() LatLng
	Visible() bool
	Style() Style
	Icon(ctx RenderContext) *IconDescriptor

	// AttachHandle stores the renderer-native overlay handle. The drawable
	// owns it exclusively until ReleaseHandle is called.
	AttachHandle(h interface{})
	// ReleaseHandle clears the held overlay handle and returns it so the
	// caller can tear down the underlying overlay. Safe to call twice; the
	// second call returns nil.
	ReleaseHandle() interface{}
}

// drawableEnvelope tags serialized drawables so they can be restored
// polymorphically
type drawableEnvelope struct {
	Type DrawableType    `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalDrawable serializes any drawable into a tagged envelope
func MarshalDrawable(d Drawable) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(drawableEnvelope{Type: d.Type(), Data: data})
}

// UnmarshalDrawable restores a drawable from a tagged envelope produced by
// MarshalDrawable
func UnmarshalDrawable(raw []byte) (Drawable, error) {
	var env drawableEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeVehicle:
		var v VehicleDrawable
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case TypeGeofence:
		var g GeofenceDrawable
		if err := json.Unmarshal(env.Data, &g); err != nil {
			return nil, err
		}
		return &g, nil
	case TypeMarker:
		var m MarkerDrawable
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case TypeRoute:
		var r RouteDrawable
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, err
		}
		return &r, nil
	case TypeCluster:
		var c ClusterDrawable
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unknown drawable type: %q", env.Type)
	}
}

// base holds the fields shared by every drawable variant
type base struct {
	Identifier string  `json:"id"`
	Pos        LatLng  `json:"position"`
	Hidden     bool    `json:"hidden,omitempty"`
	ZOrder     int     `json:"z_order,omitempty"`
	Payload    payload `json:"payload,omitempty"`

	// renderer-native overlay handle, never serialized
	handle interface{}
}

type payload map[string]interface{}

func (b *base) ID() string       { return b.Identifier }
func (b *base) Position() LatLng { return b.Pos }
func (b *base) Visible() bool    { return !b.Hidden }

func (b *base) AttachHandle(h interface{}) { b.handle = h }

func (b *base) ReleaseHandle() interface{} {
	h := b.handle
	b.handle = nil
	return h
}
