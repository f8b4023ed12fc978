package mapstate

// StopKind classifies a named stop along a route
type StopKind string

const (
	StopStart    StopKind = "start"
	StopWaypoint StopKind = "waypoint"
	StopEnd      StopKind = "end"
	StopPickup   StopKind = "pickup"
	StopDelivery StopKind = "delivery"
)

// RouteStop is one ordered stop on a route. Completed is only meaningful for
// trip instances, not templates.
type RouteStop struct {
	Name      string   `json:"name"`
	Kind      StopKind `json:"kind"`
	Position  LatLng   `json:"position"`
	Completed bool     `json:"completed,omitempty"`
}

// RouteSchedule is an optional weekday/time-window schedule for a template
type RouteSchedule struct {
	Weekdays  []int  `json:"weekdays"` // 0=Sunday .. 6=Saturday
	StartTime string `json:"start_time,omitempty"` // "HH:MM"
	EndTime   string `json:"end_time,omitempty"`
}

// RouteDrawable renders a route template or trip as a polyline with stops
type RouteDrawable struct {
	base
	Name        string         `json:"name"`
	Path        []LatLng       `json:"path"`
	Stops       []RouteStop    `json:"stops,omitempty"`
	Schedule    *RouteSchedule `json:"schedule,omitempty"`
	Color       string         `json:"color,omitempty"`
	Highlighted bool           `json:"highlighted,omitempty"`
	Active      bool           `json:"active,omitempty"`
}

// NewRouteDrawable builds a route drawable. Routes without at least two path
// points yield nil.
func NewRouteDrawable(id, name string, path []LatLng, stops []RouteStop, schedule *RouteSchedule) *RouteDrawable {
	if len(path) < 2 {
		return nil
	}
	return &RouteDrawable{
		base: base{
			Identifier: id,
			Pos:        path[0],
			ZOrder:     5,
		},
		Name:     name,
		Path:     path,
		Stops:    stops,
		Schedule: schedule,
	}
}

func (r *RouteDrawable) Type() DrawableType { return TypeRoute }

func (r *RouteDrawable) Style() Style {
	color := r.Color
	if color == "" {
		color = "#3949AB"
	}
	weight := 3
	z := r.ZOrder
	opacity := 0.7
	if r.Active {
		weight = 5
		opacity = 0.95
		z += 20
	}
	if r.Highlighted {
		weight++
		opacity = 1.0
		z += 50
	}
	return Style{
		StrokeColor:   color,
		StrokeOpacity: opacity,
		StrokeWeight:  weight,
		ZIndex:        z,
	}
}

// Icon returns nil: routes render as polylines
func (r *RouteDrawable) Icon(ctx RenderContext) *IconDescriptor { return nil }

// Bounds returns the bounding box of the full path
func (r *RouteDrawable) Bounds() Bounds { return BoundsOf(r.Path) }

// PointAt interpolates the position at fraction t (0..1) along the path
func (r *RouteDrawable) PointAt(t float64) LatLng { return InterpolatePath(r.Path, t) }

// CompletedStops counts stops marked done on a trip instance
func (r *RouteDrawable) CompletedStops() int {
	n := 0
	for _, s := range r.Stops {
		if s.Completed {
			n++
		}
	}
	return n
}
