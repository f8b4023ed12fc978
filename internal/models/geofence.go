package models

import "time"

// Geofence is a stored zone. Circle rows carry center+radius, polygon rows
// carry the ring as a JSON array of {lat,lng} pairs.
type Geofence struct {
	ID           string   `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	Shape        string   `json:"shape" db:"shape"` // "circle" or "polygon"
	CenterLat    *float64 `json:"center_lat,omitempty" db:"center_lat"`
	CenterLng    *float64 `json:"center_lng,omitempty" db:"center_lng"`
	RadiusMeters *float64 `json:"radius_meters,omitempty" db:"radius_meters"`
	RingJSON     *string  `json:"-" db:"ring_json"`
	StrokeColor  *string  `json:"stroke_color,omitempty" db:"stroke_color"`
	FillColor    *string  `json:"fill_color,omitempty" db:"fill_color"`
	AlertOnEnter bool     `json:"alert_on_enter" db:"alert_on_enter"`
	AlertOnExit  bool     `json:"alert_on_exit" db:"alert_on_exit"`
	CreatedBy    *string  `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    int64    `json:"created_at" db:"created_at"`
	UpdatedAt    int64    `json:"updated_at" db:"updated_at"`
}

// RingPoint is one vertex of a polygon geofence ring
type RingPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeofenceResponse includes the decoded ring and ISO timestamps
type GeofenceResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Shape        string      `json:"shape"`
	CenterLat    *float64    `json:"center_lat,omitempty"`
	CenterLng    *float64    `json:"center_lng,omitempty"`
	RadiusMeters *float64    `json:"radius_meters,omitempty"`
	Ring         []RingPoint `json:"ring,omitempty"`
	StrokeColor  *string     `json:"stroke_color,omitempty"`
	FillColor    *string     `json:"fill_color,omitempty"`
	AlertOnEnter bool        `json:"alert_on_enter"`
	AlertOnExit  bool        `json:"alert_on_exit"`
	CreatedAtISO string      `json:"created_at_iso"`
	UpdatedAtISO string      `json:"updated_at_iso"`
}

// CreateGeofenceRequest is the request body for POST /api/geofences
type CreateGeofenceRequest struct {
	Name         string      `json:"name"`
	Shape        string      `json:"shape"`
	CenterLat    *float64    `json:"center_lat,omitempty"`
	CenterLng    *float64    `json:"center_lng,omitempty"`
	RadiusMeters *float64    `json:"radius_meters,omitempty"`
	Ring         []RingPoint `json:"ring,omitempty"`
	StrokeColor  *string     `json:"stroke_color,omitempty"`
	FillColor    *string     `json:"fill_color,omitempty"`
	AlertOnEnter bool        `json:"alert_on_enter"`
	AlertOnExit  bool        `json:"alert_on_exit"`
}

// UpdateGeofenceRequest is the request body for PATCH /api/geofences/:id
type UpdateGeofenceRequest struct {
	Name         *string     `json:"name,omitempty"`
	CenterLat    *float64    `json:"center_lat,omitempty"`
	CenterLng    *float64    `json:"center_lng,omitempty"`
	RadiusMeters *float64    `json:"radius_meters,omitempty"`
	Ring         []RingPoint `json:"ring,omitempty"`
	StrokeColor  *string     `json:"stroke_color,omitempty"`
	FillColor    *string     `json:"fill_color,omitempty"`
	AlertOnEnter *bool       `json:"alert_on_enter,omitempty"`
	AlertOnExit  *bool       `json:"alert_on_exit,omitempty"`
}

func (g *Geofence) ToResponse(ring []RingPoint) GeofenceResponse {
	return GeofenceResponse{
		ID:           g.ID,
		Name:         g.Name,
		Shape:        g.Shape,
		CenterLat:    g.CenterLat,
		CenterLng:    g.CenterLng,
		RadiusMeters: g.RadiusMeters,
		Ring:         ring,
		StrokeColor:  g.StrokeColor,
		FillColor:    g.FillColor,
		AlertOnEnter: g.AlertOnEnter,
		AlertOnExit:  g.AlertOnExit,
		CreatedAtISO: time.Unix(g.CreatedAt, 0).UTC().Format(time.RFC3339),
		UpdatedAtISO: time.Unix(g.UpdatedAt, 0).UTC().Format(time.RFC3339),
	}
}
