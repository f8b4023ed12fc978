package mapstate

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	// ~555 m: one twentieth of a degree of latitude is ~5.5 km, 0.005 is ~555 m
	d := HaversineMeters(LatLng{Lat: 45, Lng: 9}, LatLng{Lat: 45.005, Lng: 9})
	if math.Abs(d-556) > 10 {
		t.Errorf("distance = %.1f m, expected ~556 m", d)
	}
}

func TestCircleGeofenceContainment(t *testing.T) {
	g := NewGeofenceDrawable(GeofenceRecord{
		ID:           "zone-1",
		Name:         "Deposito Milano",
		Shape:        ShapeCircle,
		Center:       LatLng{Lat: 45, Lng: 9},
		RadiusMeters: 1000,
	})
	if g == nil {
		t.Fatal("valid circle rejected")
	}

	if !g.Contains(LatLng{Lat: 45.005, Lng: 9}) {
		t.Error("point ~555 m from center must be contained in a 1000 m circle")
	}
	if g.Contains(LatLng{Lat: 45.02, Lng: 9}) {
		t.Error("point ~2.2 km from center must not be contained in a 1000 m circle")
	}
}

func TestPolygonGeofenceContainment(t *testing.T) {
	ring := []LatLng{
		{Lat: 45.0, Lng: 9.0},
		{Lat: 45.0, Lng: 9.1},
		{Lat: 45.1, Lng: 9.1},
		{Lat: 45.1, Lng: 9.0},
	}
	g := NewGeofenceDrawable(GeofenceRecord{
		ID:    "zone-2",
		Name:  "Area Logistica",
		Shape: ShapePolygon,
		Ring:  ring,
	})
	if g == nil {
		t.Fatal("valid polygon rejected")
	}

	if !g.Contains(LatLng{Lat: 45.05, Lng: 9.05}) {
		t.Error("interior point must be contained")
	}
	if g.Contains(LatLng{Lat: 45.2, Lng: 9.05}) {
		t.Error("exterior point must not be contained")
	}

	centroid := g.Centroid()
	if math.Abs(centroid.Lat-45.05) > 1e-9 || math.Abs(centroid.Lng-9.05) > 1e-9 {
		t.Errorf("centroid = %+v, want (45.05, 9.05)", centroid)
	}

	b := g.Bounds()
	if b.SouthWest.Lat != 45.0 || b.NorthEast.Lng != 9.1 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestInvalidGeofencesRejected(t *testing.T) {
	if g := NewGeofenceDrawable(GeofenceRecord{Shape: ShapeCircle, RadiusMeters: 100}); g != nil {
		t.Error("circle without a center must be rejected")
	}
	if g := NewGeofenceDrawable(GeofenceRecord{Shape: ShapePolygon, Ring: []LatLng{{Lat: 1, Lng: 1}}}); g != nil {
		t.Error("polygon with fewer than 3 points must be rejected")
	}
}

func TestInterpolatePath(t *testing.T) {
	path := []LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}}

	if p := InterpolatePath(path, 0); p != path[0] {
		t.Errorf("t=0 should return the start, got %+v", p)
	}
	if p := InterpolatePath(path, 1); p != path[2] {
		t.Errorf("t=1 should return the end, got %+v", p)
	}
	mid := InterpolatePath(path, 0.5)
	if math.Abs(mid.Lng-1) > 1e-6 {
		t.Errorf("midpoint lng = %v, want 1", mid.Lng)
	}
}

func TestBoundsExtendAndContains(t *testing.T) {
	var b Bounds
	b.Extend(LatLng{Lat: 45, Lng: 9})
	b.Extend(LatLng{Lat: 46, Lng: 10})

	if !b.Contains(LatLng{Lat: 45.5, Lng: 9.5}) {
		t.Error("interior point not contained")
	}
	if b.Contains(LatLng{Lat: 47, Lng: 9.5}) {
		t.Error("exterior point contained")
	}
}
