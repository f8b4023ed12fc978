package mapstate

import "math"

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points
func HaversineMeters(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bounds is an axis-aligned bounding box
type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Extend grows the bounds to include p
func (b *Bounds) Extend(p LatLng) {
	if b.SouthWest.Lat == 0 && b.SouthWest.Lng == 0 && b.NorthEast.Lat == 0 && b.NorthEast.Lng == 0 {
		b.SouthWest = p
		b.NorthEast = p
		return
	}
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

// Contains reports whether p falls inside the box
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// BoundsOf computes the bounding box of a point list
func BoundsOf(points []LatLng) Bounds {
	var b Bounds
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

// Centroid returns the arithmetic mean of a point list
func Centroid(points []LatLng) LatLng {
	if len(points) == 0 {
		return LatLng{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	return LatLng{Lat: lat / float64(len(points)), Lng: lng / float64(len(points))}
}

// PointInRing runs the standard ray-casting parity test against a closed
// coordinate ring. Points exactly on an edge follow whatever side the parity
// test lands on.
func PointInRing(p LatLng, ring []LatLng) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			cross := (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if p.Lng < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// InterpolatePath returns the point at fraction t (0..1) along a polyline,
// measured by cumulative haversine length
func InterpolatePath(path []LatLng, t float64) LatLng {
	if len(path) == 0 {
		return LatLng{}
	}
	if len(path) == 1 || t <= 0 {
		return path[0]
	}
	if t >= 1 {
		return path[len(path)-1]
	}

	total := 0.0
	segments := make([]float64, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		segments[i] = HaversineMeters(path[i], path[i+1])
		total += segments[i]
	}
	if total == 0 {
		return path[0]
	}

	target := t * total
	walked := 0.0
	for i, seg := range segments {
		if walked+seg >= target {
			f := 0.0
			if seg > 0 {
				f = (target - walked) / seg
			}
			return LatLng{
				Lat: path[i].Lat + (path[i+1].Lat-path[i].Lat)*f,
				Lng: path[i].Lng + (path[i+1].Lng-path[i].Lng)*f,
			}
		}
		walked += seg
	}
	return path[len(path)-1]
}
