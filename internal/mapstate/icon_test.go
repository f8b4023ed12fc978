package mapstate

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func testVehicle(plate string, moving bool, heading float64) *VehicleDrawable {
	speed := 0.0
	if moving {
		speed = 60
	}
	return NewVehicleDrawable(PositionRecord{
		Plate: plate, Latitude: 45, Longitude: 9,
		Speed: speed, Heading: heading, FixTime: time.Now(),
	})
}

func TestQuantizeHeading(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0}, {7, 0}, {8, 15}, {15, 15}, {44, 45}, {359, 0}, {-10, 345}, {181, 180},
	}
	for _, tc := range cases {
		if got := QuantizeHeading(tc.in); got != tc.want {
			t.Errorf("QuantizeHeading(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIconNilUntilContextReady(t *testing.T) {
	v := testVehicle("AB123CD", true, 90)
	if icon := v.Icon(RenderContext{Ready: false}); icon != nil {
		t.Error("icon must be nil before the rendering context is ready")
	}
	if icon := v.Icon(RenderContext{Ready: true}); icon == nil {
		t.Error("icon must be produced once the context is ready")
	}
}

func TestVehicleIconAnchorStaysOnBody(t *testing.T) {
	v := testVehicle("AB123CD", true, 45)

	bare := v.Icon(RenderContext{Ready: true})
	withLabel := v.Icon(RenderContext{Ready: true, ShowLabels: true})
	withBoth := v.Icon(RenderContext{Ready: true, ShowLabels: true, ShowHeading: true})

	// the body center must stay on the geographic point: anchor offset from
	// the bottom of the glyph is constant whatever is stacked above
	bareFromBottom := bare.Height - bare.AnchorY
	if withLabel.Height <= bare.Height {
		t.Error("plate label should grow the glyph")
	}
	if withLabel.Height-withLabel.AnchorY != bareFromBottom {
		t.Errorf("anchor drifted with label: %d vs %d", withLabel.Height-withLabel.AnchorY, bareFromBottom)
	}
	if withBoth.Height-withBoth.AnchorY != bareFromBottom {
		t.Errorf("anchor drifted with label+arrow: %d vs %d", withBoth.Height-withBoth.AnchorY, bareFromBottom)
	}
}

func TestVehicleIconDeterministic(t *testing.T) {
	v := testVehicle("AB123CD", true, 90)
	ctx := RenderContext{Ready: true, ShowLabels: true, ShowHeading: true}

	a := v.Icon(ctx)
	b := v.Icon(ctx)
	if a.URL != b.URL || a.AnchorX != b.AnchorX || a.AnchorY != b.AnchorY {
		t.Error("icon generation must be deterministic for identical state")
	}
	if !strings.HasPrefix(a.URL, "data:image/svg+xml;base64,") {
		t.Errorf("unexpected icon URL prefix: %.40s", a.URL)
	}
}

func TestStoppedVehicleHasNoHeadingArrow(t *testing.T) {
	moving := testVehicle("AB123CD", true, 90)
	stopped := testVehicle("AB123CD", false, 90)
	ctx := RenderContext{Ready: true, ShowHeading: true}

	m := moving.Icon(ctx)
	s := stopped.Icon(ctx)
	if s.Height >= m.Height {
		t.Error("stopped vehicles should not carry the heading arrow")
	}
}

func decodeIconSVG(t *testing.T, icon *IconDescriptor) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(icon.URL, "data:image/svg+xml;base64,"))
	if err != nil {
		t.Fatalf("icon URL is not valid base64: %v", err)
	}
	return string(raw)
}

func TestIconTextIsXMLEscaped(t *testing.T) {
	v := testVehicle(`A<B&"1`, false, 0)
	svg := decodeIconSVG(t, v.Icon(RenderContext{Ready: true, ShowLabels: true}))
	if !strings.Contains(svg, "A&lt;B&amp;&quot;1") {
		t.Errorf("plate not escaped in SVG: %s", svg)
	}
	if strings.Contains(svg, `>A<B`) {
		t.Error("raw markup characters leaked into the SVG text element")
	}

	m := NewMarkerDrawable("m1", "Depot <north> & 'south'", LatLng{Lat: 45, Lng: 9})
	svg = decodeIconSVG(t, m.Icon(RenderContext{Ready: true, ShowLabels: true}))
	if !strings.Contains(svg, "Depot &lt;north&gt; &amp; &apos;south&apos;") {
		t.Errorf("marker label not escaped in SVG: %s", svg)
	}
}

func TestClusterBuckets(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{2, "small"}, {9, "small"}, {10, "medium"}, {49, "medium"}, {50, "large"},
	}
	for _, tc := range cases {
		c := newClusterDrawable("c", LatLng{Lat: 45, Lng: 9}, tc.count)
		if c.Bucket != tc.want {
			t.Errorf("bucket for %d = %q, want %q", tc.count, c.Bucket, tc.want)
		}
		if icon := c.Icon(RenderContext{Ready: true}); icon == nil {
			t.Error("cluster icon missing")
		}
	}
}
