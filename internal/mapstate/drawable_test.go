package mapstate

import (
	"testing"
	"time"
)

func TestDrawableEnvelopeRoundTrip(t *testing.T) {
	v := NewVehicleDrawable(PositionRecord{
		Plate: "AB123CD", Latitude: 45, Longitude: 9,
		Speed: 40, Heading: 90,
		FixTime: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})

	raw, err := MarshalDrawable(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored, err := UnmarshalDrawable(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rv, ok := restored.(*VehicleDrawable)
	if !ok {
		t.Fatalf("restored wrong variant: %T", restored)
	}
	if rv.Plate != v.Plate || rv.Pos != v.Pos || rv.Moving != v.Moving {
		t.Errorf("round trip lost state: %+v vs %+v", rv, v)
	}
}

func TestUnmarshalUnknownTypeFails(t *testing.T) {
	if _, err := UnmarshalDrawable([]byte(`{"type":"blimp","data":{}}`)); err == nil {
		t.Error("unknown drawable type must fail to restore")
	}
}

func TestReleaseHandleIdempotent(t *testing.T) {
	v := testVehicle("AB123CD", false, 0)
	v.AttachHandle("overlay-42")

	if h := v.ReleaseHandle(); h != "overlay-42" {
		t.Errorf("first release = %v, want the attached handle", h)
	}
	if h := v.ReleaseHandle(); h != nil {
		t.Errorf("second release = %v, want nil", h)
	}
}

func TestVehicleKindInference(t *testing.T) {
	cases := []struct {
		plate, vtype, model string
		want                VehicleKind
	}{
		{"AB123CD", "Motrice", "Iveco Stralis", KindTruck},
		{"XY987ZK*", "", "", KindTrailer},
		{"XY987ZK", "Rimorchio frigo", "", KindTrailer},
		{"XY987ZK", "", "Schmitz Trailer SKO", KindTrailer},
		{"AB123CD", "", "", KindTruck},
	}
	for _, tc := range cases {
		if got := inferVehicleKind(tc.plate, tc.vtype, tc.model); got != tc.want {
			t.Errorf("inferVehicleKind(%q, %q, %q) = %v, want %v", tc.plate, tc.vtype, tc.model, got, tc.want)
		}
	}
}

func TestMovingThreshold(t *testing.T) {
	at := func(speed float64) bool {
		v := NewVehicleDrawable(PositionRecord{
			Plate: "AB123CD", Latitude: 45, Longitude: 9,
			Speed: speed, FixTime: time.Now(),
		})
		return v.Moving
	}
	if at(3) {
		t.Error("speed 3 is not moving (threshold is strict)")
	}
	if !at(3.1) {
		t.Error("speed 3.1 is moving")
	}
}
