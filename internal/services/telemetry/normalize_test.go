package telemetry

import "testing"

func TestNormalizeRecordFieldAliases(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
	}{
		{
			name: "english fields",
			raw: map[string]interface{}{
				"plate": "AB123CD", "latitude": 45.0, "longitude": 9.0,
			},
		},
		{
			name: "italian fields",
			raw: map[string]interface{}{
				"targa": "AB123CD", "latitudine": 45.0, "longitudine": 9.0,
			},
		},
		{
			name: "short fields",
			raw: map[string]interface{}{
				"plate": "AB123CD", "lat": 45.0, "lng": 9.0,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := NormalizeRecord(tc.raw)
			if err != nil {
				t.Fatalf("NormalizeRecord: %v", err)
			}
			if rec.Plate != "AB123CD" {
				t.Errorf("plate = %q, want AB123CD", rec.Plate)
			}
			if rec.Latitude != 45.0 || rec.Longitude != 9.0 {
				t.Errorf("coords = %v,%v, want 45,9", rec.Latitude, rec.Longitude)
			}
		})
	}
}

func TestNormalizeRecordNumericStrings(t *testing.T) {
	rec, err := NormalizeRecord(map[string]interface{}{
		"targa":      "EF456GH",
		"latitudine": "45,4642",
		"lng":        "9.19",
		"velocita":   "52,5",
	})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.Latitude != 45.4642 {
		t.Errorf("latitude = %v, want 45.4642", rec.Latitude)
	}
	if rec.Longitude != 9.19 {
		t.Errorf("longitude = %v, want 9.19", rec.Longitude)
	}
	if rec.Speed != 52.5 {
		t.Errorf("speed = %v, want 52.5", rec.Speed)
	}
}

func TestNormalizeRecordTemperatures(t *testing.T) {
	rec, err := NormalizeRecord(map[string]interface{}{
		"plate": "XY789ZK",
		"lat":   44.0,
		"lng":   8.0,
		"t1":    -18.5,
		"frigo": true,
	})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.TempChannel1 == nil || *rec.TempChannel1 != -18.5 {
		t.Errorf("temp channel 1 = %v, want -18.5", rec.TempChannel1)
	}
	if rec.TempChannel2 != nil {
		t.Errorf("temp channel 2 = %v, want nil", rec.TempChannel2)
	}
	if !rec.Refrigerated {
		t.Error("refrigerated should be true")
	}
}

func TestNormalizeRecordRejectsUnusable(t *testing.T) {
	if _, err := NormalizeRecord(map[string]interface{}{"lat": 45.0, "lng": 9.0}); err == nil {
		t.Error("expected error for record without plate or unit id")
	}
	if _, err := NormalizeRecord(map[string]interface{}{"plate": "AB123CD"}); err == nil {
		t.Error("expected error for record without coordinates")
	}
}

func TestNormalizeRecordEpochMillis(t *testing.T) {
	rec, err := NormalizeRecord(map[string]interface{}{
		"plate":     "AB123CD",
		"lat":       45.0,
		"lng":       9.0,
		"timestamp": 1700000000000.0,
	})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.FixTime.Unix() != 1700000000 {
		t.Errorf("fix time = %d, want 1700000000 (millis scaled to seconds)", rec.FixTime.Unix())
	}
}

func TestNormalizeBatchShapes(t *testing.T) {
	bare := []byte(`[{"plate":"AB123CD","lat":45.0,"lng":9.0}]`)
	records, err := NormalizeBatch(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("bare array: got %d records, want 1", len(records))
	}

	wrapped := []byte(`{"veicoli":[{"targa":"AB123CD","latitudine":45.0,"longitudine":9.0},{"latitudine":1.0}]}`)
	records, err = NormalizeBatch(wrapped)
	if err != nil {
		t.Fatalf("wrapped object: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("wrapped object: got %d records, want 1 (bad record skipped)", len(records))
	}

	if _, err := NormalizeBatch([]byte(`{"unrelated":true}`)); err == nil {
		t.Error("expected error for object without a record array")
	}
}
