package mapstate

import (
	"testing"
	"time"
)

func rec(plate string, fix time.Time, lat, lng float64) PositionRecord {
	return PositionRecord{
		Plate:    plate,
		Latitude: lat, Longitude: lng,
		FixTime: fix,
	}
}

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ab123cd", "AB123CD"},
		{"ab123cd*", "AB123CD"},
		{"AB123CD**", "AB123CD"},
		{"  xy987zk * ", "XY987ZK"},
		{"", ""},
	}
	for _, tc := range cases {
		got := NormalizePlate(tc.in)
		if got != tc.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// idempotence
		if again := NormalizePlate(got); again != got {
			t.Errorf("NormalizePlate not idempotent: %q -> %q", got, again)
		}
	}
}

func TestUpdateVehicles_DedupLatestFixWins(t *testing.T) {
	c := NewController()
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	c.UpdateVehicles([]PositionRecord{
		rec("AB123CD", t1, 45, 9),
		rec("ab123cd*", t2, 45.1, 9.1),
	})

	vehicles := c.Vehicles()
	if len(vehicles) != 1 {
		t.Fatalf("expected 1 vehicle after dedup, got %d", len(vehicles))
	}
	v := vehicles[0]
	if v.Plate != "AB123CD" {
		t.Errorf("plate = %q, want AB123CD", v.Plate)
	}
	if v.Pos.Lat != 45.1 || v.Pos.Lng != 9.1 {
		t.Errorf("position = %+v, want (45.1, 9.1): later fix must win", v.Pos)
	}
}

func TestUpdateVehicles_TieKeepsLaterEncountered(t *testing.T) {
	c := NewController()
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	c.UpdateVehicles([]PositionRecord{
		rec("AB123CD", t1, 45, 9),
		rec("AB123CD", t1, 46, 10),
	})

	vehicles := c.Vehicles()
	if len(vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(vehicles))
	}
	if vehicles[0].Pos.Lat != 46 {
		t.Errorf("tie must keep the later record, got lat %v", vehicles[0].Pos.Lat)
	}
}

func TestUpdateVehicles_RejectsUnresolvableCoordinates(t *testing.T) {
	c := NewController()
	now := time.Now()

	c.UpdateVehicles([]PositionRecord{
		rec("AB123CD", now, 45, 9),
		rec("CD456EF", now, 0, 0),     // null island sentinel
		rec("EF789GH", now, 95, 200),  // out of range
	})

	if got := len(c.Vehicles()); got != 1 {
		t.Fatalf("expected only the valid record to survive, got %d vehicles", got)
	}
}

func TestUpdateVehicles_EmptyInputClearsAndEmits(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now, 45, 9)})

	events := 0
	detach := c.OnUpdate(func(ev Event) {
		if ev.Kind == EventVehicles {
			events++
		}
	})
	defer detach()

	c.UpdateVehicles(nil)
	if got := len(c.Vehicles()); got != 0 {
		t.Errorf("expected cleared collection, got %d vehicles", got)
	}
	if events != 1 {
		t.Errorf("expected a vehicles event for the empty update, got %d", events)
	}
}

func TestCoupling_MergeAndUnmerge(t *testing.T) {
	c := NewController()
	c.SetCouplingEnabled(true)
	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	raw := []PositionRecord{
		rec("TR111AA", t1, 45, 9),
		rec("RM222BB*", t2, 45.2, 9.2),
		rec("XX333CC", t1, 44, 8),
	}

	c.AddCouplingPair("TR111AA", "RM222BB")
	c.UpdateVehicles(raw)

	vehicles := c.Vehicles()
	if len(vehicles) != 2 {
		t.Fatalf("expected coupled + independent = 2 vehicles, got %d", len(vehicles))
	}

	coupled, ok := c.Vehicle("TR111AA")
	if !ok {
		t.Fatal("coupled entity not found under truck plate")
	}
	if coupled.Kind != KindCoupled || !coupled.Coupled {
		t.Errorf("expected a coupled entity, got kind=%s coupled=%v", coupled.Kind, coupled.Coupled)
	}
	if coupled.TruckPlate != "TR111AA" || coupled.TrailerPlate != "RM222BB" {
		t.Errorf("pair plates not recorded: %q / %q", coupled.TruckPlate, coupled.TrailerPlate)
	}
	// trailer reported more recently, so its telemetry is primary
	if coupled.Pos.Lat != 45.2 {
		t.Errorf("primary telemetry should come from the fresher side, got lat %v", coupled.Pos.Lat)
	}
	if _, ok := c.Vehicle("RM222BB"); ok {
		t.Error("trailer must leave the independent list once coupled")
	}

	// removing the pair restores both originals from the cached raw data
	c.RemoveCouplingPair("TR111AA", "RM222BB")
	if got := len(c.Vehicles()); got != 3 {
		t.Fatalf("expected 3 independent vehicles after unmerge, got %d", got)
	}
	truck, _ := c.Vehicle("TR111AA")
	if truck.Coupled {
		t.Error("truck still flagged as coupled after pair removal")
	}
}

func TestHidePlate_FilteredNeverReturnsIt(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{
		rec("AB123CD", now, 45, 9),
		rec("CD456EF", now, 45.1, 9.1),
	})

	c.HidePlate("ab123cd")
	for _, v := range c.FilteredVehicles() {
		if v.Plate == "AB123CD" {
			t.Fatal("hidden plate leaked through FilteredVehicles")
		}
	}

	// showing it again restores it from cached raw data, no new ingestion
	c.ShowPlate("AB123CD")
	found := false
	for _, v := range c.FilteredVehicles() {
		if v.Plate == "AB123CD" {
			found = true
		}
	}
	if !found {
		t.Fatal("plate not restored after ShowPlate")
	}
}

func TestFilteredVehicles(t *testing.T) {
	c := NewController()
	now := time.Now()
	temp := 4.5
	c.UpdateVehicles([]PositionRecord{
		{Plate: "MOVING1", Latitude: 45, Longitude: 9, Speed: 50, FixTime: now, Nickname: "Milano Nord"},
		{Plate: "STOPPED1", Latitude: 45.1, Longitude: 9.1, Speed: 0, FixTime: now, Address: "Via Roma 1, Torino"},
		{Plate: "FRIGO1", Latitude: 45.2, Longitude: 9.2, Speed: 80, FixTime: now, TempChannel1: &temp},
	})

	c.SetFilters(FilterOptions{ShowMoving: true, ShowStopped: false})
	if got := len(c.FilteredVehicles()); got != 2 {
		t.Errorf("moving-only filter: got %d, want 2", got)
	}

	c.SetFilters(FilterOptions{ShowMoving: true, ShowStopped: true, OnlyWithTemp: true})
	filtered := c.FilteredVehicles()
	if len(filtered) != 1 || filtered[0].Plate != "FRIGO1" {
		t.Errorf("temperature filter: got %v", filtered)
	}

	c.SetFilters(FilterOptions{ShowMoving: true, ShowStopped: true, SearchTerm: "torino"})
	filtered = c.FilteredVehicles()
	if len(filtered) != 1 || filtered[0].Plate != "STOPPED1" {
		t.Errorf("address search: got %d results", len(filtered))
	}

	// filters are a non-destructive view
	c.SetFilters(DefaultFilters())
	if got := len(c.FilteredVehicles()); got != 3 {
		t.Errorf("resetting filters should restore all 3, got %d", got)
	}
}

func TestRenderVersion_StrictlyIncreasesOnMutation(t *testing.T) {
	c := NewController()
	now := time.Now()

	before := c.RenderVersion()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now, 45, 9)})
	afterIngest := c.RenderVersion()
	if afterIngest <= before {
		t.Errorf("render version did not increase on ingest: %d -> %d", before, afterIngest)
	}

	// read-only calls leave it untouched
	_ = c.Vehicles()
	_ = c.FilteredVehicles()
	_ = c.Snapshot()
	if got := c.RenderVersion(); got != afterIngest {
		t.Errorf("render version changed on read-only calls: %d -> %d", afterIngest, got)
	}

	c.HidePlate("AB123CD")
	if got := c.RenderVersion(); got <= afterIngest {
		t.Errorf("render version did not increase on HidePlate: %d -> %d", afterIngest, got)
	}
}

func TestClusteringToggle_LosslessRoundTrip(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{
		rec("AA111AA", now, 45.001, 9.001),
		rec("BB222BB", now, 45.002, 9.002),
		rec("CC333CC", now, 46.5, 10.5),
	})

	before := make(map[string]LatLng)
	for _, v := range c.FilteredVehicles() {
		before[v.Plate] = v.Pos
	}

	clusterVersionBefore := c.ClusterVersion()
	c.SetClustering(true)
	if c.ClusterVersion() <= clusterVersionBefore {
		t.Error("cluster version must bump on clustering toggle")
	}
	if len(c.Clusters()) == 0 {
		t.Error("expected at least one cluster for the two nearby vehicles")
	}
	c.SetClustering(false)
	if c.Clusters() != nil {
		t.Error("clusters must be empty with clustering off")
	}

	after := c.FilteredVehicles()
	if len(after) != len(before) {
		t.Fatalf("vehicle set changed across toggle: %d -> %d", len(before), len(after))
	}
	for _, v := range after {
		if pos, ok := before[v.Plate]; !ok || pos != v.Pos {
			t.Errorf("vehicle %s changed across clustering round trip", v.Plate)
		}
	}
}

func TestSelection_DedicatedChannel(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now, 45, 9)})

	var got []string
	detach := c.OnSelection(func(id string) { got = append(got, id) })

	c.SelectVehicle("AB123CD")
	c.ClearSelection()
	detach()
	detach() // idempotent
	c.SelectVehicle("AB123CD")

	want := []string{"AB123CD", ""}
	if len(got) != len(want) {
		t.Fatalf("selection notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSelection_SurvivesRebuild(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now, 45, 9)})
	c.SelectVehicle("AB123CD")

	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now.Add(time.Minute), 45.5, 9.5)})
	v, ok := c.Vehicle("AB123CD")
	if !ok || !v.Selected {
		t.Error("selection flag lost across ingestion rebuild")
	}
}

func TestFollowMode_SkipsMissingVehicleWithoutCancelling(t *testing.T) {
	c := NewController()
	t1 := time.Now()

	var centers []LatLng
	c.OnUpdate(func(ev Event) {
		if ev.Kind == EventView {
			if center, ok := ev.Payload.(LatLng); ok {
				centers = append(centers, center)
			}
		}
	})

	c.UpdateVehicles([]PositionRecord{rec("AB123CD", t1, 45, 9)})
	c.FollowVehicle("AB123CD")
	gotInitial := len(centers)
	if gotInitial == 0 {
		t.Fatal("expected an initial recenter when follow mode engages")
	}

	// vehicle drops out: no recenter, but follow mode stays engaged
	c.UpdateVehicles(nil)
	if len(centers) != gotInitial {
		t.Error("recenter fired for a missing vehicle")
	}
	if c.FollowedVehicleID() != "AB123CD" {
		t.Error("follow mode must not auto-cancel when the vehicle disappears")
	}

	// vehicle returns: recentering resumes
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", t1.Add(time.Minute), 46, 10)})
	if len(centers) != gotInitial+1 {
		t.Fatalf("expected recenter on return, centers=%d", len(centers))
	}
	last := centers[len(centers)-1]
	if last.Lat != 46 || last.Lng != 10 {
		t.Errorf("recenter used stale position: %+v", last)
	}
}

func TestSelectAndFollow_AcceptNonCanonicalPlate(t *testing.T) {
	c := NewController()
	t1 := time.Now()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", t1, 45, 9)})

	c.SelectVehicle("ab123cd")
	if got := c.SelectedVehicleID(); got != "AB123CD" {
		t.Fatalf("selection with lowercase plate = %q, want AB123CD", got)
	}
	v, _ := c.Vehicle("AB123CD")
	if !v.Selected {
		t.Error("selected flag not set on the drawable")
	}

	var centers []LatLng
	c.OnUpdate(func(ev Event) {
		if ev.Kind == EventView {
			if center, ok := ev.Payload.(LatLng); ok {
				centers = append(centers, center)
			}
		}
	})

	c.FollowVehicle(" ab123cd* ")
	if got := c.FollowedVehicleID(); got != "AB123CD" {
		t.Fatalf("followed id = %q, want AB123CD", got)
	}
	if len(centers) == 0 {
		t.Fatal("expected an initial recenter for a non-canonical plate")
	}

	c.UpdateVehicles([]PositionRecord{rec("AB123CD", t1.Add(time.Minute), 46, 10)})
	last := centers[len(centers)-1]
	if last.Lat != 46 || last.Lng != 10 {
		t.Errorf("follow mode did not track updates: %+v", last)
	}
}

func TestListenerPanicDoesNotBlockOthers(t *testing.T) {
	c := NewController()

	secondCalled := false
	c.OnUpdate(func(ev Event) { panic("boom") })
	c.OnUpdate(func(ev Event) { secondCalled = true })

	c.UpdateVehicles([]PositionRecord{rec("AB123CD", time.Now(), 45, 9)})
	if !secondCalled {
		t.Error("a panicking listener blocked the broadcast")
	}
}

func TestRestoreViewState(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{
		rec("AB123CD", now, 45, 9),
		rec("CD456EF", now, 45.1, 9.1),
	})

	c.RestoreViewState(ViewState{
		Filters:      FilterOptions{ShowMoving: true, ShowStopped: true},
		HiddenPlates: []string{"cd456ef"},
		Clustering:   true,
		TileProvider: "satellite",
	})

	if got := len(c.FilteredVehicles()); got != 1 {
		t.Errorf("restored hidden plate not applied: %d vehicles visible", got)
	}
	state := c.ViewState()
	if !state.Clustering || state.TileProvider != "satellite" {
		t.Errorf("restored display options lost: %+v", state)
	}
	if state.HiddenPlates[0] != "CD456EF" {
		t.Errorf("hidden plates must be stored normalized, got %v", state.HiddenPlates)
	}
}

func TestReset(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{rec("AB123CD", now, 45, 9)})
	c.HidePlate("AB123CD")
	c.SetClustering(true)

	before := c.RenderVersion()
	c.Reset()
	if len(c.Vehicles()) != 0 || len(c.HiddenPlates()) != 0 {
		t.Error("reset left state behind")
	}
	if c.RenderVersion() <= before {
		t.Error("reset must bump the render version")
	}
}

func TestSyntheticKeyWhenPlateMissing(t *testing.T) {
	c := NewController()
	now := time.Now()
	c.UpdateVehicles([]PositionRecord{
		{UnitID: "gps-001", Latitude: 45, Longitude: 9, FixTime: now},
		{UnitID: "gps-001", Latitude: 45.5, Longitude: 9.5, FixTime: now.Add(time.Minute)},
		{UnitID: "gps-002", Latitude: 44, Longitude: 8, FixTime: now},
	})

	if got := len(c.Vehicles()); got != 2 {
		t.Fatalf("expected dedup by unit id, got %d vehicles", got)
	}
	v, ok := c.Vehicle("unit:gps-001")
	if !ok {
		t.Fatal("synthetic-key vehicle not found")
	}
	if v.Pos.Lat != 45.5 {
		t.Error("latest fix did not win under synthetic key")
	}
}
