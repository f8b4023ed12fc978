package services

import (
	"testing"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/models"
)

type captureBroadcaster struct {
	alarms []models.AlarmResponse
}

func (c *captureBroadcaster) BroadcastToRole(role string, data interface{}) {
	if role != "operator" {
		return
	}
	payload, ok := data.(map[string]interface{})
	if !ok || payload["type"] != "alarm" {
		return
	}
	if alarm, ok := payload["alarm"].(models.AlarmResponse); ok {
		c.alarms = append(c.alarms, alarm)
	}
}

func (c *captureBroadcaster) IsUserConnected(userID string) bool { return false }

func testZone() mapstate.GeofenceRecord {
	return mapstate.GeofenceRecord{
		ID:           "zone-1",
		Name:         "Depot Milano",
		Shape:        mapstate.ShapeCircle,
		Center:       mapstate.LatLng{Lat: 45.0, Lng: 9.0},
		RadiusMeters: 1000,
		AlertOnEnter: true,
		AlertOnExit:  true,
	}
}

func record(plate string, lat, lng float64) mapstate.PositionRecord {
	return mapstate.PositionRecord{Plate: plate, Latitude: lat, Longitude: lng}
}

func TestWatcherRaisesOnBoundaryCrossing(t *testing.T) {
	capture := &captureBroadcaster{}
	w := NewGeofenceWatcher(nil, nil, capture)
	w.SetGeofences([]mapstate.GeofenceRecord{testZone()})

	// First batch baselines, vehicle outside
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 46.0, 9.0)})
	if len(capture.alarms) != 0 {
		t.Fatalf("baseline batch raised %d alarms, want 0", len(capture.alarms))
	}

	// Move inside the zone
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 45.0, 9.0)})
	if len(capture.alarms) != 1 || capture.alarms[0].Kind != "geofence_enter" {
		t.Fatalf("expected one geofence_enter alarm, got %+v", capture.alarms)
	}

	// Staying inside raises nothing more
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 45.001, 9.0)})
	if len(capture.alarms) != 1 {
		t.Fatalf("staying inside raised extra alarms: %d", len(capture.alarms))
	}

	// Leaving raises an exit alarm
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 46.0, 9.0)})
	if len(capture.alarms) != 2 || capture.alarms[1].Kind != "geofence_exit" {
		t.Fatalf("expected geofence_exit, got %+v", capture.alarms)
	}
}

func TestWatcherBaselineSuppressesEnterForVehiclesAlreadyInside(t *testing.T) {
	capture := &captureBroadcaster{}
	w := NewGeofenceWatcher(nil, nil, capture)
	w.SetGeofences([]mapstate.GeofenceRecord{testZone()})

	// Vehicle is already inside on the very first batch after boot
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 45.0, 9.0)})
	if len(capture.alarms) != 0 {
		t.Fatalf("restart baseline raised %d alarms, want 0", len(capture.alarms))
	}

	// But an exit after the baseline still fires
	w.CheckPositions([]mapstate.PositionRecord{record("AB123CD", 46.0, 9.0)})
	if len(capture.alarms) != 1 || capture.alarms[0].Kind != "geofence_exit" {
		t.Fatalf("expected geofence_exit after baseline, got %+v", capture.alarms)
	}
}

func TestWatcherDoorAlarmOncePerOpenInterval(t *testing.T) {
	capture := &captureBroadcaster{}
	w := NewGeofenceWatcher(nil, nil, capture)

	open := record("EF456GH", 45.0, 9.0)
	open.DoorSensor = true
	open.DoorOpen = true

	closed := open
	closed.DoorOpen = false

	w.CheckPositions([]mapstate.PositionRecord{open})
	w.CheckPositions([]mapstate.PositionRecord{open})
	if len(capture.alarms) != 1 || capture.alarms[0].Kind != "door_open" {
		t.Fatalf("expected a single door_open alarm, got %+v", capture.alarms)
	}

	// Close and reopen raises again
	w.CheckPositions([]mapstate.PositionRecord{closed})
	w.CheckPositions([]mapstate.PositionRecord{open})
	if len(capture.alarms) != 2 {
		t.Fatalf("reopen should raise a second alarm, got %d", len(capture.alarms))
	}
}

func TestWatcherTemperatureExcursion(t *testing.T) {
	capture := &captureBroadcaster{}
	w := NewGeofenceWatcher(nil, nil, capture)

	warm := 12.5
	rec := record("XY789ZK", 45.0, 9.0)
	rec.Refrigerated = true
	rec.TempChannel1 = &warm

	w.CheckPositions([]mapstate.PositionRecord{rec})
	w.CheckPositions([]mapstate.PositionRecord{rec})
	if len(capture.alarms) != 1 || capture.alarms[0].Kind != "temperature" {
		t.Fatalf("expected one temperature alarm, got %+v", capture.alarms)
	}

	// Back in range resets the latch
	cold := -18.0
	rec.TempChannel1 = &cold
	w.CheckPositions([]mapstate.PositionRecord{rec})

	rec.TempChannel1 = &warm
	w.CheckPositions([]mapstate.PositionRecord{rec})
	if len(capture.alarms) != 2 {
		t.Fatalf("excursion after recovery should raise again, got %d", len(capture.alarms))
	}
}

func TestWatcherIgnoresNonSensorVehicles(t *testing.T) {
	capture := &captureBroadcaster{}
	w := NewGeofenceWatcher(nil, nil, capture)

	warm := 15.0
	rec := record("NO123TS", 45.0, 9.0)
	rec.TempChannel1 = &warm // not refrigerated
	rec.DoorOpen = true      // no door sensor fitted

	w.CheckPositions([]mapstate.PositionRecord{rec})
	if len(capture.alarms) != 0 {
		t.Fatalf("non-sensor vehicle raised alarms: %+v", capture.alarms)
	}
}
