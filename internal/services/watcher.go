package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/models"
)

// Broadcaster pushes an alarm event out over the websocket hub
type Broadcaster interface {
	BroadcastToRole(role string, data interface{})
	IsUserConnected(userID string) bool
}

// GeofenceWatcher tracks which vehicle is inside which zone and raises
// alarms on boundary crossings, open doors and temperature excursions.
// State is per-process: after a restart the first batch re-baselines
// without raising enter alarms for vehicles already inside.
type GeofenceWatcher struct {
	db        *sqlx.DB
	fcm       *FCMService
	hub       Broadcaster
	mutex     sync.Mutex
	geofences []*mapstate.GeofenceDrawable
	inside    map[string]map[string]bool
	doorOpen  map[string]bool
	tempAlarm map[string]bool
	baselined bool
}

// Temperature excursion limits for refrigerated units
const (
	tempAlarmMax = 8.0
	tempAlarmMin = -30.0
)

func NewGeofenceWatcher(db *sqlx.DB, fcm *FCMService, hub Broadcaster) *GeofenceWatcher {
	return &GeofenceWatcher{
		db:        db,
		fcm:       fcm,
		hub:       hub,
		inside:    make(map[string]map[string]bool),
		doorOpen:  make(map[string]bool),
		tempAlarm: make(map[string]bool),
	}
}

// SetGeofences replaces the zone set the watcher checks against.
// Called whenever geofences are loaded or edited.
func (w *GeofenceWatcher) SetGeofences(records []mapstate.GeofenceRecord) {
	drawables := make([]*mapstate.GeofenceDrawable, 0, len(records))
	for i := range records {
		if d := mapstate.NewGeofenceDrawable(records[i]); d != nil {
			drawables = append(drawables, d)
		}
	}

	w.mutex.Lock()
	w.geofences = drawables
	w.mutex.Unlock()
}

// CheckPositions evaluates one normalized telemetry batch against the
// current zones and sensor rules.
func (w *GeofenceWatcher) CheckPositions(records []mapstate.PositionRecord) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	firstBatch := !w.baselined
	w.baselined = true

	for i := range records {
		rec := &records[i]
		plate := mapstate.NormalizePlate(rec.Plate)
		if plate == "" {
			continue
		}
		pos := mapstate.LatLng{Lat: rec.Latitude, Lng: rec.Longitude}
		if !pos.Valid() {
			continue
		}

		w.checkZones(plate, pos, firstBatch)
		w.checkDoor(plate, rec, pos)
		w.checkTemperature(plate, rec, pos)
	}
}

func (w *GeofenceWatcher) checkZones(plate string, pos mapstate.LatLng, firstBatch bool) {
	current := w.inside[plate]
	if current == nil {
		current = make(map[string]bool)
		w.inside[plate] = current
	}

	for _, zone := range w.geofences {
		in := zone.Contains(pos)
		was := current[zone.ID()]

		if in && !was {
			current[zone.ID()] = true
			if !firstBatch && zone.AlertOnEnter {
				w.raise(models.Alarm{
					Kind:         "geofence_enter",
					Plate:        plate,
					GeofenceID:   strPtr(zone.ID()),
					GeofenceName: strPtr(zone.Name),
					Latitude:     &pos.Lat,
					Longitude:    &pos.Lng,
				}, zone.Name, "enter")
			}
		} else if !in && was {
			delete(current, zone.ID())
			if zone.AlertOnExit {
				w.raise(models.Alarm{
					Kind:         "geofence_exit",
					Plate:        plate,
					GeofenceID:   strPtr(zone.ID()),
					GeofenceName: strPtr(zone.Name),
					Latitude:     &pos.Lat,
					Longitude:    &pos.Lng,
				}, zone.Name, "exit")
			}
		}
	}
}

// checkDoor raises once per open interval: a door that stays open across
// several polls produces a single alarm.
func (w *GeofenceWatcher) checkDoor(plate string, rec *mapstate.PositionRecord, pos mapstate.LatLng) {
	if !rec.DoorSensor {
		return
	}
	if rec.DoorOpen && !w.doorOpen[plate] {
		w.doorOpen[plate] = true
		detail := "cargo door opened"
		w.raise(models.Alarm{
			Kind:      "door_open",
			Plate:     plate,
			Latitude:  &pos.Lat,
			Longitude: &pos.Lng,
			Detail:    &detail,
		}, "", "")
	} else if !rec.DoorOpen {
		delete(w.doorOpen, plate)
	}
}

func (w *GeofenceWatcher) checkTemperature(plate string, rec *mapstate.PositionRecord, pos mapstate.LatLng) {
	if !rec.Refrigerated {
		return
	}

	outOfRange := false
	var detail string
	for _, t := range []*float64{rec.TempChannel1, rec.TempChannel2} {
		if t == nil {
			continue
		}
		if *t > tempAlarmMax || *t < tempAlarmMin {
			outOfRange = true
			detail = "temperature out of range: " + formatTemp(*t)
			break
		}
	}

	if outOfRange && !w.tempAlarm[plate] {
		w.tempAlarm[plate] = true
		w.raise(models.Alarm{
			Kind:      "temperature",
			Plate:     plate,
			Latitude:  &pos.Lat,
			Longitude: &pos.Lng,
			Detail:    &detail,
		}, "", "")
	} else if !outOfRange {
		delete(w.tempAlarm, plate)
	}
}

// raise persists the alarm, broadcasts it and fans out push
// notifications to every registered device token.
func (w *GeofenceWatcher) raise(alarm models.Alarm, geofenceName, direction string) {
	alarm.ID = uuid.New().String()
	alarm.RaisedAt = time.Now().Unix()

	if w.db != nil {
		_, err := w.db.Exec(`
			INSERT INTO alarms (id, kind, plate, geofence_id, geofence_name, latitude, longitude, detail, raised_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			alarm.ID, alarm.Kind, alarm.Plate, alarm.GeofenceID, alarm.GeofenceName,
			alarm.Latitude, alarm.Longitude, alarm.Detail, alarm.RaisedAt)
		if err != nil {
			log.Printf("❌ Failed to store alarm: %v", err)
		}
	}

	log.Printf("🚨 Alarm %s: %s %s", alarm.Kind, alarm.Plate, geofenceName)

	if w.hub != nil {
		payload := map[string]interface{}{
			"type":  "alarm",
			"alarm": alarm.ToResponse(),
		}
		w.hub.BroadcastToRole("operator", payload)
		w.hub.BroadcastToRole("admin", payload)
	}

	if w.fcm != nil && w.db != nil {
		var tokens []struct {
			UserID string `db:"user_id"`
			Token  string `db:"token"`
		}
		if err := w.db.Select(&tokens, "SELECT user_id, token FROM fcm_tokens"); err != nil {
			log.Printf("⚠️  Failed to load FCM tokens: %v", err)
			return
		}
		for _, row := range tokens {
			// Users watching a live dashboard already saw the alarm frame
			if w.hub != nil && w.hub.IsUserConnected(row.UserID) {
				continue
			}
			var err error
			switch alarm.Kind {
			case "geofence_enter", "geofence_exit":
				err = w.fcm.SendGeofenceAlarmNotification(row.Token, alarm.Plate, geofenceName, direction)
			default:
				detail := ""
				if alarm.Detail != nil {
					detail = *alarm.Detail
				}
				err = w.fcm.SendSensorAlarmNotification(row.Token, alarm.Plate, alarm.Kind, detail)
			}
			if err != nil {
				log.Printf("⚠️  FCM push failed: %v", err)
			}
		}
	}
}

func strPtr(s string) *string { return &s }

func formatTemp(t float64) string {
	return fmt.Sprintf("%.1f°C", t)
}
