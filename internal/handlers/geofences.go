package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/internal/services"
	"fleetboard-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LoadGeofenceRecords reads every stored zone as a map-state record. Used at
// boot and after every geofence mutation to resync the controller and the
// watcher.
func LoadGeofenceRecords(db *sqlx.DB) ([]mapstate.GeofenceRecord, error) {
	var rows []models.Geofence
	if err := db.Select(&rows, "SELECT * FROM geofences ORDER BY created_at ASC"); err != nil {
		return nil, err
	}

	records := make([]mapstate.GeofenceRecord, 0, len(rows))
	for i := range rows {
		records = append(records, geofenceToRecord(&rows[i]))
	}
	return records, nil
}

func geofenceToRecord(g *models.Geofence) mapstate.GeofenceRecord {
	rec := mapstate.GeofenceRecord{
		ID:           g.ID,
		Name:         g.Name,
		Shape:        mapstate.GeofenceShape(g.Shape),
		Editable:     true,
		AlertOnEnter: g.AlertOnEnter,
		AlertOnExit:  g.AlertOnExit,
	}
	if g.CenterLat != nil && g.CenterLng != nil {
		rec.Center = mapstate.LatLng{Lat: *g.CenterLat, Lng: *g.CenterLng}
	}
	if g.RadiusMeters != nil {
		rec.RadiusMeters = *g.RadiusMeters
	}
	if g.StrokeColor != nil {
		rec.StrokeColor = *g.StrokeColor
	}
	if g.FillColor != nil {
		rec.FillColor = *g.FillColor
	}
	if g.RingJSON != nil {
		var ring []models.RingPoint
		if err := json.Unmarshal([]byte(*g.RingJSON), &ring); err == nil {
			rec.Ring = make([]mapstate.LatLng, len(ring))
			for i, p := range ring {
				rec.Ring[i] = mapstate.LatLng{Lat: p.Lat, Lng: p.Lng}
			}
		}
	}
	return rec
}

func decodeRing(g *models.Geofence) []models.RingPoint {
	if g.RingJSON == nil {
		return nil
	}
	var ring []models.RingPoint
	if err := json.Unmarshal([]byte(*g.RingJSON), &ring); err != nil {
		return nil
	}
	return ring
}

func resyncGeofences(db *sqlx.DB, ctrl *mapstate.Controller, watcher *services.GeofenceWatcher) {
	records, err := LoadGeofenceRecords(db)
	if err != nil {
		log.Printf("❌ Failed to reload geofences: %v", err)
		return
	}
	ctrl.UpdateGeofences(records)
	if watcher != nil {
		watcher.SetGeofences(records)
	}
}

func validGeofenceGeometry(shape string, centerLat, centerLng, radius *float64, ring []models.RingPoint) bool {
	switch shape {
	case "circle":
		return centerLat != nil && centerLng != nil && radius != nil && *radius > 0
	case "polygon":
		return len(ring) >= 3
	}
	return false
}

// GetGeofences returns all stored zones
func GetGeofences(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/geofences")

		var zones []models.Geofence
		if err := db.Select(&zones, "SELECT * FROM geofences ORDER BY created_at ASC"); err != nil {
			log.Printf("❌ Error fetching geofences: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch geofences")
			return
		}

		response := make([]models.GeofenceResponse, len(zones))
		for i := range zones {
			response[i] = zones[i].ToResponse(decodeRing(&zones[i]))
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// CreateGeofence stores a new zone and pushes it onto every dashboard
func CreateGeofence(db *sqlx.DB, ctrl *mapstate.Controller, watcher *services.GeofenceWatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/geofences")

		var req models.CreateGeofenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "name is required")
			return
		}
		if !validGeofenceGeometry(req.Shape, req.CenterLat, req.CenterLng, req.RadiusMeters, req.Ring) {
			utils.RespondError(w, http.StatusBadRequest, "invalid geometry: circles need center and positive radius, polygons need at least 3 ring points")
			return
		}

		var createdBy *string
		if claims, ok := middleware.GetUserFromContext(r); ok {
			createdBy = &claims.UserID
		}

		var ringJSON *string
		if len(req.Ring) > 0 {
			encoded, err := json.Marshal(req.Ring)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, "invalid ring")
				return
			}
			s := string(encoded)
			ringJSON = &s
		}

		now := time.Now().Unix()
		zone := models.Geofence{
			ID:           uuid.New().String(),
			Name:         req.Name,
			Shape:        req.Shape,
			CenterLat:    req.CenterLat,
			CenterLng:    req.CenterLng,
			RadiusMeters: req.RadiusMeters,
			RingJSON:     ringJSON,
			StrokeColor:  req.StrokeColor,
			FillColor:    req.FillColor,
			AlertOnEnter: req.AlertOnEnter,
			AlertOnExit:  req.AlertOnExit,
			CreatedBy:    createdBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		_, err := db.Exec(`
			INSERT INTO geofences (id, name, shape, center_lat, center_lng, radius_meters, ring_json,
				stroke_color, fill_color, alert_on_enter, alert_on_exit, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			zone.ID, zone.Name, zone.Shape, zone.CenterLat, zone.CenterLng, zone.RadiusMeters,
			zone.RingJSON, zone.StrokeColor, zone.FillColor, zone.AlertOnEnter, zone.AlertOnExit,
			zone.CreatedBy, now, now)
		if err != nil {
			log.Printf("❌ Error creating geofence: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create geofence")
			return
		}

		resyncGeofences(db, ctrl, watcher)

		log.Printf("✅ Created geofence %s (%s)", zone.Name, zone.Shape)
		utils.RespondJSON(w, http.StatusCreated, zone.ToResponse(req.Ring))
	}
}

// UpdateGeofence patches a zone in place
func UpdateGeofence(db *sqlx.DB, ctrl *mapstate.Controller, watcher *services.GeofenceWatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zoneID := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/geofences/%s", zoneID)

		var req models.UpdateGeofenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var zone models.Geofence
		if err := db.Get(&zone, "SELECT * FROM geofences WHERE id = $1", zoneID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Geofence not found")
			return
		}

		if req.Name != nil {
			zone.Name = *req.Name
		}
		if req.CenterLat != nil {
			zone.CenterLat = req.CenterLat
		}
		if req.CenterLng != nil {
			zone.CenterLng = req.CenterLng
		}
		if req.RadiusMeters != nil {
			zone.RadiusMeters = req.RadiusMeters
		}
		if len(req.Ring) > 0 {
			encoded, err := json.Marshal(req.Ring)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, "invalid ring")
				return
			}
			s := string(encoded)
			zone.RingJSON = &s
		}
		if req.StrokeColor != nil {
			zone.StrokeColor = req.StrokeColor
		}
		if req.FillColor != nil {
			zone.FillColor = req.FillColor
		}
		if req.AlertOnEnter != nil {
			zone.AlertOnEnter = *req.AlertOnEnter
		}
		if req.AlertOnExit != nil {
			zone.AlertOnExit = *req.AlertOnExit
		}

		ring := decodeRing(&zone)
		if !validGeofenceGeometry(zone.Shape, zone.CenterLat, zone.CenterLng, zone.RadiusMeters, ring) {
			utils.RespondError(w, http.StatusBadRequest, "update would leave invalid geometry")
			return
		}

		zone.UpdatedAt = time.Now().Unix()

		_, err := db.Exec(`
			UPDATE geofences SET name = $1, center_lat = $2, center_lng = $3, radius_meters = $4,
				ring_json = $5, stroke_color = $6, fill_color = $7, alert_on_enter = $8,
				alert_on_exit = $9, updated_at = $10
			WHERE id = $11`,
			zone.Name, zone.CenterLat, zone.CenterLng, zone.RadiusMeters, zone.RingJSON,
			zone.StrokeColor, zone.FillColor, zone.AlertOnEnter, zone.AlertOnExit,
			zone.UpdatedAt, zoneID)
		if err != nil {
			log.Printf("❌ Error updating geofence: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update geofence")
			return
		}

		resyncGeofences(db, ctrl, watcher)

		utils.RespondJSON(w, http.StatusOK, zone.ToResponse(ring))
	}
}

// DeleteGeofence removes a zone everywhere
func DeleteGeofence(db *sqlx.DB, ctrl *mapstate.Controller, watcher *services.GeofenceWatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zoneID := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/geofences/%s", zoneID)

		result, err := db.Exec("DELETE FROM geofences WHERE id = $1", zoneID)
		if err != nil {
			log.Printf("❌ Error deleting geofence: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete geofence")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Geofence not found")
			return
		}

		resyncGeofences(db, ctrl, watcher)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// GetGeofenceVehicles returns the live vehicles currently inside a zone
func GetGeofenceVehicles(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zoneID := r.PathValue("id")

		var zone *mapstate.GeofenceDrawable
		for _, g := range ctrl.Geofences() {
			if g.ID() == zoneID {
				zone = g
				break
			}
		}
		if zone == nil {
			utils.RespondError(w, http.StatusNotFound, "Geofence not found")
			return
		}

		inside := []*mapstate.VehicleDrawable{}
		for _, v := range ctrl.Vehicles() {
			if zone.Contains(v.Position()) {
				inside = append(inside, v)
			}
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"geofence_id": zoneID,
			"vehicles":    inside,
		})
	}
}
