package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LoadMarkerDrawables reads every stored marker as a drawable. Used at boot
// and after marker mutations.
func LoadMarkerDrawables(db *sqlx.DB) ([]*mapstate.MarkerDrawable, error) {
	var rows []models.Marker
	if err := db.Select(&rows, "SELECT * FROM markers ORDER BY created_at ASC"); err != nil {
		return nil, err
	}

	drawables := make([]*mapstate.MarkerDrawable, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		d := mapstate.NewMarkerDrawable(m.ID, m.Label, mapstate.LatLng{Lat: m.Latitude, Lng: m.Longitude})
		if d == nil {
			continue
		}
		if m.IconName != nil {
			d.IconName = *m.IconName
		}
		if m.Color != nil {
			d.Color = *m.Color
		}
		drawables = append(drawables, d)
	}
	return drawables, nil
}

func resyncMarkers(db *sqlx.DB, ctrl *mapstate.Controller) {
	drawables, err := LoadMarkerDrawables(db)
	if err != nil {
		log.Printf("❌ Failed to reload markers: %v", err)
		return
	}
	ctrl.SetMarkers(drawables)
}

// GetMarkers returns all stored custom markers
func GetMarkers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/markers")

		var markers []models.Marker
		if err := db.Select(&markers, "SELECT * FROM markers ORDER BY created_at ASC"); err != nil {
			log.Printf("❌ Error fetching markers: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch markers")
			return
		}

		utils.RespondJSON(w, http.StatusOK, markers)
	}
}

// CreateMarker stores a custom point of interest and pushes it onto the map
func CreateMarker(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/markers")

		var req models.CreateMarkerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Label == "" {
			utils.RespondError(w, http.StatusBadRequest, "label is required")
			return
		}
		if !(mapstate.LatLng{Lat: req.Latitude, Lng: req.Longitude}).Valid() {
			utils.RespondError(w, http.StatusBadRequest, "invalid coordinates")
			return
		}

		var createdBy *string
		if claims, ok := middleware.GetUserFromContext(r); ok {
			createdBy = &claims.UserID
		}

		marker := models.Marker{
			ID:        uuid.New().String(),
			Label:     req.Label,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			IconName:  req.IconName,
			Color:     req.Color,
			CreatedBy: createdBy,
			CreatedAt: time.Now().Unix(),
		}

		_, err := db.Exec(`
			INSERT INTO markers (id, label, latitude, longitude, icon_name, color, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			marker.ID, marker.Label, marker.Latitude, marker.Longitude,
			marker.IconName, marker.Color, marker.CreatedBy, marker.CreatedAt)
		if err != nil {
			log.Printf("❌ Error creating marker: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create marker")
			return
		}

		resyncMarkers(db, ctrl)

		log.Printf("✅ Created marker %s", marker.Label)
		utils.RespondJSON(w, http.StatusCreated, marker)
	}
}

// DeleteMarker removes a marker everywhere
func DeleteMarker(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markerID := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/markers/%s", markerID)

		result, err := db.Exec("DELETE FROM markers WHERE id = $1", markerID)
		if err != nil {
			log.Printf("❌ Error deleting marker: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete marker")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Marker not found")
			return
		}

		resyncMarkers(db, ctrl)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
