package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/internal/services"
	"fleetboard-backend/internal/services/telemetry"
	"fleetboard-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// IngestPositions accepts a telemetry batch pushed over HTTP instead of the
// poller. The payload goes through the same normalizer, so any provider
// field naming is accepted. Each record is stored and the map state is
// rebuilt from the batch.
func IngestPositions(db *sqlx.DB, ctrl *mapstate.Controller, watcher *services.GeofenceWatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/positions")

		// Providers authenticate with a shared token, not a user JWT
		if expected := os.Getenv("TELEMETRY_INGEST_TOKEN"); expected != "" {
			if r.Header.Get("Authorization") != "Bearer "+expected {
				utils.RespondError(w, http.StatusUnauthorized, "Invalid ingest token")
				return
			}
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Failed to read body")
			return
		}

		records, err := telemetry.NormalizeBatch(body)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Unrecognized payload: "+err.Error())
			return
		}

		now := time.Now().Unix()
		stored := 0
		for i := range records {
			rec := &records[i]
			fixTime := rec.FixTime.Unix()
			if rec.FixTime.IsZero() {
				fixTime = now
			}
			_, err := db.Exec(`
				INSERT INTO positions (plate, unit_id, latitude, longitude, heading, speed, address,
					ignition, door_open, temp_channel_1, temp_channel_2, fix_time, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				mapstate.NormalizePlate(rec.Plate), nullIfEmpty(rec.UnitID),
				rec.Latitude, rec.Longitude, rec.Heading, rec.Speed, nullIfEmpty(rec.Address),
				rec.Ignition, rec.DoorOpen, rec.TempChannel1, rec.TempChannel2, fixTime, now)
			if err != nil {
				log.Printf("⚠️  Failed to store position for %s: %v", rec.Plate, err)
				continue
			}
			stored++
		}

		ctrl.UpdateVehicles(records)
		if watcher != nil {
			watcher.CheckPositions(records)
		}

		log.Printf("✅ Ingested %d positions (%d stored)", len(records), stored)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":        true,
			"received":       len(records),
			"stored":         stored,
			"render_version": ctrl.RenderVersion(),
		})
	}
}

// GetPositionHistory returns stored fixes for one plate, newest first
func GetPositionHistory(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := mapstate.NormalizePlate(r.PathValue("plate"))
		log.Printf("📥 REQUEST: GET /api/positions/%s", plate)

		limit := 200
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 2000 {
				limit = parsed
			}
		}

		query := "SELECT * FROM positions WHERE plate = $1"
		args := []interface{}{plate}

		if raw := r.URL.Query().Get("from"); raw != "" {
			if from, err := strconv.ParseInt(raw, 10, 64); err == nil {
				args = append(args, from)
				query += " AND fix_time >= $" + strconv.Itoa(len(args))
			}
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			if to, err := strconv.ParseInt(raw, 10, 64); err == nil {
				args = append(args, to)
				query += " AND fix_time <= $" + strconv.Itoa(len(args))
			}
		}

		args = append(args, limit)
		query += " ORDER BY fix_time DESC LIMIT $" + strconv.Itoa(len(args))

		var positions []models.Position
		if err := db.Select(&positions, query, args...); err != nil {
			log.Printf("❌ Error fetching history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch history")
			return
		}

		response := make([]models.PositionResponse, len(positions))
		for i := range positions {
			response[i] = positions[i].ToResponse()
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
