package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// GetAlarms returns stored alarms, newest first. Supports ?kind=, ?plate=
// and ?unacknowledged=true filters.
func GetAlarms(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/alarms")

		query := "SELECT * FROM alarms"
		var args []interface{}
		var where []string

		if kind := r.URL.Query().Get("kind"); kind != "" {
			args = append(args, kind)
			where = append(where, "kind = $"+strconv.Itoa(len(args)))
		}
		if plate := r.URL.Query().Get("plate"); plate != "" {
			args = append(args, mapstate.NormalizePlate(plate))
			where = append(where, "plate = $"+strconv.Itoa(len(args)))
		}
		if r.URL.Query().Get("unacknowledged") == "true" {
			where = append(where, "acknowledged_at IS NULL")
		}
		if len(where) > 0 {
			query += " WHERE " + strings.Join(where, " AND ")
		}

		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
				limit = parsed
			}
		}
		args = append(args, limit)
		query += " ORDER BY raised_at DESC LIMIT $" + strconv.Itoa(len(args))

		var alarms []models.Alarm
		if err := db.Select(&alarms, query, args...); err != nil {
			log.Printf("❌ Error fetching alarms: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch alarms")
			return
		}

		response := make([]models.AlarmResponse, len(alarms))
		for i := range alarms {
			response[i] = alarms[i].ToResponse()
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// AcknowledgeAlarm marks an alarm as handled by the current user
func AcknowledgeAlarm(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarmID := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/alarms/%s/ack", alarmID)

		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		now := time.Now().Unix()
		result, err := db.Exec(`
			UPDATE alarms SET acknowledged_by = $1, acknowledged_at = $2
			WHERE id = $3 AND acknowledged_at IS NULL`,
			claims.UserID, now, alarmID)
		if err != nil {
			log.Printf("❌ Error acknowledging alarm: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to acknowledge alarm")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Alarm not found or already acknowledged")
			return
		}

		log.Printf("✅ Alarm %s acknowledged by %s", alarmID, claims.UserID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"acknowledged_at": time.Unix(now, 0).UTC().Format(time.RFC3339),
		})
	}
}
