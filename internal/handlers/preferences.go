package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// GetPreferences returns every stored preference of the current user as a
// key/value map
func GetPreferences(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var prefs []models.Preference
		if err := db.Select(&prefs, "SELECT * FROM preferences WHERE user_id = $1", claims.UserID); err != nil {
			log.Printf("❌ Error fetching preferences: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch preferences")
			return
		}

		response := make(map[string]json.RawMessage, len(prefs))
		for _, p := range prefs {
			// Values are stored as opaque JSON; fall back to a JSON
			// string for anything older
			if json.Valid([]byte(p.Value)) {
				response[p.Key] = json.RawMessage(p.Value)
			} else {
				encoded, _ := json.Marshal(p.Value)
				response[p.Key] = encoded
			}
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// SetPreference upserts one preference key for the current user
func SetPreference(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		key := r.PathValue("key")
		if key == "" {
			utils.RespondError(w, http.StatusBadRequest, "key is required")
			return
		}

		var value json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "body must be valid JSON")
			return
		}

		_, err := db.Exec(`
			INSERT INTO preferences (user_id, key, value, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, key) DO UPDATE SET value = $3, updated_at = $4`,
			claims.UserID, key, string(value), time.Now().Unix())
		if err != nil {
			log.Printf("❌ Error storing preference: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store preference")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// DeletePreference removes one preference key for the current user
func DeletePreference(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		key := r.PathValue("key")
		_, err := db.Exec("DELETE FROM preferences WHERE user_id = $1 AND key = $2", claims.UserID, key)
		if err != nil {
			log.Printf("❌ Error deleting preference: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete preference")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
