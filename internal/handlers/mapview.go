package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// viewStatePreferenceKey is where a user's saved display state lives in the
// preferences table
const viewStatePreferenceKey = "map_view_state"

// GetMapSnapshot returns the full current map state
func GetMapSnapshot(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

// GetMapVehicles returns the vehicles passing the active view filters
func GetMapVehicles(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"vehicles":       ctrl.FilteredVehicles(),
			"render_version": ctrl.RenderVersion(),
		})
	}
}

// GetMapClusters returns the current cluster set (null when clustering is off)
func GetMapClusters(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"clusters":        ctrl.Clusters(),
			"cluster_version": ctrl.ClusterVersion(),
		})
	}
}

// SetMapFilters replaces the view filters
func SetMapFilters(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filters mapstate.FilterOptions
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ctrl.SetFilters(filters)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"filters": ctrl.Filters(),
		})
	}
}

// SetMapDisplay applies display toggles. Only the fields present in the body
// change.
func SetMapDisplay(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Clustering      *bool   `json:"clustering,omitempty"`
			Traffic         *bool   `json:"traffic,omitempty"`
			TileProvider    *string `json:"tile_provider,omitempty"`
			CouplingEnabled *bool   `json:"coupling_enabled,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Clustering != nil {
			ctrl.SetClustering(*req.Clustering)
		}
		if req.Traffic != nil {
			ctrl.SetTraffic(*req.Traffic)
		}
		if req.TileProvider != nil {
			ctrl.SetTileProvider(*req.TileProvider)
		}
		if req.CouplingEnabled != nil {
			ctrl.SetCouplingEnabled(*req.CouplingEnabled)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"view":    ctrl.ViewState(),
		})
	}
}

// HideVehicle drops a plate from the rendered set without touching the feed
func HideVehicle(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := r.PathValue("plate")
		ctrl.HidePlate(plate)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"hidden_plates": ctrl.HiddenPlates(),
		})
	}
}

// ShowVehicle restores a hidden plate
func ShowVehicle(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := r.PathValue("plate")
		ctrl.ShowPlate(plate)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"hidden_plates": ctrl.HiddenPlates(),
		})
	}
}

// SelectVehicle marks a vehicle as selected on every connected dashboard
func SelectVehicle(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			utils.RespondError(w, http.StatusBadRequest, "id is required")
			return
		}

		if _, ok := ctrl.Vehicle(req.ID); !ok {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not on the map")
			return
		}

		ctrl.SelectVehicle(req.ID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"selected": ctrl.SelectedVehicleID(),
		})
	}
}

// ClearVehicleSelection clears the shared selection
func ClearVehicleSelection(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.ClearSelection()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// FollowVehicle enters follow mode: the view recenters on the vehicle at
// every position update
func FollowVehicle(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			utils.RespondError(w, http.StatusBadRequest, "id is required")
			return
		}

		ctrl.FollowVehicle(req.ID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"followed": ctrl.FollowedVehicleID(),
		})
	}
}

// StopFollowingVehicle leaves follow mode
func StopFollowingVehicle(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.StopFollowing()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// FitMapBounds asks every dashboard to frame the visible fleet
func FitMapBounds(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.FitBounds()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// GetViewState returns the restorable display state
func GetViewState(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, ctrl.ViewState())
	}
}

// SaveViewState persists the current display state as the user's preference
func SaveViewState(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		state := ctrl.ViewState()
		encoded, err := json.Marshal(state)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to encode view state")
			return
		}

		_, err = db.Exec(`
			INSERT INTO preferences (user_id, key, value, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, key) DO UPDATE SET value = $3, updated_at = $4`,
			claims.UserID, viewStatePreferenceKey, string(encoded), time.Now().Unix())
		if err != nil {
			log.Printf("❌ Failed to save view state: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save view state")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"view":    state,
		})
	}
}

// RestoreViewState applies a display state. The body takes precedence; with
// an empty body the user's saved preference is loaded instead.
func RestoreViewState(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var state mapstate.ViewState

		decodeErr := json.NewDecoder(r.Body).Decode(&state)
		if decodeErr != nil {
			claims, ok := middleware.GetUserFromContext(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			var stored string
			err := db.Get(&stored,
				"SELECT value FROM preferences WHERE user_id = $1 AND key = $2",
				claims.UserID, viewStatePreferenceKey)
			if err != nil {
				utils.RespondError(w, http.StatusNotFound, "No saved view state")
				return
			}
			if err := json.Unmarshal([]byte(stored), &state); err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Saved view state is corrupt")
				return
			}
		}

		ctrl.RestoreViewState(state)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"view":    ctrl.ViewState(),
		})
	}
}

// ResetMapState clears every collection and display option
func ResetMapState(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/map/reset")
		ctrl.Reset()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
