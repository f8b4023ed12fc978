package handlers

import (
	"net/http"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/services"
	ws "fleetboard-backend/internal/websocket"
	"fleetboard-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

var startedAt = time.Now()

// GetDiagnostics reports service health: database reachability, map state
// versions, connected dashboards and geocoding cache performance
func GetDiagnostics(db *sqlx.DB, ctrl *mapstate.Controller, hub *ws.Hub, geocoding *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbOK := db.Ping() == nil

		report := map[string]interface{}{
			"status":         "ok",
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"database":       dbOK,
			"map": map[string]interface{}{
				"vehicles":        len(ctrl.Vehicles()),
				"geofences":       len(ctrl.Geofences()),
				"markers":         len(ctrl.Markers()),
				"routes":          len(ctrl.Routes()),
				"render_version":  ctrl.RenderVersion(),
				"cluster_version": ctrl.ClusterVersion(),
			},
			"websocket_clients": hub.ClientCount(),
			"websocket_users":   hub.ConnectedClientIDs(),
		}
		if !dbOK {
			report["status"] = "degraded"
		}
		if geocoding != nil {
			report["geocoding_cache"] = geocoding.GetCacheStats()
		}

		utils.RespondJSON(w, http.StatusOK, report)
	}
}
