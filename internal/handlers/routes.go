package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LoadRouteDrawables builds the route overlay set: every template, flagged
// active when a running trip references it. Used at boot and after route or
// trip mutations.
func LoadRouteDrawables(db *sqlx.DB) ([]*mapstate.RouteDrawable, error) {
	var templates []models.RouteTemplate
	if err := db.Select(&templates, "SELECT * FROM routes ORDER BY created_at ASC"); err != nil {
		return nil, err
	}

	activeRoutes := map[string]bool{}
	var activeIDs []string
	if err := db.Select(&activeIDs, "SELECT route_id FROM trips WHERE status = 'active'"); err == nil {
		for _, id := range activeIDs {
			activeRoutes[id] = true
		}
	}

	drawables := make([]*mapstate.RouteDrawable, 0, len(templates))
	for i := range templates {
		d := routeTemplateToDrawable(&templates[i])
		if d == nil {
			continue
		}
		d.Active = activeRoutes[templates[i].ID]
		drawables = append(drawables, d)
	}
	return drawables, nil
}

func routeTemplateToDrawable(t *models.RouteTemplate) *mapstate.RouteDrawable {
	var rawPath []models.RingPoint
	if err := json.Unmarshal([]byte(t.PathJSON), &rawPath); err != nil {
		return nil
	}
	path := make([]mapstate.LatLng, len(rawPath))
	for i, p := range rawPath {
		path[i] = mapstate.LatLng{Lat: p.Lat, Lng: p.Lng}
	}

	var rawStops []models.RouteStopDef
	_ = json.Unmarshal([]byte(t.StopsJSON), &rawStops)
	stops := make([]mapstate.RouteStop, 0, len(rawStops))
	for _, s := range rawStops {
		stops = append(stops, mapstate.RouteStop{
			Name:      s.Name,
			Kind:      mapstate.StopKind(s.Kind),
			Position:  mapstate.LatLng{Lat: s.Lat, Lng: s.Lng},
			Completed: s.Completed,
		})
	}

	d := mapstate.NewRouteDrawable(t.ID, t.Name, path, stops, scheduleOf(t))
	if d == nil {
		return nil
	}
	if t.Color != nil {
		d.Color = *t.Color
	}
	return d
}

func scheduleOf(t *models.RouteTemplate) *mapstate.RouteSchedule {
	if t.ScheduleDays == nil {
		return nil
	}
	var days []int
	for _, part := range strings.Split(*t.ScheduleDays, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n >= 0 && n <= 6 {
			days = append(days, n)
		}
	}
	if len(days) == 0 {
		return nil
	}
	sched := &mapstate.RouteSchedule{Weekdays: days}
	if t.ScheduleStart != nil {
		sched.StartTime = *t.ScheduleStart
	}
	if t.ScheduleEnd != nil {
		sched.EndTime = *t.ScheduleEnd
	}
	return sched
}

func resyncRoutes(db *sqlx.DB, ctrl *mapstate.Controller) {
	drawables, err := LoadRouteDrawables(db)
	if err != nil {
		log.Printf("❌ Failed to reload routes: %v", err)
		return
	}
	ctrl.SetRoutes(drawables)
}

func routeToResponse(t *models.RouteTemplate) models.RouteTemplateResponse {
	resp := models.RouteTemplateResponse{RouteTemplate: *t}
	_ = json.Unmarshal([]byte(t.PathJSON), &resp.Path)
	_ = json.Unmarshal([]byte(t.StopsJSON), &resp.Stops)
	return resp
}

// GetRoutes returns all route templates
func GetRoutes(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/routes")

		var templates []models.RouteTemplate
		if err := db.Select(&templates, "SELECT * FROM routes ORDER BY created_at ASC"); err != nil {
			log.Printf("❌ Error fetching routes: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch routes")
			return
		}

		response := make([]models.RouteTemplateResponse, len(templates))
		for i := range templates {
			response[i] = routeToResponse(&templates[i])
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// CreateRoute stores a route template
func CreateRoute(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/routes")

		var req models.CreateRouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" || len(req.Path) < 2 {
			utils.RespondError(w, http.StatusBadRequest, "name and a path of at least 2 points are required")
			return
		}

		pathJSON, _ := json.Marshal(req.Path)
		stops := req.Stops
		if stops == nil {
			stops = []models.RouteStopDef{}
		}
		stopsJSON, _ := json.Marshal(stops)

		var createdBy *string
		if claims, ok := middleware.GetUserFromContext(r); ok {
			createdBy = &claims.UserID
		}

		now := time.Now().Unix()
		template := models.RouteTemplate{
			ID:              uuid.New().String(),
			Name:            req.Name,
			Description:     req.Description,
			PathJSON:        string(pathJSON),
			StopsJSON:       string(stopsJSON),
			ScheduleDays:    req.ScheduleDays,
			ScheduleStart:   req.ScheduleStart,
			ScheduleEnd:     req.ScheduleEnd,
			Color:           req.Color,
			CreatedByUserID: createdBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		_, err := db.Exec(`
			INSERT INTO routes (id, name, description, path_json, stops_json, schedule_days,
				schedule_start, schedule_end, color, created_by_user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			template.ID, template.Name, template.Description, template.PathJSON, template.StopsJSON,
			template.ScheduleDays, template.ScheduleStart, template.ScheduleEnd, template.Color,
			template.CreatedByUserID, now, now)
		if err != nil {
			log.Printf("❌ Error creating route: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create route")
			return
		}

		resyncRoutes(db, ctrl)

		log.Printf("✅ Created route %s (%d path points)", template.Name, len(req.Path))
		utils.RespondJSON(w, http.StatusCreated, routeToResponse(&template))
	}
}

// UpdateRoute patches a template
func UpdateRoute(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/routes/%s", routeID)

		var req models.UpdateRouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var template models.RouteTemplate
		if err := db.Get(&template, "SELECT * FROM routes WHERE id = $1", routeID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Route not found")
			return
		}

		if req.Name != nil {
			template.Name = *req.Name
		}
		if req.Description != nil {
			template.Description = req.Description
		}
		if len(req.Path) >= 2 {
			encoded, _ := json.Marshal(req.Path)
			template.PathJSON = string(encoded)
		}
		if req.Stops != nil {
			encoded, _ := json.Marshal(req.Stops)
			template.StopsJSON = string(encoded)
		}
		if req.ScheduleDays != nil {
			template.ScheduleDays = req.ScheduleDays
		}
		if req.ScheduleStart != nil {
			template.ScheduleStart = req.ScheduleStart
		}
		if req.ScheduleEnd != nil {
			template.ScheduleEnd = req.ScheduleEnd
		}
		if req.Color != nil {
			template.Color = req.Color
		}
		template.UpdatedAt = time.Now().Unix()

		_, err := db.Exec(`
			UPDATE routes SET name = $1, description = $2, path_json = $3, stops_json = $4,
				schedule_days = $5, schedule_start = $6, schedule_end = $7, color = $8, updated_at = $9
			WHERE id = $10`,
			template.Name, template.Description, template.PathJSON, template.StopsJSON,
			template.ScheduleDays, template.ScheduleStart, template.ScheduleEnd, template.Color,
			template.UpdatedAt, routeID)
		if err != nil {
			log.Printf("❌ Error updating route: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update route")
			return
		}

		resyncRoutes(db, ctrl)

		utils.RespondJSON(w, http.StatusOK, routeToResponse(&template))
	}
}

// DeleteRoute removes a template and its trips
func DeleteRoute(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/routes/%s", routeID)

		result, err := db.Exec("DELETE FROM routes WHERE id = $1", routeID)
		if err != nil {
			log.Printf("❌ Error deleting route: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete route")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Route not found")
			return
		}

		resyncRoutes(db, ctrl)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// HighlightRoute toggles the emphasized rendering of one route
func HighlightRoute(ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := r.PathValue("id")

		var req struct {
			Highlighted bool `json:"highlighted"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ctrl.HighlightRoute(routeID, req.Highlighted)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// GetTrips returns trips, optionally filtered by status or plate
func GetTrips(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/trips")

		query := "SELECT * FROM trips"
		var args []interface{}
		var where []string

		if status := r.URL.Query().Get("status"); status != "" {
			args = append(args, status)
			where = append(where, "status = $"+strconv.Itoa(len(args)))
		}
		if plate := r.URL.Query().Get("plate"); plate != "" {
			args = append(args, mapstate.NormalizePlate(plate))
			where = append(where, "vehicle_plate = $"+strconv.Itoa(len(args)))
		}
		if len(where) > 0 {
			query += " WHERE " + strings.Join(where, " AND ")
		}
		query += " ORDER BY created_at DESC"

		var trips []models.Trip
		if err := db.Select(&trips, query, args...); err != nil {
			log.Printf("❌ Error fetching trips: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch trips")
			return
		}

		utils.RespondJSON(w, http.StatusOK, trips)
	}
}

// CreateTrip assigns a route template to a vehicle as a planned trip. The
// trip takes its own copy of the stops so completion flags stay per trip.
func CreateTrip(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/trips")

		var req models.CreateTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		plate := mapstate.NormalizePlate(req.VehiclePlate)
		if req.RouteID == "" || plate == "" {
			utils.RespondError(w, http.StatusBadRequest, "route_id and vehicle_plate are required")
			return
		}

		var template models.RouteTemplate
		if err := db.Get(&template, "SELECT * FROM routes WHERE id = $1", req.RouteID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Route not found")
			return
		}

		var assignedBy *string
		if claims, ok := middleware.GetUserFromContext(r); ok {
			assignedBy = &claims.UserID
		}

		now := time.Now().Unix()
		trip := models.Trip{
			ID:           uuid.New().String(),
			RouteID:      template.ID,
			VehiclePlate: plate,
			Status:       "planned",
			StopsJSON:    template.StopsJSON,
			AssignedBy:   assignedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		_, err := db.Exec(`
			INSERT INTO trips (id, route_id, vehicle_plate, status, stops_json, assigned_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			trip.ID, trip.RouteID, trip.VehiclePlate, trip.Status, trip.StopsJSON,
			trip.AssignedBy, now, now)
		if err != nil {
			log.Printf("❌ Error creating trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create trip")
			return
		}

		log.Printf("✅ Trip created: route %s → %s", template.Name, plate)
		utils.RespondJSON(w, http.StatusCreated, trip)
	}
}

// UpdateTripStatus moves a trip through planned → active → completed (or
// cancelled) and keeps the route overlays in sync
func UpdateTripStatus(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/trips/%s/status", tripID)

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		valid := map[string]bool{"planned": true, "active": true, "completed": true, "cancelled": true}
		if !valid[req.Status] {
			utils.RespondError(w, http.StatusBadRequest, "status must be planned, active, completed or cancelled")
			return
		}

		var trip models.Trip
		if err := db.Get(&trip, "SELECT * FROM trips WHERE id = $1", tripID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Trip not found")
			return
		}

		now := time.Now().Unix()
		trip.Status = req.Status
		trip.UpdatedAt = now
		if req.Status == "active" && trip.StartedAt == nil {
			trip.StartedAt = &now
		}
		if req.Status == "completed" {
			trip.CompletedAt = &now
		}

		_, err := db.Exec(`
			UPDATE trips SET status = $1, started_at = $2, completed_at = $3, updated_at = $4
			WHERE id = $5`,
			trip.Status, trip.StartedAt, trip.CompletedAt, trip.UpdatedAt, tripID)
		if err != nil {
			log.Printf("❌ Error updating trip: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update trip")
			return
		}

		resyncRoutes(db, ctrl)

		log.Printf("✅ Trip %s → %s", tripID, trip.Status)
		utils.RespondJSON(w, http.StatusOK, trip)
	}
}

// CompleteTripStop marks one stop of a trip as done, by index
func CompleteTripStop(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tripID := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/trips/%s/stops", tripID)

		var req struct {
			StopIndex int `json:"stop_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var trip models.Trip
		if err := db.Get(&trip, "SELECT * FROM trips WHERE id = $1", tripID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Trip not found")
			return
		}

		var stops []models.RouteStopDef
		if err := json.Unmarshal([]byte(trip.StopsJSON), &stops); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Trip stops are corrupt")
			return
		}
		if req.StopIndex < 0 || req.StopIndex >= len(stops) {
			utils.RespondError(w, http.StatusBadRequest, "stop_index out of range")
			return
		}

		stops[req.StopIndex].Completed = true
		encoded, _ := json.Marshal(stops)
		trip.StopsJSON = string(encoded)
		trip.UpdatedAt = time.Now().Unix()

		_, err := db.Exec("UPDATE trips SET stops_json = $1, updated_at = $2 WHERE id = $3",
			trip.StopsJSON, trip.UpdatedAt, tripID)
		if err != nil {
			log.Printf("❌ Error completing stop: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to complete stop")
			return
		}

		completed := 0
		for _, s := range stops {
			if s.Completed {
				completed++
			}
		}
		log.Printf("✅ Trip %s: %d/%d stops completed", tripID, completed, len(stops))

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"completed_stops": completed,
			"total_stops":     len(stops),
		})
	}
}
