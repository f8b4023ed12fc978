package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CreateVehicleRequest struct {
	Plate         string  `json:"plate"`
	UnitID        *string `json:"unit_id,omitempty"`
	Nickname      *string `json:"nickname,omitempty"`
	VehicleTypeID *string `json:"vehicle_type_id,omitempty"`
	Model         *string `json:"model,omitempty"`
	CarrierID     *string `json:"carrier_id,omitempty"`
	Refrigerated  bool    `json:"refrigerated"`
	DoorSensor    bool    `json:"door_sensor"`
}

type UpdateVehicleRequest struct {
	UnitID        *string `json:"unit_id,omitempty"`
	Nickname      *string `json:"nickname,omitempty"`
	VehicleTypeID *string `json:"vehicle_type_id,omitempty"`
	Model         *string `json:"model,omitempty"`
	CarrierID     *string `json:"carrier_id,omitempty"`
	Refrigerated  *bool   `json:"refrigerated,omitempty"`
	DoorSensor    *bool   `json:"door_sensor,omitempty"`
}

// GetVehicles returns the vehicle master-data registry
func GetVehicles(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/vehicles")

		var vehicles []models.Vehicle
		if err := db.Select(&vehicles, "SELECT * FROM vehicles ORDER BY plate ASC"); err != nil {
			log.Printf("❌ Error fetching vehicles: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch vehicles")
			return
		}

		utils.RespondJSON(w, http.StatusOK, vehicles)
	}
}

// GetVehicle returns one registry entry by normalized plate
func GetVehicle(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := mapstate.NormalizePlate(r.PathValue("plate"))

		var vehicle models.Vehicle
		if err := db.Get(&vehicle, "SELECT * FROM vehicles WHERE plate = $1", plate); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, vehicle)
	}
}

// CreateVehicle registers a fleet unit. The plate is stored normalized so
// registry rows line up with telemetry plates.
func CreateVehicle(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/vehicles")

		var req CreateVehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		plate := mapstate.NormalizePlate(req.Plate)
		if plate == "" {
			utils.RespondError(w, http.StatusBadRequest, "plate is required")
			return
		}

		now := time.Now().Unix()
		vehicle := models.Vehicle{
			ID:            uuid.New().String(),
			Plate:         plate,
			UnitID:        req.UnitID,
			Nickname:      req.Nickname,
			VehicleTypeID: req.VehicleTypeID,
			Model:         req.Model,
			CarrierID:     req.CarrierID,
			Refrigerated:  req.Refrigerated,
			DoorSensor:    req.DoorSensor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		_, err := db.Exec(`
			INSERT INTO vehicles (id, plate, unit_id, nickname, vehicle_type_id, model, carrier_id,
				refrigerated, door_sensor, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			vehicle.ID, vehicle.Plate, vehicle.UnitID, vehicle.Nickname, vehicle.VehicleTypeID,
			vehicle.Model, vehicle.CarrierID, vehicle.Refrigerated, vehicle.DoorSensor, now, now)
		if err != nil {
			log.Printf("❌ Error creating vehicle: %v", err)
			utils.RespondError(w, http.StatusConflict, "Failed to create vehicle (plate may already exist)")
			return
		}

		log.Printf("✅ Registered vehicle %s", plate)
		utils.RespondJSON(w, http.StatusCreated, vehicle)
	}
}

// UpdateVehicle patches a registry entry. The plate itself never changes,
// it is the stable join key against telemetry.
func UpdateVehicle(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := mapstate.NormalizePlate(r.PathValue("plate"))
		log.Printf("📥 REQUEST: PATCH /api/vehicles/%s", plate)

		var req UpdateVehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var vehicle models.Vehicle
		if err := db.Get(&vehicle, "SELECT * FROM vehicles WHERE plate = $1", plate); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
			return
		}

		if req.UnitID != nil {
			vehicle.UnitID = req.UnitID
		}
		if req.Nickname != nil {
			vehicle.Nickname = req.Nickname
		}
		if req.VehicleTypeID != nil {
			vehicle.VehicleTypeID = req.VehicleTypeID
		}
		if req.Model != nil {
			vehicle.Model = req.Model
		}
		if req.CarrierID != nil {
			vehicle.CarrierID = req.CarrierID
		}
		if req.Refrigerated != nil {
			vehicle.Refrigerated = *req.Refrigerated
		}
		if req.DoorSensor != nil {
			vehicle.DoorSensor = *req.DoorSensor
		}
		vehicle.UpdatedAt = time.Now().Unix()

		_, err := db.Exec(`
			UPDATE vehicles SET unit_id = $1, nickname = $2, vehicle_type_id = $3, model = $4,
				carrier_id = $5, refrigerated = $6, door_sensor = $7, updated_at = $8
			WHERE plate = $9`,
			vehicle.UnitID, vehicle.Nickname, vehicle.VehicleTypeID, vehicle.Model,
			vehicle.CarrierID, vehicle.Refrigerated, vehicle.DoorSensor, vehicle.UpdatedAt, plate)
		if err != nil {
			log.Printf("❌ Error updating vehicle: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update vehicle")
			return
		}

		utils.RespondJSON(w, http.StatusOK, vehicle)
	}
}

// DeleteVehicle removes a registry entry
func DeleteVehicle(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := mapstate.NormalizePlate(r.PathValue("plate"))
		log.Printf("📥 REQUEST: DELETE /api/vehicles/%s", plate)

		result, err := db.Exec("DELETE FROM vehicles WHERE plate = $1", plate)
		if err != nil {
			log.Printf("❌ Error deleting vehicle: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete vehicle")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Vehicle not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
