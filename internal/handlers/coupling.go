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

// GetCouplings returns the declared truck/trailer pairs
func GetCouplings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/coupling")

		var pairs []models.CouplingPair
		if err := db.Select(&pairs, "SELECT * FROM coupling_pairs ORDER BY created_at DESC"); err != nil {
			log.Printf("❌ Error fetching coupling pairs: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch coupling pairs")
			return
		}

		utils.RespondJSON(w, http.StatusOK, pairs)
	}
}

// CreateCoupling declares a truck and trailer as joined. The pair is stored
// and pushed into the map controller, which re-merges the live fleet.
func CreateCoupling(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/coupling")

		var req models.CreateCouplingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		truck := mapstate.NormalizePlate(req.TruckPlate)
		trailer := mapstate.NormalizePlate(req.TrailerPlate)
		if truck == "" || trailer == "" || truck == trailer {
			utils.RespondError(w, http.StatusBadRequest, "truck_plate and trailer_plate must be two distinct plates")
			return
		}

		var createdBy *string
		if claims, ok := middleware.GetUserFromContext(r); ok {
			createdBy = &claims.UserID
		}

		pair := models.CouplingPair{
			ID:           uuid.New().String(),
			TruckPlate:   truck,
			TrailerPlate: trailer,
			CreatedBy:    createdBy,
			CreatedAt:    time.Now().Unix(),
		}

		_, err := db.Exec(`
			INSERT INTO coupling_pairs (id, truck_plate, trailer_plate, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			pair.ID, pair.TruckPlate, pair.TrailerPlate, pair.CreatedBy, pair.CreatedAt)
		if err != nil {
			log.Printf("❌ Error creating coupling pair: %v", err)
			utils.RespondError(w, http.StatusConflict, "Failed to create coupling pair (may already exist)")
			return
		}

		ctrl.AddCouplingPair(truck, trailer)

		log.Printf("✅ Coupled %s + %s", truck, trailer)
		utils.RespondJSON(w, http.StatusCreated, pair)
	}
}

// DeleteCoupling removes a declared pair and splits the merged vehicle back
// into its two units on the next rebuild
func DeleteCoupling(db *sqlx.DB, ctrl *mapstate.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pairID := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/coupling/%s", pairID)

		var pair models.CouplingPair
		if err := db.Get(&pair, "SELECT * FROM coupling_pairs WHERE id = $1", pairID); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Coupling pair not found")
			return
		}

		if _, err := db.Exec("DELETE FROM coupling_pairs WHERE id = $1", pairID); err != nil {
			log.Printf("❌ Error deleting coupling pair: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete coupling pair")
			return
		}

		ctrl.RemoveCouplingPair(pair.TruckPlate, pair.TrailerPlate)

		log.Printf("✅ Uncoupled %s + %s", pair.TruckPlate, pair.TrailerPlate)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
