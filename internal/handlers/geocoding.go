package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fleetboard-backend/internal/services"
	"fleetboard-backend/pkg/utils"
)

// ReverseGeocode converts coordinates to a street address
func ReverseGeocode(geocoding *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoding == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding is not configured")
			return
		}

		var req struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		address, err := geocoding.ReverseGeocode(req.Lat, req.Lng)
		if err != nil {
			log.Printf("⚠️  Reverse geocoding failed: %v", err)
			utils.RespondError(w, http.StatusBadGateway, "Reverse geocoding failed")
			return
		}

		utils.RespondJSON(w, http.StatusOK, address)
	}
}

// Geocode converts an address string to coordinates
func Geocode(geocoding *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoding == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding is not configured")
			return
		}

		var req struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, "address is required")
			return
		}

		address, err := geocoding.Geocode(req.Address)
		if err != nil {
			log.Printf("⚠️  Geocoding failed: %v", err)
			utils.RespondError(w, http.StatusBadGateway, "Geocoding failed")
			return
		}

		utils.RespondJSON(w, http.StatusOK, address)
	}
}
