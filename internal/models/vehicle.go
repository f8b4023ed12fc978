package models

import "time"

// Vehicle is a fleet unit in the master-data registry. Live telemetry lives
// in the positions table and the map controller, not here.
type Vehicle struct {
	ID            string  `json:"id" db:"id"`
	Plate         string  `json:"plate" db:"plate"` // stored normalized
	UnitID        *string `json:"unit_id,omitempty" db:"unit_id"`
	Nickname      *string `json:"nickname,omitempty" db:"nickname"`
	VehicleTypeID *string `json:"vehicle_type_id,omitempty" db:"vehicle_type_id"`
	Model         *string `json:"model,omitempty" db:"model"`
	CarrierID     *string `json:"carrier_id,omitempty" db:"carrier_id"`
	Refrigerated  bool    `json:"refrigerated" db:"refrigerated"`
	DoorSensor    bool    `json:"door_sensor" db:"door_sensor"`
	CreatedAt     int64   `json:"created_at" db:"created_at"`
	UpdatedAt     int64   `json:"updated_at" db:"updated_at"`
}

// Position is one stored position report
type Position struct {
	ID           int      `json:"id" db:"id"`
	Plate        string   `json:"plate" db:"plate"`
	UnitID       *string  `json:"unit_id,omitempty" db:"unit_id"`
	Latitude     float64  `json:"latitude" db:"latitude"`
	Longitude    float64  `json:"longitude" db:"longitude"`
	Heading      *float64 `json:"heading,omitempty" db:"heading"`   // Direction of travel (0-360 degrees)
	Speed        *float64 `json:"speed,omitempty" db:"speed"`       // Speed in km/h
	Address      *string  `json:"address,omitempty" db:"address"`
	Ignition     bool     `json:"ignition" db:"ignition"`
	DoorOpen     bool     `json:"door_open" db:"door_open"`
	TempChannel1 *float64 `json:"temp_channel_1,omitempty" db:"temp_channel_1"`
	TempChannel2 *float64 `json:"temp_channel_2,omitempty" db:"temp_channel_2"`
	FixTime      int64    `json:"fix_time" db:"fix_time"`     // Device-side timestamp
	CreatedAt    int64    `json:"created_at" db:"created_at"` // Server-side timestamp
}

// PositionResponse is a position with an ISO fix timestamp for the frontend
type PositionResponse struct {
	Position
	FixTimeISO string `json:"fix_time_iso"`
}

func (p *Position) ToResponse() PositionResponse {
	return PositionResponse{
		Position:   *p,
		FixTimeISO: time.Unix(p.FixTime, 0).UTC().Format(time.RFC3339),
	}
}

// CouplingPair declares a truck and trailer as physically joined
type CouplingPair struct {
	ID           string  `json:"id" db:"id"`
	TruckPlate   string  `json:"truck_plate" db:"truck_plate"`
	TrailerPlate string  `json:"trailer_plate" db:"trailer_plate"`
	CreatedBy    *string `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    int64   `json:"created_at" db:"created_at"`
}

// CreateCouplingRequest is the request body for POST /api/coupling
type CreateCouplingRequest struct {
	TruckPlate   string `json:"truck_plate"`
	TrailerPlate string `json:"trailer_plate"`
}
