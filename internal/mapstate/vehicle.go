package mapstate

import (
	"strings"
	"time"
)

// A vehicle is considered moving above this speed (km/h)
const movingSpeedThreshold = 3.0

// VehicleKind classifies a tracked unit
type VehicleKind string

const (
	KindTruck   VehicleKind = "truck"
	KindTrailer VehicleKind = "trailer"
	KindCoupled VehicleKind = "coupled"
)

// PositionRecord is the canonical position report shape the controller
// ingests. Producers (the telemetry adapter, the ingest endpoint) are
// responsible for resolving the upstream provider's field-name variants into
// this one shape before it reaches the controller.
type PositionRecord struct {
	Plate        string    `json:"plate"`
	UnitID       string    `json:"unit_id,omitempty"` // tracker unit id, dedup key when plate is empty
	Nickname     string    `json:"nickname,omitempty"`
	VehicleType  string    `json:"vehicle_type,omitempty"` // free text from the provider
	Model        string    `json:"model,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Heading      float64   `json:"heading,omitempty"` // degrees, 0-360
	Speed        float64   `json:"speed,omitempty"`   // km/h
	Address      string    `json:"address,omitempty"`
	FixTime      time.Time `json:"fix_time"`
	Ignition     bool      `json:"ignition,omitempty"`
	Refrigerated bool      `json:"refrigerated,omitempty"`
	DoorSensor   bool      `json:"door_sensor,omitempty"`
	DoorOpen     bool      `json:"door_open,omitempty"`
	TempChannel1 *float64  `json:"temp_channel_1,omitempty"`
	TempChannel2 *float64  `json:"temp_channel_2,omitempty"`
}

// NormalizePlate uppercases a plate and strips trailing trailer-marker
// asterisks. Normalizing an already-normalized plate is a no-op.
func NormalizePlate(plate string) string {
	p := strings.ToUpper(strings.TrimSpace(plate))
	for strings.HasSuffix(p, "*") {
		p = strings.TrimSpace(strings.TrimSuffix(p, "*"))
	}
	return p
}

// dedupKey is the identity used when collapsing duplicate position reports
func (r PositionRecord) dedupKey() string {
	if plate := NormalizePlate(r.Plate); plate != "" {
		return plate
	}
	return "unit:" + r.UnitID
}

// inferVehicleKind classifies a unit from the provider's free-text type and
// model fields plus the raw plate (a trailing asterisk marks a trailer)
func inferVehicleKind(rawPlate, vehicleType, model string) VehicleKind {
	if strings.HasSuffix(strings.TrimSpace(rawPlate), "*") {
		return KindTrailer
	}
	hint := strings.ToLower(vehicleType + " " + model)
	for _, marker := range []string{"rimorchio", "trailer", "semirimorchio", "semi-trailer"} {
		if strings.Contains(hint, marker) {
			return KindTrailer
		}
	}
	return KindTruck
}

// VehicleDrawable is one tracked unit on the map. Instances are rebuilt
// wholesale every ingestion cycle and never mutated in place.
type VehicleDrawable struct {
	base
	Plate        string      `json:"plate"` // normalized
	Nickname     string      `json:"nickname,omitempty"`
	Kind         VehicleKind `json:"kind"`
	Moving       bool        `json:"moving"`
	Selected     bool        `json:"selected,omitempty"`
	Coupled      bool        `json:"coupled,omitempty"`
	TruckPlate   string      `json:"truck_plate,omitempty"`   // set when coupled
	TrailerPlate string      `json:"trailer_plate,omitempty"` // set when coupled
	Heading      float64     `json:"heading,omitempty"`
	Speed        float64     `json:"speed"`
	Address      string      `json:"address,omitempty"`
	FixTime      time.Time   `json:"fix_time"`
	Ignition     bool        `json:"ignition,omitempty"`
	Refrigerated bool        `json:"refrigerated,omitempty"`
	DoorSensor   bool        `json:"door_sensor,omitempty"`
	DoorOpen     bool        `json:"door_open,omitempty"`
	TempChannel1 *float64    `json:"temp_channel_1,omitempty"`
	TempChannel2 *float64    `json:"temp_channel_2,omitempty"`
}

// NewVehicleDrawable builds a drawable from a canonical position record.
// Records without resolvable coordinates yield nil: vehicles are rejected at
// construction rather than stored with sentinel positions.
func NewVehicleDrawable(rec PositionRecord) *VehicleDrawable {
	pos := LatLng{Lat: rec.Latitude, Lng: rec.Longitude}
	if !pos.Valid() {
		return nil
	}

	plate := NormalizePlate(rec.Plate)
	id := plate
	if id == "" {
		id = "unit:" + rec.UnitID
	}

	return &VehicleDrawable{
		base: base{
			Identifier: id,
			Pos:        pos,
			ZOrder:     10,
		},
		Plate:        plate,
		Nickname:     rec.Nickname,
		Kind:         inferVehicleKind(rec.Plate, rec.VehicleType, rec.Model),
		Moving:       rec.Speed > movingSpeedThreshold,
		Heading:      rec.Heading,
		Speed:        rec.Speed,
		Address:      rec.Address,
		FixTime:      rec.FixTime,
		Ignition:     rec.Ignition,
		Refrigerated: rec.Refrigerated,
		DoorSensor:   rec.DoorSensor,
		DoorOpen:     rec.DoorOpen,
		TempChannel1: rec.TempChannel1,
		TempChannel2: rec.TempChannel2,
	}
}

func (v *VehicleDrawable) Type() DrawableType { return TypeVehicle }

func (v *VehicleDrawable) Style() Style {
	z := v.ZOrder
	if v.Selected {
		z += 100
	}
	return Style{ZIndex: z}
}

// HasTemperature reports whether the unit carries at least one temperature
// channel
func (v *VehicleDrawable) HasTemperature() bool {
	return v.TempChannel1 != nil || v.TempChannel2 != nil
}

// Icon synthesizes the vehicle glyph for the current render context
func (v *VehicleDrawable) Icon(ctx RenderContext) *IconDescriptor {
	if !ctx.Ready {
		return nil
	}
	return buildVehicleIcon(v, ctx)
}
