package models

import "time"

// Alarm is a stored alert raised by the geofence watcher or sensor checks
type Alarm struct {
	ID             string   `json:"id" db:"id"`
	Kind           string   `json:"kind" db:"kind"` // geofence_enter, geofence_exit, door_open, temperature
	Plate          string   `json:"plate" db:"plate"`
	GeofenceID     *string  `json:"geofence_id,omitempty" db:"geofence_id"`
	GeofenceName   *string  `json:"geofence_name,omitempty" db:"geofence_name"`
	Latitude       *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64 `json:"longitude,omitempty" db:"longitude"`
	Detail         *string  `json:"detail,omitempty" db:"detail"`
	RaisedAt       int64    `json:"raised_at" db:"raised_at"`
	AcknowledgedBy *string  `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *int64   `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
}

// AlarmResponse adds ISO timestamps for the frontend
type AlarmResponse struct {
	Alarm
	RaisedAtISO       string  `json:"raised_at_iso"`
	AcknowledgedAtISO *string `json:"acknowledged_at_iso,omitempty"`
}

func (a *Alarm) ToResponse() AlarmResponse {
	resp := AlarmResponse{
		Alarm:       *a,
		RaisedAtISO: time.Unix(a.RaisedAt, 0).UTC().Format(time.RFC3339),
	}
	if a.AcknowledgedAt != nil {
		iso := time.Unix(*a.AcknowledgedAt, 0).UTC().Format(time.RFC3339)
		resp.AcknowledgedAtISO = &iso
	}
	return resp
}

// Preference is one per-user display preference entry (tile provider, column
// visibility, sidebar state), replacing the browser's local storage
type Preference struct {
	UserID    string `json:"user_id" db:"user_id"`
	Key       string `json:"key" db:"key"`
	Value     string `json:"value" db:"value"` // opaque JSON
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}
