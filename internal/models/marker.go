package models

// Marker is a stored custom point of interest shown on the map
type Marker struct {
	ID        string  `json:"id" db:"id"`
	Label     string  `json:"label" db:"label"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	IconName  *string `json:"icon_name,omitempty" db:"icon_name"` // "warehouse", "client", "depot", "flag"
	Color     *string `json:"color,omitempty" db:"color"`
	CreatedBy *string `json:"created_by,omitempty" db:"created_by"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

// CreateMarkerRequest is the request body for POST /api/markers
type CreateMarkerRequest struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IconName  *string `json:"icon_name,omitempty"`
	Color     *string `json:"color,omitempty"`
}
