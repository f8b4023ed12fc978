package models

// RouteTemplate is a reusable route blueprint: an ordered path plus named
// stops, optionally bound to a weekday/time-window schedule
type RouteTemplate struct {
	ID              string  `json:"id" db:"id"`
	Name            string  `json:"name" db:"name"`
	Description     *string `json:"description,omitempty" db:"description"`
	PathJSON        string  `json:"-" db:"path_json"`  // JSON array of {lat,lng}
	StopsJSON       string  `json:"-" db:"stops_json"` // JSON array of RouteStop
	ScheduleDays    *string `json:"schedule_days,omitempty" db:"schedule_days"` // CSV of weekday numbers, 0=Sunday
	ScheduleStart   *string `json:"schedule_start,omitempty" db:"schedule_start"` // "HH:MM"
	ScheduleEnd     *string `json:"schedule_end,omitempty" db:"schedule_end"`
	Color           *string `json:"color,omitempty" db:"color"`
	CreatedByUserID *string `json:"created_by_user_id,omitempty" db:"created_by_user_id"`
	CreatedAt       int64   `json:"created_at" db:"created_at"`
	UpdatedAt       int64   `json:"updated_at" db:"updated_at"`
}

// RouteStopDef is a stop definition as stored on a template or trip
type RouteStopDef struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"` // start, waypoint, end, pickup, delivery
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Completed bool    `json:"completed,omitempty"` // trips only
}

// Trip is a running or completed instance of a route template assigned to a
// vehicle
type Trip struct {
	ID           string  `json:"id" db:"id"`
	RouteID      string  `json:"route_id" db:"route_id"`
	VehiclePlate string  `json:"vehicle_plate" db:"vehicle_plate"`
	Status       string  `json:"status" db:"status"` // planned, active, completed, cancelled
	StopsJSON    string  `json:"-" db:"stops_json"`  // per-trip copy with completion flags
	StartedAt    *int64  `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *int64  `json:"completed_at,omitempty" db:"completed_at"`
	AssignedBy   *string `json:"assigned_by,omitempty" db:"assigned_by"`
	CreatedAt    int64   `json:"created_at" db:"created_at"`
	UpdatedAt    int64   `json:"updated_at" db:"updated_at"`
}

// RouteTemplateResponse carries the decoded path and stops
type RouteTemplateResponse struct {
	RouteTemplate
	Path  []RingPoint    `json:"path"`
	Stops []RouteStopDef `json:"stops"`
}

// CreateRouteRequest is the request body for POST /api/routes
type CreateRouteRequest struct {
	Name          string         `json:"name"`
	Description   *string        `json:"description,omitempty"`
	Path          []RingPoint    `json:"path"`
	Stops         []RouteStopDef `json:"stops,omitempty"`
	ScheduleDays  *string        `json:"schedule_days,omitempty"`
	ScheduleStart *string        `json:"schedule_start,omitempty"`
	ScheduleEnd   *string        `json:"schedule_end,omitempty"`
	Color         *string        `json:"color,omitempty"`
}

// UpdateRouteRequest is the request body for PATCH /api/routes/:id
type UpdateRouteRequest struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Path          []RingPoint    `json:"path,omitempty"`
	Stops         []RouteStopDef `json:"stops,omitempty"`
	ScheduleDays  *string        `json:"schedule_days,omitempty"`
	ScheduleStart *string        `json:"schedule_start,omitempty"`
	ScheduleEnd   *string        `json:"schedule_end,omitempty"`
	Color         *string        `json:"color,omitempty"`
}

// CreateTripRequest is the request body for POST /api/trips
type CreateTripRequest struct {
	RouteID      string `json:"route_id"`
	VehiclePlate string `json:"vehicle_plate"`
}
