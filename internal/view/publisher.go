// Package view binds the map state controller to dashboard clients: it
// translates drawable state into renderer-neutral overlay projections and
// pushes them over the websocket hub.
package view

import (
	"log"
	"sync"
	"time"

	"fleetboard-backend/internal/mapstate"
)

// Broadcaster is the hub-side contract the publisher pushes through
type Broadcaster interface {
	BroadcastToRole(role string, data interface{})
	BroadcastToUser(userID string, data interface{})
}

// VehicleOverlay is one vehicle marker as the map SDK consumes it
type VehicleOverlay struct {
	ID       string                   `json:"id"`
	Position mapstate.LatLng          `json:"position"`
	Icon     *mapstate.IconDescriptor `json:"icon,omitempty"`
	Style    mapstate.Style           `json:"style"`
	Plate    string                   `json:"plate"`
	Kind     mapstate.VehicleKind     `json:"kind"`
	Moving   bool                     `json:"moving"`
	Selected bool                     `json:"selected,omitempty"`
	Address  string                   `json:"address,omitempty"`
	FixTime  time.Time                `json:"fix_time"`
}

// ShapeOverlay is a geofence as an SDK shape config
type ShapeOverlay struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Shape        mapstate.GeofenceShape `json:"shape"`
	Center       mapstate.LatLng        `json:"center"`
	RadiusMeters float64                `json:"radius_meters,omitempty"`
	Ring         []mapstate.LatLng      `json:"ring,omitempty"`
	Style        mapstate.Style         `json:"style"`
}

// PolylineOverlay is a route as an SDK polyline config
type PolylineOverlay struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Path  []mapstate.LatLng    `json:"path"`
	Stops []mapstate.RouteStop `json:"stops,omitempty"`
	Style mapstate.Style       `json:"style"`
}

// MarkerOverlay is a custom point-of-interest marker
type MarkerOverlay struct {
	ID       string                   `json:"id"`
	Label    string                   `json:"label,omitempty"`
	Position mapstate.LatLng          `json:"position"`
	Icon     *mapstate.IconDescriptor `json:"icon,omitempty"`
}

// ClusterOverlay is a derived cluster badge
type ClusterOverlay struct {
	ID       string                   `json:"id"`
	Position mapstate.LatLng          `json:"position"`
	Count    int                      `json:"count"`
	Icon     *mapstate.IconDescriptor `json:"icon,omitempty"`
}

// Frame is one full overlay projection pushed to dashboard clients
type Frame struct {
	Type           string             `json:"type"` // always "map_frame"
	Event          mapstate.EventKind `json:"event"`
	RenderVersion  uint64             `json:"render_version"`
	ClusterVersion uint64             `json:"cluster_version"`
	View           mapstate.ViewState `json:"view"`
	Vehicles       []VehicleOverlay   `json:"vehicles"`
	Geofences      []ShapeOverlay     `json:"geofences"`
	Routes         []PolylineOverlay  `json:"routes"`
	Markers        []MarkerOverlay    `json:"markers"`
	Clusters       []ClusterOverlay   `json:"clusters,omitempty"`
	RemovedIDs     []string           `json:"removed_ids,omitempty"`
	Center         *mapstate.LatLng   `json:"center,omitempty"`
	FitBounds      *mapstate.Bounds   `json:"fit_bounds,omitempty"`
}

// Publisher subscribes to controller events and republishes the overlay
// projection to every connected dashboard. A fixed-interval poll of the
// render version backstops event-driven sync.
type Publisher struct {
	controller *mapstate.Controller
	hub        Broadcaster
	ctx        mapstate.RenderContext

	mu            sync.Mutex
	knownIDs      map[string]bool
	lastPublished uint64
	detach        func()
	stopPoll      chan struct{}
}

// NewPublisher wires a publisher to a controller and hub. Call Start to
// begin publishing.
func NewPublisher(controller *mapstate.Controller, hub Broadcaster) *Publisher {
	return &Publisher{
		controller: controller,
		hub:        hub,
		ctx: mapstate.RenderContext{
			Ready:       true,
			ShowLabels:  true,
			ShowHeading: true,
		},
		knownIDs: make(map[string]bool),
		stopPoll: make(chan struct{}),
	}
}

// Start subscribes to the controller and launches the polling safety net
func (p *Publisher) Start(pollInterval time.Duration) {
	p.detach = p.controller.OnUpdate(func(ev mapstate.Event) {
		p.publish(ev)
	})

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.pollOnce()
			case <-p.stopPoll:
				return
			}
		}
	}()

	log.Println("✅ Map overlay publisher started")
}

// Stop detaches from the controller and stops the poll loop
func (p *Publisher) Stop() {
	if p.detach != nil {
		p.detach()
	}
	close(p.stopPoll)
}

// pollOnce republishes if an update slipped past the event channel
func (p *Publisher) pollOnce() {
	version := p.controller.RenderVersion()
	p.mu.Lock()
	stale := version != p.lastPublished
	p.mu.Unlock()
	if stale {
		log.Printf("🔄 Poll detected missed render version %d, republishing", version)
		p.publish(mapstate.Event{Kind: mapstate.EventVehicles, Snapshot: p.controller.Snapshot()})
	}
}

func (p *Publisher) publish(ev mapstate.Event) {
	frame := p.buildFrame(ev, true)
	p.hub.BroadcastToRole("operator", frame)
	p.hub.BroadcastToRole("admin", frame)
}

// SyncUser pushes the current overlay projection to one user, so a freshly
// connected dashboard renders without waiting for the next fleet update.
// The removal ledger is left alone: the sync is a side channel, not a pass.
func (p *Publisher) SyncUser(userID string) {
	ev := mapstate.Event{Kind: mapstate.EventRestore, Snapshot: p.controller.Snapshot()}
	p.hub.BroadcastToUser(userID, p.buildFrame(ev, false))
}

// buildFrame re-derives the full overlay projection from current controller
// state. When settle is true it also settles the overlay-handle ledger: ids
// present last pass but absent now land in RemovedIDs so clients tear their
// overlays down.
func (p *Publisher) buildFrame(ev mapstate.Event, settle bool) Frame {
	snap := ev.Snapshot

	frame := Frame{
		Type:           "map_frame",
		Event:          ev.Kind,
		RenderVersion:  snap.RenderVersion,
		ClusterVersion: snap.ClusterVersion,
		View:           snap.View,
		Vehicles:       make([]VehicleOverlay, 0, len(snap.Vehicles)),
		Geofences:      make([]ShapeOverlay, 0, len(snap.Geofences)),
		Routes:         make([]PolylineOverlay, 0, len(snap.Routes)),
		Markers:        make([]MarkerOverlay, 0, len(snap.Markers)),
	}

	ctx := p.ctx
	ctx.TileProvider = snap.View.TileProvider

	current := make(map[string]bool)

	for _, v := range p.controller.FilteredVehicles() {
		current[v.ID()] = true
		frame.Vehicles = append(frame.Vehicles, VehicleOverlay{
			ID:       v.ID(),
			Position: v.Position(),
			Icon:     v.Icon(ctx),
			Style:    v.Style(),
			Plate:    v.Plate,
			Kind:     v.Kind,
			Moving:   v.Moving,
			Selected: v.Selected,
			Address:  v.Address,
			FixTime:  v.FixTime,
		})
	}

	for _, g := range snap.Geofences {
		current[g.ID()] = true
		center := g.Centroid()
		frame.Geofences = append(frame.Geofences, ShapeOverlay{
			ID:           g.ID(),
			Name:         g.Name,
			Shape:        g.Shape,
			Center:       center,
			RadiusMeters: g.RadiusMeters,
			Ring:         g.Ring,
			Style:        g.Style(),
		})
	}

	for _, r := range snap.Routes {
		current[r.ID()] = true
		frame.Routes = append(frame.Routes, PolylineOverlay{
			ID:    r.ID(),
			Name:  r.Name,
			Path:  r.Path,
			Stops: r.Stops,
			Style: r.Style(),
		})
	}

	for _, m := range snap.Markers {
		current[m.ID()] = true
		frame.Markers = append(frame.Markers, MarkerOverlay{
			ID:       m.ID(),
			Label:    m.Label,
			Position: m.Position(),
			Icon:     m.Icon(ctx),
		})
	}

	if snap.View.Clustering {
		for _, c := range p.controller.Clusters() {
			frame.Clusters = append(frame.Clusters, ClusterOverlay{
				ID:       c.ID(),
				Position: c.Position(),
				Count:    c.Count,
				Icon:     c.Icon(ctx),
			})
		}
	}

	switch ev.Kind {
	case mapstate.EventView:
		if center, ok := ev.Payload.(mapstate.LatLng); ok {
			frame.Center = &center
		}
	case mapstate.EventFitBounds:
		if b, ok := ev.Payload.(mapstate.Bounds); ok {
			frame.FitBounds = &b
		}
	}

	if settle {
		p.mu.Lock()
		for id := range p.knownIDs {
			if !current[id] {
				frame.RemovedIDs = append(frame.RemovedIDs, id)
			}
		}
		p.knownIDs = current
		p.lastPublished = snap.RenderVersion
		p.mu.Unlock()
	}

	return frame
}
