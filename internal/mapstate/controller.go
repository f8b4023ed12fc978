package mapstate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CouplingPair declares a truck and a trailer as physically joined. Plates
// are stored normalized.
type CouplingPair struct {
	TruckPlate   string `json:"truck_plate"`
	TrailerPlate string `json:"trailer_plate"`
}

// FilterOptions are the non-destructive view filters applied by
// FilteredVehicles
type FilterOptions struct {
	ShowMoving   bool   `json:"show_moving"`
	ShowStopped  bool   `json:"show_stopped"`
	OnlyWithTemp bool   `json:"only_with_temp"`
	SearchTerm   string `json:"search_term,omitempty"`
}

// DefaultFilters shows everything
func DefaultFilters() FilterOptions {
	return FilterOptions{ShowMoving: true, ShowStopped: true}
}

// ViewState is the restorable slice of display state (persisted per user by
// the preference store)
type ViewState struct {
	Filters         FilterOptions `json:"filters"`
	HiddenPlates    []string      `json:"hidden_plates,omitempty"`
	CouplingEnabled bool          `json:"coupling_enabled"`
	Clustering      bool          `json:"clustering"`
	Traffic         bool          `json:"traffic"`
	TileProvider    string        `json:"tile_provider,omitempty"`
	SelectedID      string        `json:"selected_id,omitempty"`
	FollowedID      string        `json:"followed_id,omitempty"`
}

// Snapshot is the full-state view attached to every update event
type Snapshot struct {
	Vehicles       []*VehicleDrawable  `json:"vehicles"`
	Geofences      []*GeofenceDrawable `json:"geofences"`
	Markers        []*MarkerDrawable   `json:"markers"`
	Routes         []*RouteDrawable    `json:"routes"`
	View           ViewState           `json:"view"`
	RenderVersion  uint64              `json:"render_version"`
	ClusterVersion uint64              `json:"cluster_version"`
}

// Controller owns the drawable collections and applies every business
// transform between raw position feeds and the rendered map: dedup, truck and
// trailer coupling, hidden plates, view filters and cluster bucketing.
//
// All mutation happens under one lock, so state transitions form a strict
// total order matching call order. Listeners are invoked after the lock is
// released.
type Controller struct {
	mu sync.RWMutex

	vehicles      map[string]*VehicleDrawable
	vehicleOrder  []string
	geofences     map[string]*GeofenceDrawable
	geofenceOrder []string
	markers       map[string]*MarkerDrawable
	markerOrder   []string
	routes        map[string]*RouteDrawable
	routeOrder    []string

	// last ingested raw arrays, kept so coupling/filter/cluster toggles can
	// replay the full transform without a new fetch
	rawVehicles  []PositionRecord
	rawGeofences []GeofenceRecord

	hiddenPlates    map[string]bool
	couplingPairs   []CouplingPair
	couplingEnabled bool
	filters         FilterOptions

	clustering   bool
	traffic      bool
	tileProvider string

	selectedID string
	followedID string

	renderVersion  uint64
	clusterVersion uint64

	updateListeners    *listenerSet
	selectionListeners *listenerSet
}

// NewController returns a controller with empty collections and default
// display options
func NewController() *Controller {
	return &Controller{
		vehicles:           make(map[string]*VehicleDrawable),
		geofences:          make(map[string]*GeofenceDrawable),
		markers:            make(map[string]*MarkerDrawable),
		routes:             make(map[string]*RouteDrawable),
		hiddenPlates:       make(map[string]bool),
		filters:            DefaultFilters(),
		tileProvider:       "osm",
		updateListeners:    newListenerSet(),
		selectionListeners: newListenerSet(),
	}
}

// OnUpdate subscribes to tagged update events. The returned detach closure
// is safe to call more than once.
func (c *Controller) OnUpdate(fn UpdateListener) func() {
	return c.updateListeners.add(fn)
}

// OnSelection subscribes to the dedicated selection channel
func (c *Controller) OnSelection(fn SelectionListener) func() {
	return c.selectionListeners.add(fn)
}

// RenderVersion returns the monotonic counter bumped on every
// collection-changing mutation
func (c *Controller) RenderVersion() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderVersion
}

// ClusterVersion returns the counter the view layer uses to force remount of
// the cluster renderer
func (c *Controller) ClusterVersion() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clusterVersion
}

// ── ingestion ────────────────────────────────────────────────────────────

// UpdateVehicles ingests a raw position-report list: cache, dedup by
// normalized plate (latest fix wins, ties keep the later record), apply
// coupling, drop hidden plates, construct drawables and replace the whole
// vehicle collection atomically. An empty input clears the collection and
// still emits.
func (c *Controller) UpdateVehicles(records []PositionRecord) {
	c.mu.Lock()
	c.rawVehicles = append([]PositionRecord(nil), records...)
	c.rebuildVehiclesLocked()
	c.renderVersion++
	ev := c.eventLocked(EventVehicles, len(c.vehicleOrder))
	center, follow := c.followCenterLocked()
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
	if follow {
		c.emitView(center)
	}
}

// rebuildVehiclesLocked replays the ingestion pipeline over the cached raw
// list. Selection state survives a rebuild as long as the id is still there.
func (c *Controller) rebuildVehiclesLocked() {
	deduped := dedupRecords(c.rawVehicles)

	if c.couplingEnabled {
		deduped = applyCoupling(deduped, c.couplingPairs)
	}

	vehicles := make(map[string]*VehicleDrawable, len(deduped))
	order := make([]string, 0, len(deduped))
	for _, rec := range deduped {
		if c.hiddenPlates[NormalizePlate(rec.Plate)] {
			continue
		}
		v := newDrawableFromMerged(rec)
		if v == nil {
			continue
		}
		if v.ID() == c.selectedID {
			v.Selected = true
		}
		vehicles[v.ID()] = v
		order = append(order, v.ID())
	}

	// release overlay handles for drawables that did not survive the rebuild
	for id, old := range c.vehicles {
		if _, ok := vehicles[id]; !ok {
			old.ReleaseHandle()
		}
	}

	c.vehicles = vehicles
	c.vehicleOrder = order
}

// mergedRecord carries a position record through the coupling transform
type mergedRecord struct {
	PositionRecord
	coupled      bool
	truckPlate   string
	trailerPlate string
}

// dedupRecords collapses duplicate reports per normalized plate (or tracker
// unit id when the plate is empty). The report with the latest fix timestamp
// wins; on equal timestamps the later one encountered wins.
func dedupRecords(records []PositionRecord) []mergedRecord {
	byKey := make(map[string]PositionRecord, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		key := rec.dedupKey()
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = rec
			order = append(order, key)
			continue
		}
		if !rec.FixTime.Before(existing.FixTime) {
			byKey[key] = rec
		}
	}

	out := make([]mergedRecord, 0, len(order))
	for _, key := range order {
		out = append(out, mergedRecord{PositionRecord: byKey[key]})
	}
	return out
}

// applyCoupling merges each configured truck/trailer pair whose both plates
// are present into a single synthetic record. The more recently updated side
// contributes the telemetry; both original plates are recorded and the two
// originals leave the independent list.
func applyCoupling(records []mergedRecord, pairs []CouplingPair) []mergedRecord {
	if len(pairs) == 0 {
		return records
	}

	index := make(map[string]int, len(records))
	for i, rec := range records {
		index[rec.dedupKey()] = i
	}

	consumed := make(map[int]bool)
	coupled := make([]mergedRecord, 0, len(pairs))

	for _, pair := range pairs {
		truck := NormalizePlate(pair.TruckPlate)
		trailer := NormalizePlate(pair.TrailerPlate)
		ti, tok := index[truck]
		ri, rok := index[trailer]
		if !tok || !rok || consumed[ti] || consumed[ri] {
			continue
		}

		primary := records[ti]
		if records[ri].FixTime.After(primary.FixTime) {
			primary = records[ri]
		}

		merged := primary
		merged.Plate = truck
		merged.coupled = true
		merged.truckPlate = truck
		merged.trailerPlate = trailer
		coupled = append(coupled, merged)
		consumed[ti] = true
		consumed[ri] = true
	}

	out := make([]mergedRecord, 0, len(records))
	for i, rec := range records {
		if !consumed[i] {
			out = append(out, rec)
		}
	}
	return append(out, coupled...)
}

func newDrawableFromMerged(rec mergedRecord) *VehicleDrawable {
	v := NewVehicleDrawable(rec.PositionRecord)
	if v == nil {
		return nil
	}
	if rec.coupled {
		v.Kind = KindCoupled
		v.Coupled = true
		v.TruckPlate = rec.truckPlate
		v.TrailerPlate = rec.trailerPlate
	}
	return v
}

// UpdateGeofences replaces the geofence collection from raw records
func (c *Controller) UpdateGeofences(records []GeofenceRecord) {
	c.mu.Lock()
	c.rawGeofences = append([]GeofenceRecord(nil), records...)

	geofences := make(map[string]*GeofenceDrawable, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		g := NewGeofenceDrawable(rec)
		if g == nil {
			continue
		}
		geofences[g.ID()] = g
		order = append(order, g.ID())
	}
	for id, old := range c.geofences {
		if _, ok := geofences[id]; !ok {
			old.ReleaseHandle()
		}
	}
	c.geofences = geofences
	c.geofenceOrder = order
	c.renderVersion++
	ev := c.eventLocked(EventGeofences, len(order))
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// SetMarkers replaces the custom marker collection
func (c *Controller) SetMarkers(markers []*MarkerDrawable) {
	c.mu.Lock()
	next := make(map[string]*MarkerDrawable, len(markers))
	order := make([]string, 0, len(markers))
	for _, m := range markers {
		if m == nil {
			continue
		}
		next[m.ID()] = m
		order = append(order, m.ID())
	}
	for id, old := range c.markers {
		if _, ok := next[id]; !ok {
			old.ReleaseHandle()
		}
	}
	c.markers = next
	c.markerOrder = order
	c.renderVersion++
	ev := c.eventLocked(EventMarkers, len(order))
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// SetRoutes replaces the route collection
func (c *Controller) SetRoutes(routes []*RouteDrawable) {
	c.mu.Lock()
	next := make(map[string]*RouteDrawable, len(routes))
	order := make([]string, 0, len(routes))
	for _, r := range routes {
		if r == nil {
			continue
		}
		next[r.ID()] = r
		order = append(order, r.ID())
	}
	for id, old := range c.routes {
		if _, ok := next[id]; !ok {
			old.ReleaseHandle()
		}
	}
	c.routes = next
	c.routeOrder = order
	c.renderVersion++
	ev := c.eventLocked(EventRoutes, len(order))
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// HighlightRoute toggles a route's highlight emphasis
func (c *Controller) HighlightRoute(id string, highlighted bool) {
	c.mu.Lock()
	r, ok := c.routes[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	r.Highlighted = highlighted
	c.renderVersion++
	ev := c.eventLocked(EventRoutes, id)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// ── accessors ────────────────────────────────────────────────────────────

// Vehicles returns the current vehicle collection in ingestion order
func (c *Controller) Vehicles() []*VehicleDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*VehicleDrawable, 0, len(c.vehicleOrder))
	for _, id := range c.vehicleOrder {
		out = append(out, c.vehicles[id])
	}
	return out
}

// Vehicle looks up one vehicle by id (normalized plate or unit key)
func (c *Controller) Vehicle(id string) (*VehicleDrawable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vehicleLocked(id)
}

// vehicleLocked resolves an id as a normalized plate first, then as a raw
// synthetic unit key. Callers hold c.mu.
func (c *Controller) vehicleLocked(id string) (*VehicleDrawable, bool) {
	v, ok := c.vehicles[NormalizePlate(id)]
	if !ok {
		v, ok = c.vehicles[id]
	}
	return v, ok
}

// canonicalVehicleID maps a caller-supplied id onto the collection key
// space: unit keys pass through, anything else is treated as a plate
func canonicalVehicleID(id string) string {
	if strings.HasPrefix(id, "unit:") {
		return id
	}
	return NormalizePlate(id)
}

// Geofences returns the current geofence collection
func (c *Controller) Geofences() []*GeofenceDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*GeofenceDrawable, 0, len(c.geofenceOrder))
	for _, id := range c.geofenceOrder {
		out = append(out, c.geofences[id])
	}
	return out
}

// Markers returns the current custom marker collection
func (c *Controller) Markers() []*MarkerDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*MarkerDrawable, 0, len(c.markerOrder))
	for _, id := range c.markerOrder {
		out = append(out, c.markers[id])
	}
	return out
}

// Routes returns the current route collection
func (c *Controller) Routes() []*RouteDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*RouteDrawable, 0, len(c.routeOrder))
	for _, id := range c.routeOrder {
		out = append(out, c.routes[id])
	}
	return out
}

// FilteredVehicles applies, in order, hidden-plate exclusion, the
// moving/stopped flags, the temperature-sensor flag and the substring search
// over plate, nickname and address. A pure read: stored drawables are never
// mutated.
func (c *Controller) FilteredVehicles() []*VehicleDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filteredVehiclesLocked()
}

func (c *Controller) filteredVehiclesLocked() []*VehicleDrawable {
	term := strings.ToLower(strings.TrimSpace(c.filters.SearchTerm))
	out := make([]*VehicleDrawable, 0, len(c.vehicleOrder))

	for _, id := range c.vehicleOrder {
		v := c.vehicles[id]
		if c.hiddenPlates[v.Plate] {
			continue
		}
		if v.Moving && !c.filters.ShowMoving {
			continue
		}
		if !v.Moving && !c.filters.ShowStopped {
			continue
		}
		if c.filters.OnlyWithTemp && !v.HasTemperature() {
			continue
		}
		if term != "" {
			haystack := strings.ToLower(v.Plate + " " + v.Nickname + " " + v.Address)
			if !strings.Contains(haystack, term) {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

// Clusters buckets the currently filtered vehicles into display-only
// aggregates over a fixed geographic grid. Recomputed on every call; nothing
// is stored. Cells holding a single vehicle produce no cluster.
func (c *Controller) Clusters() []*ClusterDrawable {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.clustering {
		return nil
	}

	const cellDegrees = 0.05
	cells := make(map[string][]*VehicleDrawable)
	for _, v := range c.filteredVehiclesLocked() {
		key := fmt.Sprintf("%d:%d",
			int(v.Pos.Lat/cellDegrees), int(v.Pos.Lng/cellDegrees))
		cells[key] = append(cells[key], v)
	}

	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*ClusterDrawable, 0, len(keys))
	for _, key := range keys {
		group := cells[key]
		if len(group) < 2 {
			continue
		}
		points := make([]LatLng, len(group))
		for i, v := range group {
			points[i] = v.Pos
		}
		out = append(out, newClusterDrawable("cluster:"+key, Centroid(points), len(group)))
	}
	return out
}

// ── hidden plates ────────────────────────────────────────────────────────

// HidePlate removes a plate from every projection until ShowPlate is called
func (c *Controller) HidePlate(plate string) {
	c.mu.Lock()
	c.hiddenPlates[NormalizePlate(plate)] = true
	c.rebuildVehiclesLocked()
	c.renderVersion++
	ev := c.eventLocked(EventFilters, c.hiddenPlatesLocked())
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// ShowPlate re-admits a hidden plate. The next filter pass restores it from
// the cached raw data; no new fetch is needed.
func (c *Controller) ShowPlate(plate string) {
	c.mu.Lock()
	delete(c.hiddenPlates, NormalizePlate(plate))
	c.rebuildVehiclesLocked()
	c.renderVersion++
	ev := c.eventLocked(EventFilters, c.hiddenPlatesLocked())
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// HiddenPlates returns the hidden set, sorted
func (c *Controller) HiddenPlates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hiddenPlatesLocked()
}

func (c *Controller) hiddenPlatesLocked() []string {
	out := make([]string, 0, len(c.hiddenPlates))
	for p := range c.hiddenPlates {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ── filters and display options ──────────────────────────────────────────

// SetFilters replaces the view filter options
func (c *Controller) SetFilters(f FilterOptions) {
	c.mu.Lock()
	c.filters = f
	ev := c.eventLocked(EventFilters, f)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// Filters returns the current filter options
func (c *Controller) Filters() FilterOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filters
}

// SetClustering toggles marker clustering. The vehicle set is rebuilt from
// the cached raw data and the cluster version is bumped so the view layer
// remounts the cluster renderer, which cannot be reconfigured in place.
func (c *Controller) SetClustering(enabled bool) {
	c.mu.Lock()
	if c.clustering == enabled {
		c.mu.Unlock()
		return
	}
	c.clustering = enabled
	c.rebuildVehiclesLocked()
	c.renderVersion++
	c.clusterVersion++
	ev := c.eventLocked(EventClustering, enabled)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// SetTraffic toggles the traffic layer
func (c *Controller) SetTraffic(enabled bool) {
	c.mu.Lock()
	if c.traffic == enabled {
		c.mu.Unlock()
		return
	}
	c.traffic = enabled
	c.rebuildVehiclesLocked()
	c.renderVersion++
	ev := c.eventLocked(EventTraffic, enabled)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// SetTileProvider switches the base map provider. Forces a cluster remount
// like SetClustering does, since provider swaps rebuild the whole map view.
func (c *Controller) SetTileProvider(provider string) {
	c.mu.Lock()
	if c.tileProvider == provider {
		c.mu.Unlock()
		return
	}
	c.tileProvider = provider
	c.rebuildVehiclesLocked()
	c.renderVersion++
	c.clusterVersion++
	ev := c.eventLocked(EventProvider, provider)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// ── coupling management ──────────────────────────────────────────────────

// SetCouplingEnabled switches the coupling transform on or off and replays
// ingestion over the cached raw data
func (c *Controller) SetCouplingEnabled(enabled bool) {
	c.mu.Lock()
	if c.couplingEnabled == enabled {
		c.mu.Unlock()
		return
	}
	c.couplingEnabled = enabled
	c.rebuildVehiclesLocked()
	c.renderVersion++
	ev := c.eventLocked(EventVehicles, len(c.vehicleOrder))
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// AddCouplingPair declares a truck/trailer pair. If raw vehicle data is
// already cached the effect is visible immediately, without waiting for the
// next feed refresh.
func (c *Controller) AddCouplingPair(truckPlate, trailerPlate string) {
	pair := CouplingPair{
		TruckPlate:   NormalizePlate(truckPlate),
		TrailerPlate: NormalizePlate(trailerPlate),
	}

	c.mu.Lock()
	for _, existing := range c.couplingPairs {
		if existing == pair {
			c.mu.Unlock()
			return
		}
	}
	c.couplingPairs = append(c.couplingPairs, pair)
	var ev Event
	emit := false
	if len(c.rawVehicles) > 0 {
		c.rebuildVehiclesLocked()
		c.renderVersion++
		ev = c.eventLocked(EventVehicles, len(c.vehicleOrder))
		emit = true
	}
	c.mu.Unlock()

	if emit {
		dispatchEvent(c.updateListeners, ev)
	}
}

// RemoveCouplingPair removes a declared pair; both units reappear as
// independent entries on the next rebuild
func (c *Controller) RemoveCouplingPair(truckPlate, trailerPlate string) {
	pair := CouplingPair{
		TruckPlate:   NormalizePlate(truckPlate),
		TrailerPlate: NormalizePlate(trailerPlate),
	}

	c.mu.Lock()
	kept := c.couplingPairs[:0]
	removed := false
	for _, existing := range c.couplingPairs {
		if existing == pair {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	c.couplingPairs = kept
	var ev Event
	emit := false
	if removed && len(c.rawVehicles) > 0 {
		c.rebuildVehiclesLocked()
		c.renderVersion++
		ev = c.eventLocked(EventVehicles, len(c.vehicleOrder))
		emit = true
	}
	c.mu.Unlock()

	if emit {
		dispatchEvent(c.updateListeners, ev)
	}
}

// CouplingPairs returns the declared pair list
func (c *Controller) CouplingPairs() []CouplingPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]CouplingPair(nil), c.couplingPairs...)
}

// ── selection and follow mode ────────────────────────────────────────────

// SelectVehicle records the selected vehicle and notifies the dedicated
// selection channel, so the info panel can react without re-reading full
// state
func (c *Controller) SelectVehicle(id string) {
	c.mu.Lock()
	if prev, ok := c.vehicles[c.selectedID]; ok {
		prev.Selected = false
	}
	c.selectedID = ""
	if v, ok := c.vehicleLocked(id); ok {
		v.Selected = true
		c.selectedID = v.ID()
	}
	selected := c.selectedID
	c.renderVersion++
	ev := c.eventLocked(EventSelection, selected)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
	dispatchSelection(c.selectionListeners, selected)
}

// ClearSelection drops the current selection
func (c *Controller) ClearSelection() {
	c.SelectVehicle("")
}

// SelectedVehicleID returns the selected vehicle id, "" when none
func (c *Controller) SelectedVehicleID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedID
}

// FollowVehicle engages follow mode: every subsequent vehicles update
// recenters the view on the vehicle's latest position. If the vehicle drops
// out of the collection, centering is skipped that cycle but follow mode
// stays engaged.
func (c *Controller) FollowVehicle(id string) {
	c.mu.Lock()
	c.followedID = canonicalVehicleID(id)
	center, present := c.followCenterLocked()
	ev := c.eventLocked(EventView, c.followedID)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
	if present {
		c.emitView(center)
	}
}

// StopFollowing disengages follow mode
func (c *Controller) StopFollowing() {
	c.mu.Lock()
	c.followedID = ""
	ev := c.eventLocked(EventView, "")
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// FollowedVehicleID returns the followed vehicle id, "" when off
func (c *Controller) FollowedVehicleID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.followedID
}

func (c *Controller) followCenterLocked() (LatLng, bool) {
	if c.followedID == "" {
		return LatLng{}, false
	}
	v, ok := c.vehicles[c.followedID]
	if !ok {
		return LatLng{}, false
	}
	return v.Pos, true
}

func (c *Controller) emitView(center LatLng) {
	c.mu.RLock()
	ev := c.eventLocked(EventView, center)
	c.mu.RUnlock()
	dispatchEvent(c.updateListeners, ev)
}

// FitBounds emits a fit-bounds event covering every currently filtered
// vehicle
func (c *Controller) FitBounds() {
	c.mu.RLock()
	var b Bounds
	for _, v := range c.filteredVehiclesLocked() {
		b.Extend(v.Pos)
	}
	ev := c.eventLocked(EventFitBounds, b)
	c.mu.RUnlock()

	dispatchEvent(c.updateListeners, ev)
}

// ── view state save/restore ──────────────────────────────────────────────

// ViewState captures the restorable display state
func (c *Controller) ViewState() ViewState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewStateLocked()
}

func (c *Controller) viewStateLocked() ViewState {
	return ViewState{
		Filters:         c.filters,
		HiddenPlates:    c.hiddenPlatesLocked(),
		CouplingEnabled: c.couplingEnabled,
		Clustering:      c.clustering,
		Traffic:         c.traffic,
		TileProvider:    c.tileProvider,
		SelectedID:      c.selectedID,
		FollowedID:      c.followedID,
	}
}

// RestoreViewState applies a previously saved display state in one step and
// replays ingestion over the cached raw data
func (c *Controller) RestoreViewState(s ViewState) {
	c.mu.Lock()
	c.filters = s.Filters
	c.hiddenPlates = make(map[string]bool, len(s.HiddenPlates))
	for _, p := range s.HiddenPlates {
		c.hiddenPlates[NormalizePlate(p)] = true
	}
	c.couplingEnabled = s.CouplingEnabled
	c.clustering = s.Clustering
	c.traffic = s.Traffic
	if s.TileProvider != "" {
		c.tileProvider = s.TileProvider
	}
	c.selectedID = s.SelectedID
	c.followedID = s.FollowedID
	c.rebuildVehiclesLocked()
	c.renderVersion++
	c.clusterVersion++
	ev := c.eventLocked(EventRestore, s)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// Reset clears every collection and returns display options to defaults
func (c *Controller) Reset() {
	c.mu.Lock()
	for _, v := range c.vehicles {
		v.ReleaseHandle()
	}
	for _, g := range c.geofences {
		g.ReleaseHandle()
	}
	for _, m := range c.markers {
		m.ReleaseHandle()
	}
	for _, r := range c.routes {
		r.ReleaseHandle()
	}
	c.vehicles = make(map[string]*VehicleDrawable)
	c.vehicleOrder = nil
	c.geofences = make(map[string]*GeofenceDrawable)
	c.geofenceOrder = nil
	c.markers = make(map[string]*MarkerDrawable)
	c.markerOrder = nil
	c.routes = make(map[string]*RouteDrawable)
	c.routeOrder = nil
	c.rawVehicles = nil
	c.rawGeofences = nil
	c.hiddenPlates = make(map[string]bool)
	c.couplingPairs = nil
	c.couplingEnabled = false
	c.filters = DefaultFilters()
	c.clustering = false
	c.traffic = false
	c.tileProvider = "osm"
	c.selectedID = ""
	c.followedID = ""
	c.renderVersion++
	c.clusterVersion++
	ev := c.eventLocked(EventReset, nil)
	c.mu.Unlock()

	dispatchEvent(c.updateListeners, ev)
}

// ── snapshot ─────────────────────────────────────────────────────────────

// Snapshot builds the full-state view attached to update events
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Vehicles:       make([]*VehicleDrawable, 0, len(c.vehicleOrder)),
		Geofences:      make([]*GeofenceDrawable, 0, len(c.geofenceOrder)),
		Markers:        make([]*MarkerDrawable, 0, len(c.markerOrder)),
		Routes:         make([]*RouteDrawable, 0, len(c.routeOrder)),
		View:           c.viewStateLocked(),
		RenderVersion:  c.renderVersion,
		ClusterVersion: c.clusterVersion,
	}
	for _, id := range c.vehicleOrder {
		s.Vehicles = append(s.Vehicles, c.vehicles[id])
	}
	for _, id := range c.geofenceOrder {
		s.Geofences = append(s.Geofences, c.geofences[id])
	}
	for _, id := range c.markerOrder {
		s.Markers = append(s.Markers, c.markers[id])
	}
	for _, id := range c.routeOrder {
		s.Routes = append(s.Routes, c.routes[id])
	}
	return s
}

func (c *Controller) eventLocked(kind EventKind, payload interface{}) Event {
	return Event{Kind: kind, Payload: payload, Snapshot: c.snapshotLocked()}
}
