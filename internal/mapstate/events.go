package mapstate

import (
	"log"
	"sync"
)

// EventKind tags an update event with the mutation category that produced it
type EventKind string

const (
	EventVehicles   EventKind = "vehicles"
	EventGeofences  EventKind = "geofences"
	EventMarkers    EventKind = "markers"
	EventRoutes     EventKind = "routes"
	EventFilters    EventKind = "filters"
	EventSelection  EventKind = "selection"
	EventView       EventKind = "view"
	EventProvider   EventKind = "provider"
	EventClustering EventKind = "clustering"
	EventTraffic    EventKind = "traffic"
	EventFitBounds  EventKind = "fit_bounds"
	EventRestore    EventKind = "restore"
	EventReset      EventKind = "reset"
)

// Event is delivered to every update listener on each controller mutation
type Event struct {
	Kind     EventKind   `json:"kind"`
	Payload  interface{} `json:"payload,omitempty"`
	Snapshot Snapshot    `json:"snapshot"`
}

// UpdateListener receives tagged controller events
type UpdateListener func(Event)

// SelectionListener receives the selected vehicle id ("" on clear)
type SelectionListener func(vehicleID string)

// listenerSet manages subscribe/detach bookkeeping for the two listener
// channels. Detach closures are idempotent.
type listenerSet struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]interface{}
}

func newListenerSet() *listenerSet {
	return &listenerSet{entries: make(map[int]interface{})}
}

func (s *listenerSet) add(fn interface{}) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.entries[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.entries, id)
			s.mu.Unlock()
		})
	}
}

func (s *listenerSet) snapshot() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]interface{}, 0, len(s.entries))
	for _, fn := range s.entries {
		out = append(out, fn)
	}
	return out
}

// dispatchEvent invokes every update listener, isolating panics so one
// failing subscriber cannot block the rest
func dispatchEvent(set *listenerSet, ev Event) {
	for _, fn := range set.snapshot() {
		listener, ok := fn.(UpdateListener)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️ Map update listener panicked on %q event: %v", ev.Kind, r)
				}
			}()
			listener(ev)
		}()
	}
}

func dispatchSelection(set *listenerSet, vehicleID string) {
	for _, fn := range set.snapshot() {
		listener, ok := fn.(SelectionListener)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️ Selection listener panicked: %v", r)
				}
			}()
			listener(vehicleID)
		}()
	}
}
