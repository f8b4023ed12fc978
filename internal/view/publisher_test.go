package view

import (
	"sort"
	"testing"
	"time"

	"fleetboard-backend/internal/mapstate"
)

type captureHub struct {
	frames     []Frame
	userFrames map[string][]Frame
}

func (h *captureHub) BroadcastToRole(role string, data interface{}) {
	if role != "operator" {
		return
	}
	if f, ok := data.(Frame); ok {
		h.frames = append(h.frames, f)
	}
}

func (h *captureHub) BroadcastToUser(userID string, data interface{}) {
	if f, ok := data.(Frame); ok {
		if h.userFrames == nil {
			h.userFrames = make(map[string][]Frame)
		}
		h.userFrames[userID] = append(h.userFrames[userID], f)
	}
}

func TestPublisherEmitsFrameOnIngest(t *testing.T) {
	c := mapstate.NewController()
	hub := &captureHub{}
	p := NewPublisher(c, hub)
	p.Start(time.Hour) // poll interval long enough to never fire
	defer p.Stop()

	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AB123CD", Latitude: 45, Longitude: 9, Speed: 50, FixTime: time.Now()},
	})

	if len(hub.frames) == 0 {
		t.Fatal("no frame published on ingest")
	}
	frame := hub.frames[len(hub.frames)-1]
	if frame.Event != mapstate.EventVehicles {
		t.Errorf("frame event = %s, want vehicles", frame.Event)
	}
	if len(frame.Vehicles) != 1 || frame.Vehicles[0].Plate != "AB123CD" {
		t.Errorf("frame vehicles = %+v", frame.Vehicles)
	}
	if frame.Vehicles[0].Icon == nil {
		t.Error("published vehicle carries no icon descriptor")
	}
}

func TestPublisherReportsRemovedIDs(t *testing.T) {
	c := mapstate.NewController()
	hub := &captureHub{}
	p := NewPublisher(c, hub)
	p.Start(time.Hour)
	defer p.Stop()

	now := time.Now()
	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AB123CD", Latitude: 45, Longitude: 9, FixTime: now},
		{Plate: "CD456EF", Latitude: 45.1, Longitude: 9.1, FixTime: now},
	})
	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AB123CD", Latitude: 45.2, Longitude: 9.2, FixTime: now.Add(time.Minute)},
	})

	frame := hub.frames[len(hub.frames)-1]
	sort.Strings(frame.RemovedIDs)
	if len(frame.RemovedIDs) != 1 || frame.RemovedIDs[0] != "CD456EF" {
		t.Errorf("removed ids = %v, want [CD456EF]", frame.RemovedIDs)
	}
}

func TestPublisherClusterFrames(t *testing.T) {
	c := mapstate.NewController()
	hub := &captureHub{}
	p := NewPublisher(c, hub)
	p.Start(time.Hour)
	defer p.Stop()

	now := time.Now()
	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AA111AA", Latitude: 45.001, Longitude: 9.001, FixTime: now},
		{Plate: "BB222BB", Latitude: 45.002, Longitude: 9.002, FixTime: now},
	})
	c.SetClustering(true)

	frame := hub.frames[len(hub.frames)-1]
	if len(frame.Clusters) != 1 || frame.Clusters[0].Count != 2 {
		t.Errorf("clusters = %+v, want one cluster of 2", frame.Clusters)
	}
	if frame.ClusterVersion == 0 {
		t.Error("cluster version not carried on the frame")
	}
}

func TestPublisherSyncUser(t *testing.T) {
	c := mapstate.NewController()
	hub := &captureHub{}
	p := NewPublisher(c, hub)
	p.Start(time.Hour)
	defer p.Stop()

	now := time.Now()
	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AB123CD", Latitude: 45, Longitude: 9, FixTime: now},
	})

	p.SyncUser("user-1")

	frames := hub.userFrames["user-1"]
	if len(frames) != 1 {
		t.Fatalf("expected one sync frame, got %d", len(frames))
	}
	if frames[0].Event != mapstate.EventRestore {
		t.Errorf("sync frame event = %s, want restore", frames[0].Event)
	}
	if len(frames[0].Vehicles) != 1 {
		t.Errorf("sync frame vehicles = %+v", frames[0].Vehicles)
	}

	// a sync must not settle the removal ledger for the role broadcasts
	c.UpdateVehicles(nil)
	last := hub.frames[len(hub.frames)-1]
	if len(last.RemovedIDs) != 1 || last.RemovedIDs[0] != "AB123CD" {
		t.Errorf("removed ids after sync = %v, want [AB123CD]", last.RemovedIDs)
	}
}

func TestPublisherFollowCenter(t *testing.T) {
	c := mapstate.NewController()
	hub := &captureHub{}
	p := NewPublisher(c, hub)
	p.Start(time.Hour)
	defer p.Stop()

	c.UpdateVehicles([]mapstate.PositionRecord{
		{Plate: "AB123CD", Latitude: 45, Longitude: 9, FixTime: time.Now()},
	})
	c.FollowVehicle("AB123CD")

	var centered *Frame
	for i := range hub.frames {
		if hub.frames[i].Center != nil {
			centered = &hub.frames[i]
		}
	}
	if centered == nil {
		t.Fatal("no frame carried a recenter")
	}
	if centered.Center.Lat != 45 || centered.Center.Lng != 9 {
		t.Errorf("center = %+v", centered.Center)
	}
}
