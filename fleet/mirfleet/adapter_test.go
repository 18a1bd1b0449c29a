package mirfleet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"robopool/fleet"
	"robopool/mir"
)

type recordingEmitter struct {
	vendor   string
	queueID  int
	newState string
}

func (r *recordingEmitter) EmitMissionStateChanged(vendor string, queueID int, missionID, robotName, oldState, newState, detail string) {
	r.vendor, r.queueID, r.newState = vendor, queueID, newState
}

func TestAdapterMoveToBin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/positions":
			json.NewEncoder(w).Encode([]mir.Position{{GUID: "p1", Name: "BIN-A"}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/missions":
			json.NewEncoder(w).Encode([]mir.Mission{{GUID: "m1", Name: "Navigate to warehouse bin"}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/mission_queue":
			var req mir.QueueRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.MissionID != "m1" || len(req.Parameters) != 1 || req.Parameters[0].Value != "p1" {
				t.Errorf("queue request = %+v", req)
			}
			json.NewEncoder(w).Encode(mir.QueueEntry{ID: 7, MissionID: "m1", State: mir.QueuePending})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL + "/api/", Username: "u", Password: "p", Timeout: 5 * time.Second, Params: testParams()})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.MoveToBin(context.Background(), fleet.MoveToBinRequest{RobotName: "MiR-1", BinName: "BIN-A"})
	if err != nil {
		t.Fatalf("MoveToBin: %v", err)
	}
	if res.QueueID != 7 || res.MissionID != "m1" || res.PositionID != "p1" || res.MissionState != "Pending" {
		t.Errorf("result = %+v", res)
	}
}

func TestAdapterTracker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(mir.QueueEntry{ID: 7, State: mir.QueueDone})
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL, Timeout: time.Second, PollInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if a.Tracker() != nil {
		t.Error("Tracker before InitTracker should be nil")
	}
	em := &recordingEmitter{}
	a.InitTracker(em)
	tr := a.Tracker()
	if tr == nil {
		t.Fatal("Tracker is nil after InitTracker")
	}
	tr.Track(7, "m1", "MiR-1")
	if tr.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", tr.ActiveCount())
	}

	var _ fleet.TrackingBackend = a
	var _ fleet.VendorProxy = a
	if a.Name() != "MiR Fleet" {
		t.Errorf("Name = %q", a.Name())
	}
}

func TestAdapterReconfigure(t *testing.T) {
	a, err := New(Config{BaseURL: "http://old.local/", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Reconfigure(fleet.ReconfigureParams{BaseURL: "http://new.local/api"}); err != nil {
		t.Fatal(err)
	}
	if got := a.BaseURL(); got != "http://new.local/api/" {
		t.Errorf("BaseURL = %q, want http://new.local/api/", got)
	}
	if err := a.Reconfigure(fleet.ReconfigureParams{BaseURL: "x", Proxy: "://bad"}); err == nil {
		t.Error("expected error for bad proxy")
	}
}
