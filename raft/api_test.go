package raft

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krantius/raftsim/replication"
)

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s %s: content type %q", method, path, ct)
	}

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: bad json %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestAPI(t *testing.T) {
	s := newSimulation(t, 3, 1)
	h := NewRouter(s.cluster)

	rec, body := do(t, h, "GET", "/api/leader", "")
	if rec.Code != http.StatusNotFound || body["error"] != ErrNoLeader.Error() {
		t.Errorf("expected 404 without a leader, got %d %v", rec.Code, body)
	}

	rec, _ = do(t, h, "POST", "/api/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}

	leader := s.waitStable(settle)

	rec, body = do(t, h, "GET", "/api/leader", "")
	if rec.Code != http.StatusOK || body["id"] != leader.ID() || body["state"] != string(Leader) {
		t.Errorf("unexpected leader response %d %v", rec.Code, body)
	}

	var follower *Node
	for _, n := range s.cluster.Nodes() {
		if n != leader {
			follower = n
			break
		}
	}

	rec, body = do(t, h, "POST", "/api/nodes/"+follower.ID()+"/request", `{"value": "x"}`)
	if rec.Code != http.StatusConflict || body["leader"] != leader.ID() {
		t.Errorf("expected a redirect to %s, got %d %v", leader.ID(), rec.Code, body)
	}

	rec, _ = do(t, h, "POST", "/api/nodes/"+leader.ID()+"/request", `{"value"`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a broken body, got %d", rec.Code)
	}

	rec, _ = do(t, h, "POST", "/api/nodes/"+leader.ID()+"/request", `{"value": "x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request on leader: %d", rec.Code)
	}

	expected := []replication.Entry{{Term: leader.Term(), Value: "x"}}
	s.until("x committed", time.Second, func() bool {
		return s.converged(expected)
	})

	rec, _ = do(t, h, "GET", "/api/status", "")
	var statuses []Status
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, st := range statuses {
		if st.CommitIndex != 1 || len(st.Log) != 1 || st.Log[0] != expected[0] {
			t.Errorf("unexpected status %+v", st)
		}
	}

	rec, body = do(t, h, "POST", "/api/nodes/"+follower.ID()+"/stop", "")
	if rec.Code != http.StatusOK || body["state"] != string(Stopped) {
		t.Errorf("stop: %d %v", rec.Code, body)
	}

	rec, body = do(t, h, "POST", "/api/nodes/"+follower.ID()+"/request", `{"value": "y"}`)
	if rec.Code != http.StatusConflict || body["error"] != ErrNodeStopped.Error() {
		t.Errorf("expected node stopped, got %d %v", rec.Code, body)
	}

	rec, body = do(t, h, "POST", "/api/nodes/"+follower.ID()+"/start", "")
	if rec.Code != http.StatusOK || body["state"] != string(Follower) {
		t.Errorf("start: %d %v", rec.Code, body)
	}

	term := leader.Term()
	rec, body = do(t, h, "POST", "/api/nodes/"+follower.ID()+"/elect", "")
	if rec.Code != http.StatusOK || body["state"] != string(Candidate) || body["term"] != float64(term+1) {
		t.Errorf("elect: %d %v", rec.Code, body)
	}

	rec, body = do(t, h, "GET", "/api/nodes/s9", "")
	if rec.Code != http.StatusNotFound || body["error"] == nil {
		t.Errorf("expected 404 for an unknown node, got %d %v", rec.Code, body)
	}

	rec, _ = do(t, h, "POST", "/api/stop", "")
	if rec.Code != http.StatusOK {
		t.Errorf("stop all: %d", rec.Code)
	}
	for _, n := range s.cluster.Nodes() {
		if n.State() != Stopped {
			t.Errorf("%s still %s", n.ID(), n.State())
		}
	}
}
