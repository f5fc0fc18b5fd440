package raft

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

type api struct {
	cluster *Cluster
}

type requestBody struct {
	Value string `json:"value"`
}

type errorBody struct {
	Error  string `json:"error"`
	Leader string `json:"leader,omitempty"`
}

// NewRouter exposes control and status of a cluster under /api
func NewRouter(c *Cluster) *mux.Router {
	a := &api{cluster: c}

	r := mux.NewRouter()
	sr := r.PathPrefix("/api").Subrouter()

	sr.Path("/status").Methods("GET").HandlerFunc(a.status)
	sr.Path("/leader").Methods("GET").HandlerFunc(a.leader)
	sr.Path("/start").Methods("POST").HandlerFunc(a.startAll)
	sr.Path("/stop").Methods("POST").HandlerFunc(a.stopAll)

	sr.Path("/nodes/{id}").Methods("GET").HandlerFunc(a.nodeStatus)
	sr.Path("/nodes/{id}/start").Methods("POST").HandlerFunc(a.start)
	sr.Path("/nodes/{id}/stop").Methods("POST").HandlerFunc(a.stop)
	sr.Path("/nodes/{id}/elect").Methods("POST").HandlerFunc(a.elect)
	sr.Path("/nodes/{id}/request").Methods("POST").HandlerFunc(a.request)

	return r
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cluster.Status())
}

func (a *api) leader(w http.ResponseWriter, r *http.Request) {
	n := a.cluster.Leader()
	if n == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: ErrNoLeader.Error()})
		return
	}
	writeJSON(w, http.StatusOK, n.Status())
}

func (a *api) startAll(w http.ResponseWriter, r *http.Request) {
	a.cluster.Start()
	writeJSON(w, http.StatusOK, a.cluster.Status())
}

func (a *api) stopAll(w http.ResponseWriter, r *http.Request) {
	a.cluster.Stop()
	writeJSON(w, http.StatusOK, a.cluster.Status())
}

func (a *api) nodeStatus(w http.ResponseWriter, r *http.Request) {
	if n, ok := a.node(w, r); ok {
		writeJSON(w, http.StatusOK, n.Status())
	}
}

func (a *api) start(w http.ResponseWriter, r *http.Request) {
	if n, ok := a.node(w, r); ok {
		n.Start()
		writeJSON(w, http.StatusOK, n.Status())
	}
}

func (a *api) stop(w http.ResponseWriter, r *http.Request) {
	if n, ok := a.node(w, r); ok {
		n.Stop()
		writeJSON(w, http.StatusOK, n.Status())
	}
}

func (a *api) elect(w http.ResponseWriter, r *http.Request) {
	if n, ok := a.node(w, r); ok {
		n.ForceTriggerElection()
		writeJSON(w, http.StatusOK, n.Status())
	}
}

func (a *api) request(w http.ResponseWriter, r *http.Request) {
	n, ok := a.node(w, r)
	if !ok {
		return
	}

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	if err := n.Request(body.Value); err != nil {
		res := errorBody{Error: err.Error()}

		var notLeader *NotLeaderError
		if errors.As(err, &notLeader) {
			res.Leader = notLeader.Leader
		}

		writeJSON(w, http.StatusConflict, res)
		return
	}

	writeJSON(w, http.StatusOK, n.Status())
}

func (a *api) node(w http.ResponseWriter, r *http.Request) (*Node, bool) {
	n, err := a.cluster.Node(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return nil, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
