package raft

import (
	"github.com/krantius/raftsim/replication"
)

type State string

const (
	Follower  State = "follower"
	Candidate State = "candidate"
	Leader    State = "leader"
	Stopped   State = "stopped"
)

// Receiver accepts messages delivered by a peer link
type Receiver interface {
	ID() string
	Receive(m Message)
}

// PeerStatus is the leader-side bookkeeping for one peer
type PeerStatus struct {
	ID          string `json:"id"`
	VoteGranted bool   `json:"voteGranted"`
	MatchIndex  int    `json:"matchIndex"`
	NextIndex   int    `json:"nextIndex"`
}

// Status is a point in time copy of a node's state
type Status struct {
	ID          string              `json:"id"`
	State       State               `json:"state"`
	Term        int                 `json:"term"`
	VotedFor    string              `json:"votedFor"`
	Leader      string              `json:"leader"`
	Log         []replication.Entry `json:"log"`
	CommitIndex int                 `json:"commitIndex"`
	Peers       []PeerStatus        `json:"peers"`
}
