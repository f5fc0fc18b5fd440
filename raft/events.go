package raft

import (
	"time"
)

// EventKind names something that happened inside a node
type EventKind string

const (
	EventSentMessage            EventKind = "sent_message"
	EventClearedElectionTimeout EventKind = "cleared_election_timeout"
	EventSetElectionTimeout     EventKind = "set_election_timeout"
	EventStartedNewElection     EventKind = "started_new_election"
	EventSteppedDown            EventKind = "stepped_down"
	EventVoted                  EventKind = "voted"
	EventReceivedVote           EventKind = "received_vote"
	EventBecameLeader           EventKind = "became_leader"
	EventReceivedAppendEntries  EventKind = "received_append_entries"
	EventStarted                EventKind = "started"
	EventStopped                EventKind = "stopped"
	EventLogRequested           EventKind = "log_requested"
	EventCommitted              EventKind = "committed"
)

// Event is emitted by a node on its event channel. Node, Term and State
// describe the node right after the change; the other fields are set only
// for the kinds that carry them.
type Event struct {
	Kind  EventKind `json:"kind"`
	Node  string    `json:"node"`
	Term  int       `json:"term"`
	State State     `json:"state"`
	At    time.Time `json:"at"`

	// EventSentMessage
	Message Message       `json:"message,omitempty"`
	Delay   time.Duration `json:"delay,omitempty"`

	// EventCommitted
	CommitIndex int `json:"commitIndex,omitempty"`
}

// emit hands e to the event channel without blocking. Must hold n.mu.
func (n *Node) emit(e Event) {
	if n.events == nil {
		return
	}

	e.Node = n.id
	e.Term = n.term
	e.State = n.state
	e.At = n.clock.Now()

	select {
	case n.events <- e:
	default:
		n.dropped++
		n.log.WithField("kind", e.Kind).Warnf("event channel full, dropped %d events so far", n.dropped)
	}
}
