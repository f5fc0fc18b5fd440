package raft

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/krantius/raftsim/clock"
	"github.com/krantius/raftsim/replication"
	"github.com/krantius/raftsim/shared/logging"
	log "github.com/sirupsen/logrus"
)

// Node is a single simulated raft server.
//
// Every handler, timer callback included, runs under mu, so a node processes
// one message or timeout at a time. Nodes never call each other directly:
// messages travel over links scheduled on the clock.
type Node struct {
	// Config stuff
	id  string
	cfg Config

	// Raft state, kept across Stop and Start
	state    State
	term     int
	votedFor string
	leader   string

	// Log stuff
	entries     *replication.Log
	commitIndex int

	// Timers
	clock         clock.Clock
	electionTimer clock.Timer
	rpcTimers     map[string]clock.Timer

	// Peers
	peers       map[string]*peer
	peerOrder   []string
	initialized bool

	// Observability
	events  chan<- Event
	dropped int
	log     *log.Entry

	rand *rand.Rand

	// Concurrency
	mu sync.Mutex
}

// Options are the collaborators of a node. Zero values fall back to the wall
// clock, a time seeded source, no events and the shared logger.
type Options struct {
	Clock  clock.Clock
	Rand   *rand.Rand
	Events chan<- Event
	Logger *log.Logger
}

// NewNode creates a stopped node. Call Init to wire its peers and Start to run it.
func NewNode(id string, cfg Config, opts Options) *Node {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = logging.Logger()
	}

	return &Node{
		id:        id,
		cfg:       cfg,
		state:     Stopped,
		term:      1,
		entries:   replication.NewLog(),
		clock:     opts.Clock,
		rpcTimers: make(map[string]clock.Timer),
		peers:     make(map[string]*peer),
		events:    opts.Events,
		log:       opts.Logger.WithField("node", id),
		rand:      opts.Rand,
	}
}

// Init wires the peer table. It can only be called once, before Start.
func (n *Node) Init(peers []Receiver) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.initialized {
		return ErrAlreadyInitialized
	}
	n.initialized = true

	for _, r := range peers {
		if r.ID() == n.id {
			continue
		}

		n.peers[r.ID()] = &peer{
			id:        r.ID(),
			link:      &link{clock: n.clock, to: r},
			nextIndex: 1,
		}
		n.peerOrder = append(n.peerOrder, r.ID())
	}

	// Fixed iteration order keeps seeded simulations reproducible
	sort.Strings(n.peerOrder)

	return nil
}

// Start turns a stopped node into a follower and arms its election timer
func (n *Node) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Stopped {
		return
	}

	n.state = Follower
	n.resetElectionTimer()

	n.log.Infof("started in term %d", n.term)
	n.emit(Event{Kind: EventStarted})
}

// Stop halts the node and cancels every timer it owns. Messages already in
// flight towards it are still delivered and ignored.
func (n *Node) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == Stopped {
		return
	}

	n.state = Stopped

	// Whoever led before may be gone by the time we restart
	n.leader = ""

	if n.electionTimer != nil {
		n.electionTimer.Stop()
		n.electionTimer = nil
	}
	n.stopHeartbeats()

	for id, t := range n.rpcTimers {
		t.Stop()
		delete(n.rpcTimers, id)
	}

	n.log.Info("stopped")
	n.emit(Event{Kind: EventStopped})
}

// Request appends value to the leader's log. Replication happens on the next
// AppendEntries round for each peer.
func (n *Node) Request(value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case Leader:
	case Stopped:
		return ErrNodeStopped
	default:
		return &NotLeaderError{Leader: n.leader}
	}

	n.entries.Append(replication.Entry{Term: n.term, Value: value})

	n.log.WithField("index", n.entries.Len()).Debugf("appended %q", value)
	n.emit(Event{Kind: EventLogRequested})

	// A leader without peers is its own majority
	n.advanceCommitIndex()

	return nil
}

// ForceTriggerElection runs the election timeout handler right away
func (n *Node) ForceTriggerElection() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handleElectionTimeout()
}

// Configure replaces the timing config of a stopped node
func (n *Node) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Stopped {
		return ErrNodeRunning
	}

	n.cfg = cfg
	return nil
}

// Receive is the entry point for messages delivered by a peer link
func (n *Node) Receive(m Message) {
	n.mu.Lock()
	defer n.mu.Unlock()

	h := m.Head()

	if t, ok := n.rpcTimers[h.ID]; ok {
		t.Stop()
		delete(n.rpcTimers, h.ID)
	}

	if n.state == Stopped {
		return
	}

	n.log.WithFields(log.Fields{
		"from": h.From,
		"id":   h.ID,
		"term": h.Term,
	}).Debugf("received %s", m.Kind())

	if h.Term > n.term {
		n.log.Debugf("incoming term %d is higher than my term %d, stepping down", h.Term, n.term)
		n.stepDown(h.Term)
	}

	switch msg := m.(type) {
	case *RequestVote:
		n.handleRequestVote(msg)
	case *RequestVoteResponse:
		n.handleRequestVoteResponse(msg)
	case *AppendEntries:
		n.handleAppendEntries(msg)
	case *AppendEntriesResponse:
		n.handleAppendEntriesResponse(msg)
	}
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) Term() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.term
}

func (n *Node) CommitIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.commitIndex
}

// Leader returns the id of the leader this node currently follows, "" if none
func (n *Node) Leader() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.leader
}

func (n *Node) IsLeader() bool {
	return n.State() == Leader
}

// Log returns a copy of the node's log
func (n *Node) Log() []replication.Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries.Entries()
}

// Status is a snapshot of everything an observer may want to draw
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := Status{
		ID:          n.id,
		State:       n.state,
		Term:        n.term,
		VotedFor:    n.votedFor,
		Leader:      n.leader,
		Log:         n.entries.Entries(),
		CommitIndex: n.commitIndex,
		Peers:       make([]PeerStatus, 0, len(n.peers)),
	}

	for _, id := range n.peerOrder {
		s.Peers = append(s.Peers, n.peers[id].status())
	}

	return s
}

// schedule runs fn under n.mu after d unless the returned timer is stopped
// first. The stopped check happens under the lock, so a timer cancelled while
// its callback waits for the lock still does nothing. Must hold n.mu.
func (n *Node) schedule(d time.Duration, fn func()) clock.Timer {
	var t clock.Timer
	t = n.clock.AfterFunc(d, func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if t.Stopped() {
			return
		}
		fn()
	})
	return t
}

func (n *Node) stopHeartbeats() {
	for _, p := range n.peers {
		p.stopHeartbeat()
	}
}
