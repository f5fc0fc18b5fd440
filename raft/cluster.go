package raft

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/krantius/raftsim/clock"
	"github.com/krantius/raftsim/shared/logging"
	log "github.com/sirupsen/logrus"
)

const defaultEventBuffer = 4096

// ClusterOptions are shared by every node of a cluster
type ClusterOptions struct {
	Clock clock.Clock

	// Seed drives every random draw of the cluster; 0 picks one from the time.
	// Node i uses Seed+i.
	Seed int64

	// EventBuffer is the capacity of the shared event channel
	EventBuffer int

	Logger *log.Logger
}

// Cluster owns a fixed set of nodes, each a peer of every other
type Cluster struct {
	nodes  []*Node
	byID   map[string]*Node
	events chan Event
	log    *log.Entry
}

// NewCluster creates size stopped nodes named s1..sN and wires them together
func NewCluster(size int, cfg Config, opts ClusterOptions) (*Cluster, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d servers", ErrInvalidClusterSize, size)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logging.Logger()
	}

	c := &Cluster{
		nodes:  make([]*Node, size),
		byID:   make(map[string]*Node, size),
		events: make(chan Event, opts.EventBuffer),
		log:    opts.Logger.WithField("cluster", size),
	}

	for i := range c.nodes {
		id := fmt.Sprintf("s%d", i+1)

		n := NewNode(id, cfg, Options{
			Clock:  opts.Clock,
			Rand:   rand.New(rand.NewSource(opts.Seed + int64(i))),
			Events: c.events,
			Logger: opts.Logger,
		})

		c.nodes[i] = n
		c.byID[id] = n
	}

	for _, n := range c.nodes {
		others := make([]Receiver, 0, size-1)
		for _, o := range c.nodes {
			if o != n {
				others = append(others, o)
			}
		}

		if err := n.Init(others); err != nil {
			return nil, err
		}
	}

	c.log.Infof("created cluster with seed %d", opts.Seed)

	return c, nil
}

// Start starts every node
func (c *Cluster) Start() {
	for _, n := range c.nodes {
		n.Start()
	}
}

// Stop stops every node
func (c *Cluster) Stop() {
	for _, n := range c.nodes {
		n.Stop()
	}
}

// Events is the channel every node of the cluster emits on
func (c *Cluster) Events() <-chan Event {
	return c.events
}

func (c *Cluster) Size() int {
	return len(c.nodes)
}

// Nodes returns the nodes in creation order
func (c *Cluster) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Node looks a node up by id
func (c *Cluster) Node(id string) (*Node, error) {
	n, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return n, nil
}

// Leader returns the running leader with the highest term, nil if there is none
func (c *Cluster) Leader() *Node {
	var leader *Node
	term := 0

	for _, n := range c.nodes {
		s := n.Status()
		if s.State == Leader && s.Term > term {
			leader = n
			term = s.Term
		}
	}

	return leader
}

// Status returns a snapshot of every node in creation order
func (c *Cluster) Status() []Status {
	out := make([]Status, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.Status()
	}
	return out
}

// Reconfigure swaps the timing config of every node. All nodes must be stopped.
func (c *Cluster) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, n := range c.nodes {
		if n.State() != Stopped {
			return fmt.Errorf("%w: %s is %s", ErrClusterRunning, n.ID(), n.State())
		}
	}

	for _, n := range c.nodes {
		if err := n.Configure(cfg); err != nil {
			return fmt.Errorf("%s: %w", n.ID(), err)
		}
	}

	c.log.Info("reconfigured")
	return nil
}
