package raft

import (
	"time"

	"github.com/krantius/raftsim/clock"
	log "github.com/sirupsen/logrus"
)

// peer is a node's view of one other server. voteGranted is used while
// candidate, matchIndex, nextIndex and heartbeat while leader.
type peer struct {
	id          string
	link        *link
	voteGranted bool
	matchIndex  int
	nextIndex   int
	heartbeat   clock.Timer
}

func (p *peer) status() PeerStatus {
	return PeerStatus{
		ID:          p.id,
		VoteGranted: p.voteGranted,
		MatchIndex:  p.matchIndex,
		NextIndex:   p.nextIndex,
	}
}

func (p *peer) stopHeartbeat() {
	if p.heartbeat != nil {
		p.heartbeat.Stop()
		p.heartbeat = nil
	}
}

// link delivers messages to one peer after a simulated one-way latency.
// Nothing is lost and nothing is ordered: two sends may arrive swapped.
type link struct {
	clock clock.Clock
	to    Receiver
}

func (l *link) deliver(m Message, delay time.Duration) {
	l.clock.AfterFunc(delay, func() {
		l.to.Receive(m)
	})
}

// send puts m on the link to its destination. With timeout > 0 an RPC timeout
// is armed as well; it races the delivery and the reply. Must hold n.mu.
func (n *Node) send(m Message, timeout time.Duration) {
	h := m.Head()

	p, ok := n.peers[h.To]
	if !ok {
		n.log.Debugf("dropping %s to unknown peer %s", m.Kind(), h.To)
		return
	}

	delay := n.between(n.cfg.MinMessageDelay, n.cfg.MaxMessageDelay)
	p.link.deliver(m, delay)

	n.log.WithFields(log.Fields{
		"to":    h.To,
		"id":    h.ID,
		"delay": delay,
	}).Debugf("sending %s", m.Kind())

	n.emit(Event{Kind: EventSentMessage, Message: m, Delay: delay})

	if timeout > 0 {
		n.rpcTimers[h.ID] = n.schedule(timeout, func() {
			delete(n.rpcTimers, h.ID)
			n.handleMessageTimeout(m)
		})
	}
}

// between draws a duration uniformly from [lo, hi)
func (n *Node) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(n.rand.Int63n(int64(hi-lo)))
}
