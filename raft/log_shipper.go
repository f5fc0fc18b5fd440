package raft

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// sendAppendEntries ships the next batch to a peer. A peer whose matchIndex
// trails nextIndex is still being probed and gets no entries until a probe
// succeeds.
func (n *Node) sendAppendEntries(peerID string) {
	p, ok := n.peers[peerID]
	if !ok {
		return
	}

	prevIndex := p.nextIndex - 1
	lastIndex := min(prevIndex+n.cfg.BatchSize, n.entries.Len())
	if p.matchIndex+1 < p.nextIndex {
		lastIndex = prevIndex
	}

	m := &AppendEntries{
		Header: Header{
			ID:   newMessageID(),
			From: n.id,
			To:   peerID,
			Term: n.term,
		},
		PrevIndex:   prevIndex,
		PrevTerm:    n.entries.TermAt(prevIndex),
		Entries:     n.entries.Slice(prevIndex, lastIndex),
		CommitIndex: min(n.commitIndex, lastIndex),
	}

	n.send(m, n.cfg.RPCTimeout)
}

func (n *Node) handleAppendEntries(m *AppendEntries) {
	success := false
	matchIndex := 0

	if n.term == m.Term {
		if n.state != Follower {
			n.log.Infof("%s holds term %d, becoming follower", m.From, m.Term)
			n.state = Follower
			n.stopHeartbeats()
		}

		n.leader = m.From
		n.resetElectionTimer()

		if n.entries.Matches(m.PrevIndex, m.PrevTerm) {
			success = true
			matchIndex = n.entries.Reconcile(m.PrevIndex, m.Entries)

			if m.CommitIndex > n.commitIndex {
				n.commitIndex = m.CommitIndex
				n.emit(Event{Kind: EventCommitted, CommitIndex: n.commitIndex})
			}
		} else {
			n.log.WithFields(log.Fields{
				"prevIndex": m.PrevIndex,
				"prevTerm":  m.PrevTerm,
				"logLen":    n.entries.Len(),
			}).Debug("log does not match, rejecting entries")
		}

		n.emit(Event{Kind: EventReceivedAppendEntries})
	}

	n.send(&AppendEntriesResponse{
		Header:     reply(m.Header, n.term),
		Success:    success,
		MatchIndex: matchIndex,
	}, 0)
}

func (n *Node) handleAppendEntriesResponse(m *AppendEntriesResponse) {
	if n.state != Leader || n.term != m.Term {
		return
	}

	p, ok := n.peers[m.From]
	if !ok {
		return
	}

	if m.Success {
		p.matchIndex = max(p.matchIndex, m.MatchIndex)
		p.nextIndex = m.MatchIndex + 1

		n.advanceCommitIndex()
	} else {
		p.nextIndex = max(1, p.nextIndex-1)
	}

	// More to send now, otherwise wait for the heartbeat
	if p.nextIndex <= n.entries.Len() {
		n.sendAppendEntries(p.id)
		return
	}

	p.stopHeartbeat()
	id := p.id
	p.heartbeat = n.schedule(n.cfg.HeartbeatInterval, func() {
		n.handleHeartbeatTimeout(id)
	})
}

func (n *Node) handleHeartbeatTimeout(peerID string) {
	if n.state != Leader {
		return
	}

	if p, ok := n.peers[peerID]; ok {
		p.heartbeat = nil
	}

	n.sendAppendEntries(peerID)
}

// handleMessageTimeout retries a request nobody answered in time. Responses
// are never retried, the requester asks again.
func (n *Node) handleMessageTimeout(m Message) {
	if n.state == Stopped || IsResponse(m) {
		return
	}

	// A new term has begun since, the retry would be for a stale round
	if m.Head().Term != n.term {
		return
	}

	switch msg := m.(type) {
	case *RequestVote:
		if n.state == Candidate {
			n.log.Debugf("RequestVote to %s timed out, retrying", msg.To)
			n.sendRequestVote(msg.To)
		}
	case *AppendEntries:
		if n.state == Leader {
			n.log.Debugf("AppendEntries to %s timed out, retrying", msg.To)
			n.sendAppendEntries(msg.To)
		}
	}
}

// advanceCommitIndex commits the highest index stored on a strict majority,
// counting this leader's own log. Only entries of the current term are
// committed by counting; earlier ones follow along.
func (n *Node) advanceCommitIndex() {
	if n.state != Leader {
		return
	}

	matches := make([]int, 0, len(n.peers)+1)
	for _, p := range n.peers {
		matches = append(matches, p.matchIndex)
	}
	matches = append(matches, n.entries.Len())
	sort.Ints(matches)

	candidate := matches[(len(matches)-1)/2]

	if candidate > n.commitIndex && n.entries.TermAt(candidate) == n.term {
		n.commitIndex = candidate
		n.log.Infof("committed up to index %d", candidate)
		n.emit(Event{Kind: EventCommitted, CommitIndex: candidate})
	}
}
