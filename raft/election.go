package raft

// resetElectionTimer replaces the election timer with a fresh random one
func (n *Node) resetElectionTimer() {
	if n.electionTimer != nil {
		n.electionTimer.Stop()
	}

	delay := n.between(n.cfg.MinElectionTimeout, n.cfg.MaxElectionTimeout)
	n.electionTimer = n.schedule(delay, n.handleElectionTimeout)

	n.emit(Event{Kind: EventSetElectionTimeout, Delay: delay})
}

// clearElectionTimer is used by leaders, they never time out
func (n *Node) clearElectionTimer() {
	if n.electionTimer != nil {
		n.electionTimer.Stop()
		n.electionTimer = nil
	}

	n.emit(Event{Kind: EventClearedElectionTimeout})
}

func (n *Node) handleElectionTimeout() {
	switch n.state {
	case Stopped, Leader:
		return
	}

	n.term++
	n.votedFor = n.id
	n.leader = ""
	n.state = Candidate
	n.resetElectionTimer()
	n.stopHeartbeats()

	for _, p := range n.peers {
		p.voteGranted = false
		p.matchIndex = 0
		p.nextIndex = 1
	}

	n.log.Infof("election timeout, starting election for term %d", n.term)
	n.emit(Event{Kind: EventStartedNewElection})

	for _, id := range n.peerOrder {
		n.sendRequestVote(id)
	}

	n.checkVotes()
}

// stepDown adopts a higher term seen on an incoming message
func (n *Node) stepDown(term int) {
	if n.state == Leader {
		n.log.Infof("stepping down as leader of term %d", n.term)
	}

	n.state = Follower
	n.term = term
	n.votedFor = ""
	n.leader = ""
	n.stopHeartbeats()
	n.resetElectionTimer()

	n.emit(Event{Kind: EventSteppedDown})
}

func (n *Node) sendRequestVote(peerID string) {
	m := &RequestVote{
		Header: Header{
			ID:   newMessageID(),
			From: n.id,
			To:   peerID,
			Term: n.term,
		},
		LastLogTerm:  n.entries.LastTerm(),
		LastLogIndex: n.entries.Len(),
	}

	n.send(m, n.cfg.RPCTimeout)
}

func (n *Node) handleRequestVote(m *RequestVote) {
	granted := false

	upToDate := m.LastLogTerm > n.entries.LastTerm() ||
		(m.LastLogTerm == n.entries.LastTerm() && m.LastLogIndex >= n.entries.Len())

	if n.term == m.Term && (n.votedFor == "" || n.votedFor == m.From) && upToDate {
		granted = true
		n.votedFor = m.From

		// Someone is campaigning, don't start a competing election
		n.resetElectionTimer()

		n.log.Infof("voting for %s in term %d", m.From, n.term)
		n.emit(Event{Kind: EventVoted})
	}

	n.send(&RequestVoteResponse{
		Header:  reply(m.Header, n.term),
		Granted: granted,
	}, 0)
}

func (n *Node) handleRequestVoteResponse(m *RequestVoteResponse) {
	if n.state != Candidate || n.term != m.Term {
		return
	}

	p, ok := n.peers[m.From]
	if !ok {
		return
	}

	p.voteGranted = m.Granted
	n.emit(Event{Kind: EventReceivedVote})

	n.checkVotes()
}

// quorum is a strict majority of the cluster, this node included
func (n *Node) quorum() int {
	return (len(n.peers)+1)/2 + 1
}

func (n *Node) checkVotes() {
	if n.state != Candidate {
		return
	}

	votes := 1 // Voted for self
	for _, p := range n.peers {
		if p.voteGranted {
			votes++
		}
	}

	if votes >= n.quorum() {
		n.becomeLeader(votes)
	}
}

func (n *Node) becomeLeader(votes int) {
	n.log.Infof("became leader of term %d with %d votes", n.term, votes)

	n.state = Leader
	n.leader = n.id

	for _, id := range n.peerOrder {
		n.peers[id].nextIndex = n.entries.Len() + 1
		n.sendAppendEntries(id)
	}

	n.clearElectionTimer()
	n.emit(Event{Kind: EventBecameLeader})

	n.advanceCommitIndex()
}
