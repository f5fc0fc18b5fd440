package raft

import (
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/krantius/raftsim/clock"
	"github.com/krantius/raftsim/replication"
	log "github.com/sirupsen/logrus"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.Out = io.Discard
	return l
}

// testConfig satisfies the liveness bound: 150ms > 2*20ms + 60ms
func testConfig() Config {
	return Config{
		MinMessageDelay:    10 * time.Millisecond,
		MaxMessageDelay:    20 * time.Millisecond,
		RPCTimeout:         60 * time.Millisecond,
		MinElectionTimeout: 150 * time.Millisecond,
		MaxElectionTimeout: 300 * time.Millisecond,
		HeartbeatInterval:  40 * time.Millisecond,
		BatchSize:          1,
	}
}

const step = 5 * time.Millisecond

// simulation drives a cluster on a simulated clock and checks the safety
// properties after every step.
type simulation struct {
	t       *testing.T
	clock   *clock.Sim
	cluster *Cluster
	check   *checker
	events  []Event
}

func newSimulation(t *testing.T, size int, seed int64) *simulation {
	t.Helper()

	sim := clock.NewSim()
	c, err := NewCluster(size, testConfig(), ClusterOptions{
		Clock:  sim,
		Seed:   seed,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewCluster(%d) failed: %v", size, err)
	}

	return &simulation{
		t:       t,
		clock:   sim,
		cluster: c,
		check:   newChecker(t),
	}
}

func (s *simulation) node(id string) *Node {
	s.t.Helper()

	n, err := s.cluster.Node(id)
	if err != nil {
		s.t.Fatal(err)
	}
	return n
}

func (s *simulation) advance(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		s.clock.Advance(step)
		s.drain()
		s.check.verify(s.cluster)
	}
}

// until advances until cond holds, failing the test after limit
func (s *simulation) until(what string, limit time.Duration, cond func() bool) {
	s.t.Helper()

	reached := s.clock.AdvanceUntil(func() bool {
		s.drain()
		s.check.verify(s.cluster)
		return cond()
	}, step, limit)

	if !reached {
		s.t.Fatalf("%s: not reached after %v of simulated time", what, limit)
	}
}

func (s *simulation) waitLeader(limit time.Duration) *Node {
	s.t.Helper()

	var leader *Node
	s.until("leader elected", limit, func() bool {
		leader = s.cluster.Leader()
		return leader != nil
	})
	return leader
}

func (s *simulation) drain() {
	for {
		select {
		case e := <-s.cluster.Events():
			s.events = append(s.events, e)
		default:
			return
		}
	}
}

type leaderLog struct {
	term int
	log  []replication.Entry
}

// checker tracks history across steps: election safety, leader append-only,
// log matching, commit stability and monotonic term/commitIndex.
type checker struct {
	t          *testing.T
	leaders    map[int]string
	terms      map[string]int
	commits    map[string]int
	committed  map[int]replication.Entry
	leaderLogs map[string]leaderLog
}

func newChecker(t *testing.T) *checker {
	return &checker{
		t:          t,
		leaders:    make(map[int]string),
		terms:      make(map[string]int),
		commits:    make(map[string]int),
		committed:  make(map[int]replication.Entry),
		leaderLogs: make(map[string]leaderLog),
	}
}

func (ck *checker) verify(c *Cluster) {
	ck.t.Helper()

	statuses := c.Status()

	for _, s := range statuses {
		if s.Term < ck.terms[s.ID] {
			ck.t.Errorf("%s term went back from %d to %d", s.ID, ck.terms[s.ID], s.Term)
		}
		ck.terms[s.ID] = s.Term

		if s.CommitIndex < ck.commits[s.ID] {
			ck.t.Errorf("%s commitIndex went back from %d to %d", s.ID, ck.commits[s.ID], s.CommitIndex)
		}
		ck.commits[s.ID] = s.CommitIndex

		if s.CommitIndex > len(s.Log) {
			ck.t.Errorf("%s commitIndex %d beyond log length %d", s.ID, s.CommitIndex, len(s.Log))
		}

		if s.State == Leader {
			if other, ok := ck.leaders[s.Term]; ok && other != s.ID {
				ck.t.Errorf("two leaders in term %d: %s and %s", s.Term, other, s.ID)
			}
			ck.leaders[s.Term] = s.ID

			if prev, ok := ck.leaderLogs[s.ID]; ok && prev.term == s.Term && !isPrefix(prev.log, s.Log) {
				ck.t.Errorf("leader %s rewrote its log in term %d: %+v -> %+v", s.ID, s.Term, prev.log, s.Log)
			}
			ck.leaderLogs[s.ID] = leaderLog{term: s.Term, log: s.Log}
		} else {
			delete(ck.leaderLogs, s.ID)
		}

		for i := 1; i <= s.CommitIndex && i <= len(s.Log); i++ {
			e := s.Log[i-1]
			if prev, ok := ck.committed[i]; ok && prev != e {
				ck.t.Errorf("committed index %d changed on %s: %+v -> %+v", i, s.ID, prev, e)
			}
			ck.committed[i] = e
		}
	}

	for i := range statuses {
		for j := i + 1; j < len(statuses); j++ {
			a, b := statuses[i].Log, statuses[j].Log
			for k := min(len(a), len(b)); k > 0; k-- {
				if a[k-1].Term != b[k-1].Term {
					continue
				}
				if !reflect.DeepEqual(a[:k], b[:k]) {
					ck.t.Errorf("log matching broken between %s and %s at index %d:\n%+v\n%+v",
						statuses[i].ID, statuses[j].ID, k, a, b)
				}
				break
			}
		}
	}
}

func isPrefix(prefix, full []replication.Entry) bool {
	if len(prefix) > len(full) {
		return false
	}
	return reflect.DeepEqual(prefix, full[:len(prefix)])
}

// recorder is a peer that keeps every message delivered to it
type recorder struct {
	id  string
	mu  sync.Mutex
	got []Message
}

func (r *recorder) ID() string {
	return r.id
}

func (r *recorder) Receive(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
}

// take returns and forgets what has been received so far
func (r *recorder) take() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.got
	r.got = nil
	return out
}
