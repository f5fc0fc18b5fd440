package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/krantius/raftsim/raft"
	"github.com/krantius/raftsim/replication"
)

func TestPrinter(t *testing.T) {
	color.NoColor = true

	at := time.Date(2000, time.January, 1, 0, 0, 1, 500*int(time.Millisecond), time.UTC)

	tests := []struct {
		event    raft.Event
		expected string
	}{
		{
			event:    raft.Event{Kind: raft.EventBecameLeader, Node: "s1", Term: 2, State: raft.Leader, At: at},
			expected: "00:00:01.500 s1  leader    t2   became leader\n",
		},
		{
			event:    raft.Event{Kind: raft.EventSetElectionTimeout, Node: "s2", Term: 1, State: raft.Follower, At: at, Delay: 150 * time.Millisecond},
			expected: "00:00:01.500 s2  follower  t1   election timeout in 150ms\n",
		},
		{
			event:    raft.Event{Kind: raft.EventCommitted, Node: "s1", Term: 2, State: raft.Leader, At: at, CommitIndex: 3},
			expected: "00:00:01.500 s1  leader    t2   committed up to 3\n",
		},
		{
			event: raft.Event{
				Kind:  raft.EventSentMessage,
				Node:  "s1",
				Term:  2,
				State: raft.Leader,
				At:    at,
				Delay: 20 * time.Millisecond,
				Message: &raft.AppendEntries{
					Header:    raft.Header{From: "s1", To: "s3", Term: 2},
					PrevIndex: 4,
					Entries:   []replication.Entry{{Term: 2, Value: "x"}},
				},
			},
			expected: "00:00:01.500 s1  leader    t2   sent AppendEntries to s3 after 4 with 1 entries (20ms)\n",
		},
		{
			event: raft.Event{
				Kind:    raft.EventSentMessage,
				Node:    "s3",
				Term:    2,
				State:   raft.Candidate,
				At:      at,
				Delay:   15 * time.Millisecond,
				Message: &raft.RequestVote{Header: raft.Header{From: "s3", To: "s1", Term: 2}},
			},
			expected: "00:00:01.500 s3  candidate t2   sent RequestVote to s1 (15ms)\n",
		},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		newPrinter(&buf).print(tt.event)

		if got := buf.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestPrinterColors(t *testing.T) {
	p := newPrinter(&bytes.Buffer{})

	if p.color("s1") != p.color("s1") {
		t.Error("a node should keep its color")
	}
	if p.color("s1") == p.color("s2") {
		t.Error("nodes should get distinct colors")
	}
}
