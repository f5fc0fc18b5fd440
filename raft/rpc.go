package raft

import (
	"github.com/google/uuid"
	"github.com/krantius/raftsim/replication"
)

// Kind names a message type
type Kind string

const (
	KindRequestVote           Kind = "RequestVote"
	KindRequestVoteResponse   Kind = "RequestVoteResponse"
	KindAppendEntries         Kind = "AppendEntries"
	KindAppendEntriesResponse Kind = "AppendEntriesResponse"
)

// Header is carried by every message. Responses reuse the ID of the request
// they answer so the requester can cancel its RPC timeout.
type Header struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Term int    `json:"term"`
}

// Message is one of RequestVote, RequestVoteResponse, AppendEntries or
// AppendEntriesResponse. The set is closed.
type Message interface {
	Head() Header
	Kind() Kind
	isMessage()
}

type RequestVote struct {
	Header
	LastLogTerm  int `json:"lastLogTerm"`
	LastLogIndex int `json:"lastLogIndex"`
}

type RequestVoteResponse struct {
	Header
	Granted bool `json:"granted"`
}

type AppendEntries struct {
	Header
	PrevIndex   int                 `json:"prevIndex"`
	PrevTerm    int                 `json:"prevTerm"`
	Entries     []replication.Entry `json:"entries"`
	CommitIndex int                 `json:"commitIndex"`
}

type AppendEntriesResponse struct {
	Header
	Success    bool `json:"success"`
	MatchIndex int  `json:"matchIndex"`
}

func (m *RequestVote) Head() Header           { return m.Header }
func (m *RequestVoteResponse) Head() Header   { return m.Header }
func (m *AppendEntries) Head() Header         { return m.Header }
func (m *AppendEntriesResponse) Head() Header { return m.Header }

func (*RequestVote) Kind() Kind           { return KindRequestVote }
func (*RequestVoteResponse) Kind() Kind   { return KindRequestVoteResponse }
func (*AppendEntries) Kind() Kind         { return KindAppendEntries }
func (*AppendEntriesResponse) Kind() Kind { return KindAppendEntriesResponse }

func (*RequestVote) isMessage()           {}
func (*RequestVoteResponse) isMessage()   {}
func (*AppendEntries) isMessage()         {}
func (*AppendEntriesResponse) isMessage() {}

// IsResponse reports whether m answers a request
func IsResponse(m Message) bool {
	switch m.(type) {
	case *RequestVoteResponse, *AppendEntriesResponse:
		return true
	}
	return false
}

func newMessageID() string {
	return uuid.New().String()
}

// reply builds the header of a response to h sent by from with term
func reply(h Header, term int) Header {
	return Header{
		ID:   h.ID,
		From: h.To,
		To:   h.From,
		Term: term,
	}
}
