package raft

import (
	"errors"
	"fmt"
)

// Raft errors.
var (
	// ErrNotLeader is returned when a client request reaches a non-leader node.
	ErrNotLeader = errors.New("raft: not the leader")

	// ErrNoLeader is returned alongside ErrNotLeader when the node knows no leader.
	ErrNoLeader = errors.New("raft: no known leader")

	// ErrNodeStopped is returned when an operation needs a running node.
	ErrNodeStopped = errors.New("raft: node stopped")

	// ErrNodeRunning is returned when an operation needs a stopped node.
	ErrNodeRunning = errors.New("raft: node running")

	// ErrClusterRunning is returned when reconfiguring while any node runs.
	ErrClusterRunning = errors.New("raft: cluster running")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("raft: invalid configuration")

	// ErrInvalidClusterSize is returned when a cluster has no servers.
	ErrInvalidClusterSize = errors.New("raft: invalid cluster size")

	// ErrAlreadyInitialized is returned when a node's peers are wired twice.
	ErrAlreadyInitialized = errors.New("raft: peers already initialized")

	// ErrUnknownNode is returned when looking up a node id that is not in the cluster.
	ErrUnknownNode = errors.New("raft: unknown node")
)

// NotLeaderError rejects a client request and points at the leader, if known
type NotLeaderError struct {
	Leader string
}

func (e *NotLeaderError) Error() string {
	if e.Leader == "" {
		return fmt.Sprintf("%v: %v", ErrNotLeader, ErrNoLeader)
	}
	return fmt.Sprintf("%v: leader is %s", ErrNotLeader, e.Leader)
}

func (e *NotLeaderError) Is(target error) bool {
	switch target {
	case ErrNotLeader:
		return true
	case ErrNoLeader:
		return e.Leader == ""
	}
	return false
}
