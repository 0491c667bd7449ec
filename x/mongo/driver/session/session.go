// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the Session Pool external collaborator
// (spec §1 Out-of-scope (c)) and the logical-session/transaction state
// the Session Binding component of the Operation Execution Core reads
// and mutates (spec §4.4).
package session

import (
	"errors"
	"sync"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/uuid"
)

// Type records how a Client session came to exist.
type Type uint8

// These are the valid session types.
const (
	Explicit Type = iota
	Implicit
)

// ErrSessionEnded is returned when an ended session is used.
var ErrSessionEnded = errors.New("ended session was used")

// txnState is the lifecycle of a session's current transaction.
type txnState uint8

const (
	txnNone txnState = iota
	txnStarting
	txnInProgress
	txnCommitted
	txnAborted
)

// TransactionState tracks whether a session is presently inside a
// multi-statement transaction and whether that transaction committed.
type TransactionState struct {
	state txnState
}

// Starting reports whether a transaction has been started but not yet
// had a command run against it.
func (ts *TransactionState) Starting() bool { return ts.state == txnStarting }

// InProgress reports whether a transaction is active: started, whether
// or not a command has run against it yet.
func (ts *TransactionState) InProgress() bool { return ts.state == txnStarting || ts.state == txnInProgress }

// IsCommitted reports whether the most recently run transaction on this
// session committed.
func (ts *TransactionState) IsCommitted() bool { return ts.state == txnCommitted }

func (ts *TransactionState) start()  { ts.state = txnStarting }
func (ts *TransactionState) advance() {
	if ts.state == txnStarting {
		ts.state = txnInProgress
	}
}
func (ts *TransactionState) commit() { ts.state = txnCommitted }
func (ts *TransactionState) abort()  { ts.state = txnAborted }

// ClusterClock tracks the highest $clusterTime seen across any server in
// the deployment, so it can be gossiped back out on the next command.
type ClusterClock struct {
	mu          sync.Mutex
	clusterTime bsoncore.Document
}

// GetClusterTime returns the highest clusterTime observed so far.
func (cc *ClusterClock) GetClusterTime() bsoncore.Document {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.clusterTime
}

// AdvanceClusterTime updates the clock if the given clusterTime document
// is newer than what it currently holds.
func (cc *ClusterClock) AdvanceClusterTime(clusterTime bsoncore.Document) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if clusterTimeGreater(clusterTime, cc.clusterTime) {
		cc.clusterTime = clusterTime
	}
}

// clusterTimeGreater reports whether candidate is a strictly greater
// $clusterTime than current. Both are the unwrapped
// {clusterTime: Timestamp, ...} documents found at a response's (or the
// command's own) "$clusterTime" key; a nil current is always exceeded.
func clusterTimeGreater(candidate, current bsoncore.Document) bool {
	if len(candidate) == 0 {
		return false
	}
	if len(current) == 0 {
		return true
	}
	ct, ok := clusterTimestamp(candidate)
	if !ok {
		return false
	}
	cur, ok := clusterTimestamp(current)
	if !ok {
		return true
	}
	if ct.T != cur.T {
		return ct.T > cur.T
	}
	return ct.I > cur.I
}

func clusterTimestamp(doc bsoncore.Document) (Timestamp, bool) {
	_, value, ok := bsoncore.Lookup(doc, "clusterTime")
	if !ok {
		return Timestamp{}, false
	}
	t, i, ok := bsoncore.ReadTimestamp(value)
	if !ok {
		return Timestamp{}, false
	}
	return Timestamp{T: t, I: i}, true
}

// Pool mints fresh session IDs and recycles ended ones, matching the
// external Session Pool subsystem's responsibility (spec §1
// Out-of-scope (c)). The Execution Core never talks to Pool directly;
// it is consumed through Topology.StartSession in the topology package.
type Pool struct {
	clock *ClusterClock

	mu     sync.Mutex
	retired []uuid.UUID
}

// NewPool constructs a session Pool gossiping through the given cluster
// clock (or a fresh one if nil).
func NewPool(clock *ClusterClock) *Pool {
	if clock == nil {
		clock = new(ClusterClock)
	}
	return &Pool{clock: clock}
}

// GetSession returns a recycled session ID if one is available, or
// mints a fresh one.
func (p *Pool) GetSession() (uuid.UUID, error) {
	p.mu.Lock()
	if n := len(p.retired); n > 0 {
		id := p.retired[n-1]
		p.retired = p.retired[:n-1]
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()
	return uuid.New()
}

// ReturnSession recycles a session ID for reuse by a later session.
func (p *Pool) ReturnSession(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retired = append(p.retired, id)
}

// Client is a logical session: the unit of state the Session Binding
// component creates, owns, and tears down (spec §3 Session, §4.4).
type Client struct {
	SessionID uuid.UUID
	ClientType Type

	// owner is set only for implicitly created sessions; it is the
	// Coordinator's own unique token, compared by value (never identity)
	// at teardown so an explicit session that happens to carry the same
	// structure is never accidentally ended.
	owner *uuid.UUID

	pool *Pool

	ended           bool
	snapshotEnabled bool

	txnNumber int64

	PinnedServer string // empty string means "not pinned"
	Transaction  TransactionState

	ClusterTime   bsoncore.Document
	OperationTime *Timestamp

	// Consistent marks a causally-consistent session; used when deciding
	// whether to append afterClusterTime to a starting transaction's
	// read concern.
	Consistent bool

	// CurrentRc/CurrentRp hold the transaction's read concern / read
	// preference while a transaction is starting, overriding whatever
	// the operation itself requested.
	CurrentRc interface{}
	CurrentRp interface{}
}

// Timestamp is a BSON Timestamp value (seconds + an ordinal within that
// second), used for $clusterTime/operationTime bookkeeping.
type Timestamp struct {
	T uint32
	I uint32
}

// NewClientSession starts a new logical session of the given type,
// acquiring a session ID from pool.
func NewClientSession(pool *Pool, owner *uuid.UUID, typ Type) (*Client, error) {
	id, err := pool.GetSession()
	if err != nil {
		return nil, err
	}
	c := &Client{
		SessionID:  id,
		ClientType: typ,
		pool:       pool,
	}
	if typ == Implicit {
		c.owner = owner
	}
	return c, nil
}

// Owner returns the owner token for an implicitly created session, or
// nil for an explicit one.
func (c *Client) Owner() *uuid.UUID { return c.owner }

// OwnedBy reports whether this session was implicitly created with the
// given owner token. A nil token never matches, so teardown code cannot
// accidentally end a session by comparing two unset owners.
func (c *Client) OwnedBy(owner *uuid.UUID) bool {
	return c.owner != nil && owner != nil && *c.owner == *owner
}

// Ended reports whether EndSession has already been called.
func (c *Client) Ended() bool { return c.ended }

// EndSession marks the session ended and returns its ID to the pool. It
// is the core's responsibility to call this exactly once for every
// implicitly created session, on every exit path (spec §4.1 step 4,
// invariant 4).
func (c *Client) EndSession() {
	if c.ended {
		return
	}
	c.ended = true
	if c.pool != nil {
		c.pool.ReturnSession(c.SessionID)
	}
}

// SetSnapshotEnabled marks this session as requiring snapshot reads.
func (c *Client) SetSnapshotEnabled() { c.snapshotEnabled = true }

// SnapshotEnabled reports whether this session requires snapshot reads.
func (c *Client) SnapshotEnabled() bool { return c.snapshotEnabled }

// TransactionInProgress reports whether a transaction is currently
// running on this session (starting or already advanced).
func (c *Client) TransactionInProgress() bool { return c.Transaction.InProgress() }

// TransactionStarting reports whether a transaction has been started
// but no command has yet run against it.
func (c *Client) TransactionStarting() bool { return c.Transaction.Starting() }

// TransactionRunning reports whether this session is presently inside a
// transaction, in any state short of committed/aborted.
func (c *Client) TransactionRunning() bool { return c.Transaction.InProgress() }

// TransactionCommitted reports whether the session's transaction
// committed.
func (c *Client) TransactionCommitted() bool { return c.Transaction.IsCommitted() }

// StartTransaction begins a new transaction on this session. opts is
// accepted (and ignored beyond nil-checking) to mirror the real
// driver's TransactionOptions parameter; transaction option handling is
// outside the Execution Core's scope.
func (c *Client) StartTransaction(opts interface{}) error {
	if c.ended {
		return ErrSessionEnded
	}
	c.IncrementTxnNumber()
	c.Transaction.start()
	return nil
}

// ApplyCommand advances a starting transaction to in-progress once a
// command has actually been sent, and optionally pins the session to
// the server the command ran against (sharded transactions pin to their
// first server, per spec §4.4 Pinning). addr is the empty string when
// pinning does not apply (e.g. an unsharded replica set transaction).
func (c *Client) ApplyCommand(addr string) {
	if c.Transaction.Starting() && addr != "" {
		c.PinnedServer = addr
	}
	c.Transaction.advance()
}

// CommitTransaction marks the running transaction committed. Per spec
// §4.4 Pinning, the session itself stays pinned until a *subsequent*
// operation observes the commit (lazy unpin) — CommitTransaction does
// not clear PinnedServer.
func (c *Client) CommitTransaction() { c.Transaction.commit() }

// AbortTransaction marks the running transaction aborted and clears the
// pin immediately; there is no further operation expected to observe an
// aborted transaction's pin.
func (c *Client) AbortTransaction() {
	c.Transaction.abort()
	c.Unpin()
}

// Pin pins this session to a server address, used when a sharded
// transaction starts.
func (c *Client) Pin(addr string) { c.PinnedServer = addr }

// Unpin clears this session's pinned server.
func (c *Client) Unpin() { c.PinnedServer = "" }

// IncrementTxnNumber advances this session's transaction number by one.
// It must be called exactly once per retryable write attempt pair (spec
// §3 Session invariant, §4.4 Transaction numbers) and is never
// decremented on failure.
func (c *Client) IncrementTxnNumber() { c.txnNumber++ }

// TxnNumber returns the session's current transaction number.
func (c *Client) TxnNumber() int64 { return c.txnNumber }

// AdvanceClusterTime merges clusterTime into both this session's and
// the pool-wide cluster clock, whichever is newer.
func (c *Client) AdvanceClusterTime(clusterTime bsoncore.Document) error {
	if clusterTimeGreater(clusterTime, c.ClusterTime) {
		c.ClusterTime = clusterTime
	}
	if c.pool != nil {
		c.pool.clock.AdvanceClusterTime(clusterTime)
	}
	return nil
}

// AdvanceOperationTime records the latest operationTime observed from a
// server response, used for causal consistency.
func (c *Client) AdvanceOperationTime(ts *Timestamp) {
	if ts == nil {
		return
	}
	if c.OperationTime == nil || ts.T > c.OperationTime.T ||
		(ts.T == c.OperationTime.T && ts.I > c.OperationTime.I) {
		c.OperationTime = ts
	}
}
