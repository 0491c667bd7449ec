// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"strings"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// RetryType says which half of the single-retry state machine (spec
// §4.3) an Operation is armed for, if any.
type RetryType uint8

// These are the retry types the Retry Policy arms.
const (
	RetryNone RetryType = iota
	RetryWrite
	RetryRead
)

// retryable computes the two retry gates from spec §4.2:
//
//	willRetryRead  ≡ deployment.RetryReads() ≠ false ∧ not-in-transaction ∧
//	                 server wire-version ≥ SUPPORTS_OP_MSG ∧ op.CanRetryRead
//	willRetryWrite ≡ deployment.RetryWrites() = true ∧ not-in-transaction ∧
//	                 server advertises retryable writes ∧ op.CanRetryWrite
//
// Open question (spec §9): the asymmetry between reads defaulting on
// (opt-out, "≠ false") and writes defaulting off (opt-in, "= true") is
// intentional and preserved exactly as observed; it is not "fixed" here.
func (op Operation) retryable(desc description.Server) RetryType {
	if op.Deployment == nil || !op.aspectSet().has(Retryable) {
		return RetryNone
	}
	inTransaction := op.Client != nil && op.Client.TransactionRunning()
	if inTransaction {
		return RetryNone
	}

	if op.aspectSet().has(WriteOperation) {
		if op.Deployment.RetryWrites() != true {
			return RetryNone
		}
		if !desc.SupportsRetryWrites() {
			return RetryNone
		}
		if !op.CanRetryWrite {
			return RetryNone
		}
		return RetryWrite
	}

	if op.aspectSet().has(ReadOperation) {
		if op.Deployment.RetryReads() == false {
			return RetryNone
		}
		if desc.WireVersion == nil || desc.WireVersion.Max < WireVersionSupportsOpMsg {
			return RetryNone
		}
		if !op.CanRetryRead {
			return RetryNone
		}
		return RetryRead
	}

	return RetryNone
}

// retryResult carries the outcome of the Retry Policy's one allowed
// second attempt (spec §4.3).
type retryResult struct {
	response bsoncore.Document
	server   Server
	err      error
}

// retry implements the Retry Policy (spec §4.3). It is called with the
// error from a first attempt that failed while a retry was armed, plus
// the max wire version snapshotted immediately before that attempt (the
// server may have since been marked Unknown by the very error being
// observed, spec invariant 6).
func (op *Operation) retry(
	ctx context.Context,
	retryType RetryType,
	originalErr error,
	snapshottedMaxWireVersion int32,
	selector description.ServerSelector,
) retryResult {
	// Step 1: legacy storage-engine remap. This fires independent of
	// retryability: a pre-3.6 storage engine's outright refusal of a
	// transaction number is never retryable, but it still needs to
	// reach the caller as the canonical message, not the original
	// IllegalOperation error (spec invariant 7, §8 scenario 2).
	if retryType == RetryWrite {
		if de, ok := originalErr.(Error); ok && de.Kind == KindServerError &&
			de.Code == IllegalOperationCode && strings.Contains(de.Message, "Transaction numbers") {
			return retryResult{err: Error{Kind: KindServerError, Code: de.Code, Message: legacyRetryWritesUnsupportedMessage}}
		}
	}

	// Step 2: retryability check.
	retryable := false
	switch retryType {
	case RetryWrite:
		retryable = isRetryableWriteError(originalErr, snapshottedMaxWireVersion)
	case RetryRead:
		retryable = isRetryableReadError(originalErr)
	}
	if !retryable {
		return retryResult{err: originalErr}
	}

	// Step 3: cursor-create on network error forces an unpin so the
	// retry can land on a new connection.
	if de, ok := originalErr.(Error); ok && de.Kind == KindNetwork &&
		op.Client != nil && op.Client.PinnedServer != "" && !op.Client.TransactionRunning() &&
		op.aspectSet().has(CursorCreating) {
		op.Client.Unpin()
		// Only the session's pin is cleared here. The pool of the
		// previously pinned server is not cleared on this path, and
		// Deployment.SelectServer does not clear it either.
	}

	// Step 4: re-select.
	server, err := op.Deployment.SelectServer(ctx, selector)
	if err != nil {
		return retryResult{err: err}
	}
	if server == nil {
		return retryResult{err: UnexpectedServerResponseError("Server selection failed without error")}
	}

	// Step 5: wire-version recheck.
	desc := server.Description()
	switch retryType {
	case RetryRead:
		if desc.WireVersion == nil || desc.WireVersion.Max < WireVersionSupportsOpMsg {
			return retryResult{err: UnexpectedServerResponseError("re-selected server does not support retryable reads")}
		}
	case RetryWrite:
		if !desc.SupportsRetryWrites() {
			return retryResult{err: UnexpectedServerResponseError("re-selected server does not support retryable writes")}
		}
	}

	// Step 6: second attempt. Its outcome, success or failure, is
	// surfaced directly — there is no third try.
	resp, err := op.attempt(ctx, server, desc)
	return retryResult{response: resp, server: server, err: err}
}
