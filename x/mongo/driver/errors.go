// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"fmt"

	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// Error labels. These are the only mechanism by which retryability
// crosses the wire (spec §3 Error).
const (
	NetworkErrorLabel                   = "NetworkError"
	TransientTransactionErrorLabel      = "TransientTransactionError"
	RetryableWriteErrorLabel            = "RetryableWriteError"
	UnknownTransactionCommitResultLabel = "UnknownTransactionCommitResult"
)

// Kind tags an Error with the broad category of failure it represents
// (spec §7).
type Kind uint8

// These are the error kinds the core can surface.
const (
	KindRuntime Kind = iota
	KindInvalidOperation
	KindExpiredSession
	KindCompatibility
	KindTransaction
	KindNetwork
	KindServerError
	KindUnexpectedServerResponse
)

// Error is the tagged error value the core surfaces to callers. Kind
// says what broad category of failure occurred; Code and Message are
// populated for KindServerError; Labels is the set of string labels the
// server (or the core itself) attached, the sole retryability signal
// that crosses process boundaries.
type Error struct {
	Kind    Kind
	Code    int32
	Message string
	Labels  []string
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindExpiredSession:
		return "session was ended"
	case KindCompatibility:
		return "operation incompatible with deployment"
	case KindTransaction:
		return "invalid transaction state"
	case KindUnexpectedServerResponse:
		return "unexpected server response"
	default:
		return "driver error"
	}
}

// HasErrorLabel reports whether label is among e's labels.
func (e Error) HasErrorLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// NetworkError constructs a KindNetwork Error carrying both the network
// and transient-transaction labels, matching the real driver's
// roundTrip behavior (a write failure before any bytes are known to
// have reached the server is always safe to retry/abort).
func NetworkError(message string) Error {
	return Error{
		Kind:    KindNetwork,
		Message: message,
		Labels:  []string{NetworkErrorLabel, TransientTransactionErrorLabel},
	}
}

// ExpiredSessionError constructs the error surfaced when an explicit,
// already-ended session is passed to Execute (spec §4.1 step 2).
func ExpiredSessionError() Error {
	return Error{Kind: KindExpiredSession, Message: "expired session was used"}
}

// CompatibilityError constructs the error surfaced when a session and
// the deployment disagree on a capability (snapshot reads, or session
// support itself — spec §4.1 step 2).
func CompatibilityError(message string) Error {
	return Error{Kind: KindCompatibility, Message: message}
}

// TransactionError constructs the error surfaced by the pre-flight
// transaction/read-preference check (spec §4.2 Pre-flight constraints).
func TransactionError(message string) Error {
	return Error{Kind: KindTransaction, Message: message}
}

// ServerErrorFrom constructs a KindServerError Error, carrying the server's
// numeric code and message.
func ServerErrorFrom(code int32, message string, labels ...string) Error {
	return Error{Kind: KindServerError, Code: code, Message: message, Labels: labels}
}

// UnexpectedServerResponseError constructs the error surfaced when
// retry's re-selected server cannot actually serve the retry (spec
// §4.3 steps 4-5).
func UnexpectedServerResponseError(message string) Error {
	return Error{Kind: KindUnexpectedServerResponse, Message: message}
}

// RuntimeError wraps a non-driver, non-network error (a programmer
// error) so it can still travel as a driver.Error while being
// recognizable as "surface unchanged, never retry" (spec §4.2: "a
// non-error-typed error ... surface unchanged").
func RuntimeError(err error) Error {
	return Error{Kind: KindRuntime, Message: err.Error()}
}

// InvalidOperationError is returned by Operation.Validate when a
// required field was never set.
type InvalidOperationError struct {
	MissingField string
}

// Error implements the error interface.
func (err InvalidOperationError) Error() string {
	return fmt.Sprintf("the %s field must be set on Operation", err.MissingField)
}

// legacyRetryableCodes are server codes, predating the RetryableWriteError
// label, that indicate a write did not durably commit and is safe to
// retry. Consulted only when the failing server's snapshotted max wire
// version is below SupportsOpMsgWireVersion (spec §4.5).
var legacyRetryableCodes = map[int32]bool{
	6:     true, // HostUnreachable
	7:     true, // HostNotFound
	89:    true, // NetworkTimeout
	91:    true, // ShutdownInProgress
	189:   true, // PrimarySteppedDown
	9001:  true, // SocketException
	10107: true, // NotMaster
	11600: true, // InterruptedAtShutdown
	11602: true, // InterruptedDueToReplStateChange
	13435: true, // NotMasterNoSlaveOk
	13436: true, // NotMasterOrSecondary
}

// stateChangeCodes are server codes indicating the topology changed out
// from under a read (stepped-down primary, shutting-down node). A read
// error carrying one of these is always retryable (spec §4.5), with no
// wire-version gate: reads don't carry transaction numbers, so there is
// nothing for an old server to reject.
var stateChangeCodes = map[int32]bool{
	10107: true, // NotMaster
	13435: true, // NotMasterNoSlaveOk
	13436: true, // NotMasterOrSecondary
	11600: true, // InterruptedAtShutdown
	11602: true, // InterruptedDueToReplStateChange
	189:   true, // PrimarySteppedDown
	91:    true, // ShutdownInProgress
}

// IllegalOperationCode is the legacy server code used by pre-3.6
// storage engines to refuse a command carrying a transaction number
// outright (spec §4.3 step 2).
const IllegalOperationCode = 20

// legacyRetryWritesUnsupportedMessage is the exact message the core
// remaps the IllegalOperation/"Transaction numbers" refusal to (spec
// §4.3 step 2, §8 scenario 2).
const legacyRetryWritesUnsupportedMessage = "This MongoDB deployment does not support retryable writes. Please add retryWrites=false to your connection string."

func isRetryableReadError(err error) bool {
	de, ok := err.(Error)
	if !ok {
		return false
	}
	switch de.Kind {
	case KindNetwork:
		return true
	case KindServerError:
		if de.HasErrorLabel(RetryableWriteErrorLabel) {
			return true
		}
		return stateChangeCodes[de.Code]
	default:
		return de.HasErrorLabel(RetryableWriteErrorLabel)
	}
}

func isRetryableWriteError(err error, snapshottedMaxWireVersion int32) bool {
	de, ok := err.(Error)
	if !ok {
		return false
	}
	if de.HasErrorLabel(RetryableWriteErrorLabel) {
		return true
	}
	if de.Kind == KindNetwork {
		return true
	}
	if de.Kind == KindServerError && snapshottedMaxWireVersion < int32(description.SupportsOpMsgWireVersion) {
		return legacyRetryableCodes[de.Code]
	}
	return false
}
