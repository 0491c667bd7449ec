// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driverlegacy

import (
	"context"
	"errors"

	"github.com/skrtheboss/mongo-go-driver/mongo/writeconcern"
	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// ErrUnacknowledgedWrite is returned instead of a response when a
// caller asks for an unacknowledged write: there is no server response
// to wait for, so the command is fired and the caller moves on.
var ErrUnacknowledgedWrite = errors.New("driverlegacy: write is unacknowledged, no result available")

// Write runs a write command's elements against the provided
// deployment. retryable marks it eligible for the Execution Core's
// single-retry state machine (spec §4.3); a caller fires this for
// idempotent writes only.
func Write(
	ctx context.Context,
	deployment driver.Deployment,
	database string,
	cmdElems bsoncore.Document,
	wc *writeconcern.WriteConcern,
	retryable bool,
	sess *session.Client,
	clock *session.ClusterClock,
) (bsoncore.Document, error) {
	aspects := []driver.Aspect{driver.WriteOperation}
	if retryable {
		aspects = append(aspects, driver.Retryable)
	}

	op := &driver.Operation{
		Database:      database,
		Deployment:    deployment,
		Client:        sess,
		Clock:         clock,
		WriteConcern:  wc,
		Aspects:       aspects,
		CanRetryWrite: retryable,
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		return op.CreateWireMessage(desc, cmdElems)
	}

	if !writeconcern.AckWrite(wc) {
		go func() {
			defer func() { _ = recover() }()
			_, _ = op.Execute(ctx)
		}()
		return nil, ErrUnacknowledgedWrite
	}

	return op.Execute(ctx)
}
