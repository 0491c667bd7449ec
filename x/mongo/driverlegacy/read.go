// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driverlegacy

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/mongo/readconcern"
	"github.com/skrtheboss/mongo-go-driver/mongo/readpref"
	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// Read runs a read command's elements against the provided deployment.
// The transaction-read-preference pre-flight check and retryable-read
// state machine both live in Operation.Execute itself; this dispatcher
// only shapes the command and marks it retryable.
func Read(
	ctx context.Context,
	deployment driver.Deployment,
	database string,
	cmdElems bsoncore.Document,
	rp *readpref.ReadPref,
	rc *readconcern.ReadConcern,
	sess *session.Client,
	clock *session.ClusterClock,
) (bsoncore.Document, error) {
	op := &driver.Operation{
		Database:       database,
		Deployment:     deployment,
		Client:         sess,
		Clock:          clock,
		ReadPreference: rp,
		ReadConcern:    rc,
		Aspects:        []driver.Aspect{driver.ReadOperation, driver.Retryable},
		CanRetryRead:   true,
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		return op.CreateWireMessage(desc, cmdElems)
	}
	return op.Execute(ctx)
}
