// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driverlegacy holds small, concrete operations built on top of
// the Execution Core (x/mongo/driver), one per command shape a caller
// needs. Session acquisition, retry, and server selection are entirely
// Operation.Execute's concern; these dispatchers only shape the command
// document and pick the right Aspects.
package driverlegacy

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// DropCollection runs a drop command against the provided
// deployment. sess may be nil, in which case Execute starts and ends an
// implicit session for the single call.
func DropCollection(
	ctx context.Context,
	deployment driver.Deployment,
	database, collection string,
	sess *session.Client,
	clock *session.ClusterClock,
) (bsoncore.Document, error) {
	op := &driver.Operation{
		Database:   database,
		Deployment: deployment,
		Client:     sess,
		Clock:      clock,
		Aspects:    []driver.Aspect{driver.WriteOperation},
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		return op.CreateWireMessage(desc, bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendStringElement(nil, "drop", collection),
		))
	}
	return op.Execute(ctx)
}
