// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driverlegacy

import (
	"context"
	"time"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// DropIndexes runs a dropIndexes command, dropping indexName (or "*"
// for every index but _id) from collection. maxTime of zero omits
// maxTimeMS entirely.
func DropIndexes(
	ctx context.Context,
	deployment driver.Deployment,
	database, collection, indexName string,
	maxTime time.Duration,
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
		elems := bsoncore.AppendStringElement(nil, "dropIndexes", collection)
		elems = bsoncore.AppendStringElement(elems, "index", indexName)
		if maxTime > 0 {
			elems = bsoncore.AppendInt64Element(elems, "maxTimeMS", int64(maxTime/time.Millisecond))
		}
		return op.CreateWireMessage(desc, bsoncore.BuildDocumentFromElements(nil, elems))
	}
	return op.Execute(ctx)
}
