// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driverlegacy

import (
	"context"
	"errors"

	"github.com/skrtheboss/mongo-go-driver/mongo/readpref"
	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// CountDocuments runs a count command over query, returning the
// server's reported document count.
func CountDocuments(
	ctx context.Context,
	deployment driver.Deployment,
	database, collection string,
	query bsoncore.Document,
	rp *readpref.ReadPref,
	sess *session.Client,
	clock *session.ClusterClock,
) (int64, error) {
	op := &driver.Operation{
		Database:       database,
		Deployment:     deployment,
		Client:         sess,
		Clock:          clock,
		ReadPreference: rp,
		Aspects:        []driver.Aspect{driver.ReadOperation, driver.Retryable},
		CanRetryRead:   true,
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		elems := bsoncore.AppendStringElement(nil, "count", collection)
		if len(query) > 0 {
			elems = bsoncore.AppendDocumentElement(elems, "query", query)
		}
		return op.CreateWireMessage(desc, bsoncore.BuildDocumentFromElements(nil, elems))
	}

	resp, err := op.Execute(ctx)
	if err != nil {
		return 0, err
	}
	n, ok := lookupInt32(resp, "n")
	if !ok {
		return 0, errors.New("driverlegacy: count response missing n")
	}
	return int64(n), nil
}

func lookupInt32(doc bsoncore.Document, key string) (int32, bool) {
	_, raw, found := bsoncore.Lookup(doc, key)
	if !found || len(raw) < 4 {
		return 0, false
	}
	return int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16 | int32(raw[3])<<24, true
}
