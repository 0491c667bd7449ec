// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driverlegacy

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// ListDatabases runs a listDatabases command against the admin
// database, optionally restricting the response to names only.
func ListDatabases(
	ctx context.Context,
	deployment driver.Deployment,
	nameOnly bool,
	sess *session.Client,
	clock *session.ClusterClock,
) (bsoncore.Document, error) {
	op := &driver.Operation{
		Database:   "admin",
		Deployment: deployment,
		Client:     sess,
		Clock:      clock,
		Aspects:    []driver.Aspect{driver.ReadOperation, driver.Retryable},
		CanRetryRead: true,
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		return op.CreateWireMessage(desc, bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendInt32Element(nil, "listDatabases", 1),
			bsoncore.AppendBooleanElement(nil, "nameOnly", nameOnly),
		))
	}
	return op.Execute(ctx)
}
