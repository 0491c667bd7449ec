// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"errors"

	"github.com/skrtheboss/mongo-go-driver/mongo/readconcern"
	"github.com/skrtheboss/mongo-go-driver/mongo/readpref"
	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	wiremessagex "github.com/skrtheboss/mongo-go-driver/x/mongo/driver/wiremessage"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
	"github.com/skrtheboss/mongo-go-driver/x/network/wiremessage"
)

// CreateWireMessage assembles a complete OP_MSG wire message for a
// command whose body is cmd plus the operation's readConcern/
// writeConcern/$clusterTime/$readPreference/$db. It is the one entry
// point a concrete operation's CommandFn needs: every command this
// driver sends shares this envelope, only the command's own elements
// differ (spec §1 Out-of-scope (d): the command body itself is a
// named-operation concern, not the Execution Core's).
func (op Operation) CreateWireMessage(desc description.SelectedServer, cmd bsoncore.Document) ([]byte, error) {
	var dst []byte
	if len(cmd) > 4 {
		dst = append(dst, cmd[4:len(cmd)-1]...) // strip cmd's own length prefix/terminator
	}

	dst, err := op.addReadConcern(dst, desc)
	if err != nil {
		return nil, err
	}
	dst, err = op.addWriteConcern(dst)
	if err != nil {
		return nil, err
	}
	dst = op.addClusterTime(dst, desc)

	if rp := op.createReadPref(desc.Server.Kind, desc.Kind, false); rp != nil {
		dst = bsoncore.AppendDocumentElement(dst, "$readPreference", rp)
	}
	dst = bsoncore.AppendStringElement(dst, "$db", op.Database)

	payload := bsoncore.BuildDocumentFromElements(nil, dst)

	idx, wm := wiremessagex.AppendHeaderStart(nil, 1, 0, wiremessage.OpMsg)
	wm = wiremessagex.AppendMsgFlags(wm, 0)
	wm = wiremessagex.AppendMsgSectionType(wm, wiremessage.SingleDocument)
	wm = wiremessagex.AppendMsgSectionSingleDocument(wm, payload)
	wm = wiremessagex.UpdateLength(wm, idx, int32(len(wm)))
	return wm, nil
}

// CommandOperation runs a caller-supplied, already-built command
// document against a Deployment, handling envelope concerns
// (readConcern/$clusterTime/$db) through Operation itself. It has no
// write concern setting and sends no writeConcern. It exists for
// callers that don't need a dedicated operation type; the driverlegacy
// dispatchers build their own Operation instead of using it.
type CommandOperation struct {
	Command        bsoncore.Document
	ReadConcern    *readconcern.ReadConcern
	Database       string
	Deployment     Deployment
	Selector       description.ServerSelector
	ReadPreference *readpref.ReadPref
	Clock          *session.ClusterClock
	Client         *session.Client

	result bsoncore.Document
}

// Result returns the result of executing this operation.
func (co *CommandOperation) Result() bsoncore.Document { return co.result }

func (co *CommandOperation) processResponse(response bsoncore.Document, _ Server, _ description.SelectedServer) error {
	co.result = response
	return nil
}

// Execute runs this command operation.
func (co *CommandOperation) Execute(ctx context.Context) error {
	if co.Deployment == nil {
		return errors.New("a CommandOperation must have a Deployment set before Execute can be called")
	}
	if co.Database == "" {
		return errors.New("Database must be of non-zero length")
	}

	op := &Operation{
		Deployment:        co.Deployment,
		Database:          co.Database,
		ProcessResponseFn: co.processResponse,
		Selector:          co.Selector,
		ReadPreference:    co.ReadPreference,
		ReadConcern:       co.ReadConcern,
		Client:            co.Client,
		Clock:             co.Clock,
	}
	op.CommandFn = func(dst []byte, desc description.SelectedServer) ([]byte, error) {
		return op.CreateWireMessage(desc, co.Command)
	}
	_, err := op.Execute(ctx)
	return err
}
