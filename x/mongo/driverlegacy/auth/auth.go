// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package auth implements the authentication mechanisms run during a
// Topology connection's handshake. This is a Topology-owned concern
// (spec §1 Out-of-scope (c)); the Execution Core never calls into it.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	wiremessagex "github.com/skrtheboss/mongo-go-driver/x/mongo/driver/wiremessage"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
	"github.com/skrtheboss/mongo-go-driver/x/network/wiremessage"
)

// Cred holds the credentials and mechanism properties a handshake
// authenticates with.
type Cred struct {
	Source      string
	Username    string
	Password    string
	PasswordSet bool
	Props       map[string]string
}

// Authenticator authenticates a connection against a server as part of
// its handshake.
type Authenticator interface {
	Auth(ctx context.Context, desc description.Server, conn driver.Connection) error
}

// CreateAuthenticator constructs the Authenticator for the named
// mechanism. An empty name selects the default (SCRAM negotiated)
// mechanism.
func CreateAuthenticator(name string, cred *Cred) (Authenticator, error) {
	switch name {
	case "":
		return &DefaultAuthenticator{Cred: cred}, nil
	case "SCRAM-SHA-1":
		return &ScramAuthenticator{Cred: cred, mechanism: "SCRAM-SHA-1"}, nil
	case "SCRAM-SHA-256":
		return &ScramAuthenticator{Cred: cred, mechanism: "SCRAM-SHA-256"}, nil
	case "MONGODB-CR":
		return &MongoDBCRAuthenticator{Cred: cred}, nil
	case "PLAIN":
		return &PlainAuthenticator{Cred: cred}, nil
	case "MONGODB-X509":
		return &MongoDBX509Authenticator{Cred: cred}, nil
	case "GSSAPI":
		return newGSSAPIAuthenticator(cred)
	default:
		return nil, fmt.Errorf("unknown authenticator mechanism %q", name)
	}
}

// dbName returns the credential's source database, defaulting to admin.
func (c *Cred) dbName() string {
	if c == nil || c.Source == "" {
		return "admin"
	}
	return c.Source
}

// sendCommand wraps payload in an OP_MSG and returns the server's
// response document, over an already-established connection.
func sendCommand(ctx context.Context, conn driver.Connection, payload bsoncore.Document) (bsoncore.Document, error) {
	idx, dst := wiremessagex.AppendHeaderStart(nil, 1, 0, wiremessage.OpMsg)
	dst = wiremessagex.AppendMsgFlags(dst, 0)
	dst = wiremessagex.AppendMsgSectionType(dst, wiremessage.SingleDocument)
	dst = wiremessagex.AppendMsgSectionSingleDocument(dst, payload)
	dst = wiremessagex.UpdateLength(dst, idx, int32(len(dst)))

	if err := conn.WriteWireMessage(ctx, dst); err != nil {
		return nil, err
	}
	res, err := conn.ReadWireMessage(ctx, nil)
	if err != nil {
		return nil, err
	}

	_, _, _, _, rest, ok := wiremessagex.ReadHeader(res)
	if !ok {
		return nil, errors.New("auth: malformed response header")
	}
	_, rest, ok = wiremessagex.ReadMsgFlags(rest)
	if !ok {
		return nil, errors.New("auth: malformed response flags")
	}
	stype, rest, ok := wiremessagex.ReadMsgSectionType(rest)
	if !ok || stype != wiremessage.SingleDocument {
		return nil, errors.New("auth: unexpected response section type")
	}
	doc, _, ok := wiremessagex.ReadMsgSectionSingleDocument(rest)
	if !ok {
		return nil, errors.New("auth: malformed response document")
	}
	return doc, nil
}

func lookupBool(doc bsoncore.Document, key string) (value, ok bool) {
	_, raw, found := bsoncore.Lookup(doc, key)
	if !found || len(raw) < 1 {
		return false, false
	}
	return raw[0] != 0x00, true
}

func lookupInt32(doc bsoncore.Document, key string) (int32, bool) {
	_, raw, found := bsoncore.Lookup(doc, key)
	if !found || len(raw) < 4 {
		return 0, false
	}
	return int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16 | int32(raw[3])<<24, true
}

func commandOKOrError(resp bsoncore.Document) error {
	ok, found := lookupBool(resp, "ok")
	if found && !ok {
		_, msg, _ := bsoncore.Lookup(resp, "errmsg")
		return fmt.Errorf("auth: server refused command: %s", string(msg))
	}
	if _, value, found := bsoncore.Lookup(resp, "ok"); found {
		// ok is sometimes a numeric (double/int32) 1, not a boolean; a
		// present-but-zero numeric value is still a failure.
		allZero := true
		for _, b := range value {
			if b != 0x00 {
				allZero = false
				break
			}
		}
		if allZero {
			_, msg, _ := bsoncore.Lookup(resp, "errmsg")
			return fmt.Errorf("auth: server refused command: %s", string(msg))
		}
	}
	return nil
}
