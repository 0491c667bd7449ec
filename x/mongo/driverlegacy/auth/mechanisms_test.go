// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	wiremessagex "github.com/skrtheboss/mongo-go-driver/x/mongo/driver/wiremessage"
	. "github.com/skrtheboss/mongo-go-driver/x/mongo/driverlegacy/auth"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
	"github.com/skrtheboss/mongo-go-driver/x/network/wiremessage"
)

// fakeAuthConn scripts a handshake: every WriteWireMessage call decodes
// the outgoing OP_MSG and appends the command document to sent; every
// ReadWireMessage call pops the next scripted response and re-encodes
// it as an OP_MSG, mirroring what a real mongod's reply looks like to
// auth.sendCommand.
type fakeAuthConn struct {
	sent      []bsoncore.Document
	responses []bsoncore.Document
	next      int
}

func (c *fakeAuthConn) WriteWireMessage(_ context.Context, wm []byte) error {
	_, _, _, _, rem, ok := wiremessagex.ReadHeader(wm)
	if !ok {
		return fmt.Errorf("fakeAuthConn: bad header")
	}
	_, rem, ok = wiremessagex.ReadMsgFlags(rem)
	if !ok {
		return fmt.Errorf("fakeAuthConn: bad flags")
	}
	_, rem, ok = wiremessagex.ReadMsgSectionType(rem)
	if !ok {
		return fmt.Errorf("fakeAuthConn: bad section type")
	}
	doc, _, ok := wiremessagex.ReadMsgSectionSingleDocument(rem)
	if !ok {
		return fmt.Errorf("fakeAuthConn: bad section document")
	}
	c.sent = append(c.sent, doc)
	return nil
}

func (c *fakeAuthConn) ReadWireMessage(_ context.Context, dst []byte) ([]byte, error) {
	if c.next >= len(c.responses) {
		return nil, fmt.Errorf("fakeAuthConn: script exhausted")
	}
	resp := c.responses[c.next]
	c.next++

	idx, wm := wiremessagex.AppendHeaderStart(dst, 1, 0, wiremessage.OpMsg)
	wm = wiremessagex.AppendMsgFlags(wm, 0)
	wm = wiremessagex.AppendMsgSectionType(wm, wiremessage.SingleDocument)
	wm = wiremessagex.AppendMsgSectionSingleDocument(wm, resp)
	wm = wiremessagex.UpdateLength(wm, idx, int32(len(wm)))
	return wm, nil
}

func (c *fakeAuthConn) Close() error                    { return nil }
func (c *fakeAuthConn) ID() string                      { return "fakeAuthConn" }
func (c *fakeAuthConn) Description() description.Server { return description.Server{} }

func okResponse(extra ...[]byte) bsoncore.Document {
	elems := append([]byte{}, bsoncore.AppendInt32Element(nil, "ok", 1)...)
	for _, e := range extra {
		elems = append(elems, e...)
	}
	return bsoncore.BuildDocumentFromElements(nil, elems)
}

func errResponse(msg string) bsoncore.Document {
	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, "ok", 0),
		bsoncore.AppendStringElement(nil, "errmsg", msg),
	)
}

func lookupStringElem(t *testing.T, doc bsoncore.Document, key string) string {
	t.Helper()
	_, val, ok := bsoncore.Lookup(doc, key)
	if !ok {
		t.Fatalf("missing %q in %v", key, doc)
	}
	return string(val[4 : len(val)-1])
}

func TestPlainAuthenticator(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{okResponse(bsoncore.AppendBooleanElement(nil, "done", true))}}
		a := &PlainAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		if err := a.Auth(context.Background(), description.Server{}, conn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lookupStringElem(t, conn.sent[0], "mechanism") != "PLAIN" {
			t.Error("expected mechanism:PLAIN")
		}
		wantPayload := "\x00user\x00pencil"
		if got := lookupStringElem(t, conn.sent[0], "payload"); got != wantPayload {
			t.Errorf("payload = %q; want %q", got, wantPayload)
		}
		if lookupStringElem(t, conn.sent[0], "$db") != "admin" {
			t.Error("expected $db to default to admin")
		}
	})

	t.Run("incomplete handshake is an error", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{okResponse()}}
		a := &PlainAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "one round trip") {
			t.Errorf("got %v; want a one-round-trip error", err)
		}
	})

	t.Run("server refusal surfaces the errmsg", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("bad auth")}}
		a := &PlainAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "bad auth") {
			t.Errorf("got %v; want an error mentioning the server's errmsg", err)
		}
	})
}

func TestMongoDBCRAuthenticator(t *testing.T) {
	username, password, nonce := "user", "pencil", "abcd1234"
	digest := md5.Sum([]byte(fmt.Sprintf("%s:mongo:%s", username, password)))
	wantKey := md5.Sum([]byte(nonce + username + hex.EncodeToString(digest[:])))

	t.Run("success computes the expected key", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{
			okResponse(bsoncore.AppendStringElement(nil, "nonce", nonce)),
			okResponse(),
		}}
		a := &MongoDBCRAuthenticator{Cred: &Cred{Username: username, Password: password}}

		if err := a.Auth(context.Background(), description.Server{}, conn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := lookupStringElem(t, conn.sent[1], "key"); got != hex.EncodeToString(wantKey[:]) {
			t.Errorf("key = %q; want %q", got, hex.EncodeToString(wantKey[:]))
		}
		if lookupStringElem(t, conn.sent[1], "nonce") != nonce {
			t.Error("expected the authenticate command to echo the server's nonce")
		}
	})

	t.Run("missing nonce is an error", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{okResponse()}}
		a := &MongoDBCRAuthenticator{Cred: &Cred{Username: username, Password: password}}

		if err := a.Auth(context.Background(), description.Server{}, conn); err == nil {
			t.Error("expected an error when getnonce doesn't return a nonce")
		}
	})
}

func TestMongoDBX509Authenticator(t *testing.T) {
	t.Run("success authenticates against $external with no password", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{okResponse()}}
		a := &MongoDBX509Authenticator{Cred: &Cred{Username: "CN=client,OU=test"}}

		if err := a.Auth(context.Background(), description.Server{}, conn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lookupStringElem(t, conn.sent[0], "$db") != "$external" {
			t.Error("expected $db:$external")
		}
		if lookupStringElem(t, conn.sent[0], "mechanism") != "MONGODB-X509" {
			t.Error("expected mechanism:MONGODB-X509")
		}
	})

	t.Run("server refusal is surfaced", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("not authorized")}}
		a := &MongoDBX509Authenticator{Cred: &Cred{}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "not authorized") {
			t.Errorf("got %v; want an error mentioning not authorized", err)
		}
	})
}

func TestDefaultAuthenticatorNegotiation(t *testing.T) {
	t.Run("pre-4.0 server negotiates SCRAM-SHA-1", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("stop here")}}
		a := &DefaultAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}
		desc := description.Server{WireVersion: &description.VersionRange{Min: 0, Max: 5}}

		_ = a.Auth(context.Background(), desc, conn)
		if lookupStringElem(t, conn.sent[0], "mechanism") != "SCRAM-SHA-1" {
			t.Errorf("mechanism = %q; want SCRAM-SHA-1", lookupStringElem(t, conn.sent[0], "mechanism"))
		}
	})

	t.Run("4.0+ server negotiates SCRAM-SHA-256", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("stop here")}}
		a := &DefaultAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}
		desc := description.Server{WireVersion: &description.VersionRange{Min: 0, Max: 9}}

		_ = a.Auth(context.Background(), desc, conn)
		if lookupStringElem(t, conn.sent[0], "mechanism") != "SCRAM-SHA-256" {
			t.Errorf("mechanism = %q; want SCRAM-SHA-256", lookupStringElem(t, conn.sent[0], "mechanism"))
		}
	})

	t.Run("nil wire version defaults to SCRAM-SHA-256", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("stop here")}}
		a := &DefaultAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		_ = a.Auth(context.Background(), description.Server{}, conn)
		if lookupStringElem(t, conn.sent[0], "mechanism") != "SCRAM-SHA-256" {
			t.Error("expected SCRAM-SHA-256 when WireVersion is unset")
		}
	})
}

func TestScramAuthenticatorErrorPaths(t *testing.T) {
	t.Run("server refuses saslStart", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{errResponse("auth failed")}}
		a := &ScramAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "auth failed") {
			t.Errorf("got %v; want an error mentioning auth failed", err)
		}
	})

	t.Run("saslStart response missing payload", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{okResponse()}}
		a := &ScramAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "missing payload") {
			t.Errorf("got %v; want a missing-payload error", err)
		}
	})

	t.Run("saslStart response missing conversationId", func(t *testing.T) {
		conn := &fakeAuthConn{responses: []bsoncore.Document{
			okResponse(bsoncore.AppendStringElement(nil, "payload", "r=placeholder")),
		}}
		a := &ScramAuthenticator{Cred: &Cred{Username: "user", Password: "pencil"}}

		err := a.Auth(context.Background(), description.Server{}, conn)
		if err == nil || !strings.Contains(err.Error(), "missing conversationId") {
			t.Errorf("got %v; want a missing-conversationId error", err)
		}
	})
}
