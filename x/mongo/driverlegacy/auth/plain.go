// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"
	"fmt"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// PlainAuthenticator implements the PLAIN (LDAP proxy) mechanism: a
// single saslStart carrying the full SASL PLAIN payload, answered with
// done=true.
type PlainAuthenticator struct {
	Cred *Cred
}

func (a *PlainAuthenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	payload := fmt.Sprintf("\x00%s\x00%s", a.Cred.Username, a.Cred.Password)

	resp, err := sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, "saslStart", 1),
		bsoncore.AppendStringElement(nil, "mechanism", "PLAIN"),
		bsoncore.AppendStringElement(nil, "payload", payload),
		bsoncore.AppendStringElement(nil, "$db", a.Cred.dbName()),
	))
	if err != nil {
		return err
	}
	if err := commandOKOrError(resp); err != nil {
		return err
	}
	if done, ok := lookupBool(resp, "done"); !ok || !done {
		return fmt.Errorf("auth: PLAIN handshake did not complete in one round trip")
	}
	return nil
}
