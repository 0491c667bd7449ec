// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// MongoDBX509Authenticator implements the MONGODB-X509 mechanism: the
// client's identity is the Subject DN of the certificate already
// presented during the TLS handshake, so the command carries no secret.
type MongoDBX509Authenticator struct {
	Cred *Cred
}

func (a *MongoDBX509Authenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	elems := []byte{}
	elems = append(elems, bsoncore.AppendInt32Element(nil, "authenticate", 1)...)
	elems = append(elems, bsoncore.AppendStringElement(nil, "mechanism", "MONGODB-X509")...)
	if a.Cred.Username != "" {
		elems = append(elems, bsoncore.AppendStringElement(nil, "user", a.Cred.Username)...)
	}
	elems = append(elems, bsoncore.AppendStringElement(nil, "$db", "$external")...)

	resp, err := sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil, elems))
	if err != nil {
		return err
	}
	return commandOKOrError(resp)
}
