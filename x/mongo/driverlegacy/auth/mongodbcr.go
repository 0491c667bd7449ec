// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// MongoDBCRAuthenticator implements the legacy MONGODB-CR mechanism,
// retained for servers predating SCRAM (pre-3.0).
type MongoDBCRAuthenticator struct {
	Cred *Cred
}

func (a *MongoDBCRAuthenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	nonceResp, err := sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, "getnonce", 1),
		bsoncore.AppendStringElement(nil, "$db", a.Cred.dbName()),
	))
	if err != nil {
		return err
	}
	if err := commandOKOrError(nonceResp); err != nil {
		return err
	}
	_, nonceVal, ok := bsoncore.Lookup(nonceResp, "nonce")
	if !ok || len(nonceVal) < 5 {
		return fmt.Errorf("auth: getnonce response missing nonce")
	}
	nonce := string(nonceVal[4 : len(nonceVal)-1])

	digest := md5.Sum([]byte(fmt.Sprintf("%s:mongo:%s", a.Cred.Username, a.Cred.Password)))
	key := md5.Sum([]byte(nonce + a.Cred.Username + hex.EncodeToString(digest[:])))

	resp, err := sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, "authenticate", 1),
		bsoncore.AppendStringElement(nil, "nonce", nonce),
		bsoncore.AppendStringElement(nil, "user", a.Cred.Username),
		bsoncore.AppendStringElement(nil, "key", hex.EncodeToString(key[:])),
		bsoncore.AppendStringElement(nil, "$db", a.Cred.dbName()),
	))
	if err != nil {
		return err
	}
	return commandOKOrError(resp)
}
