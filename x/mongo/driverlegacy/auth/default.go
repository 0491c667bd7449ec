// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// DefaultAuthenticator negotiates SCRAM-SHA-256, falling back to
// SCRAM-SHA-1 for servers whose max wire version is below 7 (pre-4.0
// deployments). The choice is made from the wire version alone, not from
// the mechanisms a server advertises; a server with no known wire
// version gets SCRAM-SHA-256.
type DefaultAuthenticator struct {
	Cred *Cred
}

func (a *DefaultAuthenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	mechanism := "SCRAM-SHA-256"
	if desc.WireVersion != nil && desc.WireVersion.Max < description.ReplicaSetTransactionsWireVersion {
		mechanism = "SCRAM-SHA-1"
	}
	return (&ScramAuthenticator{Cred: a.Cred, mechanism: mechanism}).Auth(ctx, desc, conn)
}
