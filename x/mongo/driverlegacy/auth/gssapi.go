// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

//go:build gssapi

package auth

import (
	"context"
	"errors"

	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// GSSAPIAuthenticator is the GSSAPI (Kerberos) mechanism. Only available
// when built with -tags gssapi; it links no Kerberos library and runs no
// GSSAPI exchange.
type GSSAPIAuthenticator struct {
	Username    string
	Password    string
	PasswordSet bool
	Props       map[string]string
}

func newGSSAPIAuthenticator(cred *Cred) (Authenticator, error) {
	return &GSSAPIAuthenticator{
		Username:    cred.Username,
		Password:    cred.Password,
		PasswordSet: cred.PasswordSet,
		Props:       cred.Props,
	}, nil
}

// Auth validates mechanism properties and then returns a
// not-implemented error; no SASL GSSAPI exchange is run.
// CANONICALIZE_HOST_NAME and SERVICE_HOST are mutually exclusive.
func (a *GSSAPIAuthenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	if a.Props["CANONICALIZE_HOST_NAME"] != "" && a.Props["SERVICE_HOST"] != "" {
		return errors.New("auth: CANONICALIZE_HOST_NAME and SERVICE_HOST cannot both be set")
	}
	return errors.New("auth: GSSAPI mechanism is not implemented by this build")
}
