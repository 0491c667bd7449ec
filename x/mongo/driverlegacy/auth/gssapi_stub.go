// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

//go:build !gssapi

package auth

import "errors"

// newGSSAPIAuthenticator reports that this build was compiled without
// GSSAPI/Kerberos support. Build with -tags gssapi to enable it.
func newGSSAPIAuthenticator(cred *Cred) (Authenticator, error) {
	return nil, errors.New("auth: GSSAPI mechanism requires the gssapi build tag")
}
