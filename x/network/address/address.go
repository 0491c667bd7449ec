// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package address contains functionality for parsing and handling the
// address of a MongoDB server.
package address

import "strings"

// Address is a network address to a server. It can be a TCP socket
// endpoint or a Unix domain socket path.
type Address string

// Network is the network type for this address. It returns "unix" for a
// path ending in ".sock", otherwise "tcp".
func (a Address) Network() string {
	if strings.HasSuffix(string(a), ".sock") {
		return "unix"
	}
	return "tcp"
}

// String returns the string representation of this address.
func (a Address) String() string { return string(a) }
