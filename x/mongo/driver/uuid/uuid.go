// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package uuid provides a minimal wrapper for generating process-unique
// identifiers, used both for logical session IDs and for the Session
// Binding component's implicit-session "owner" tag (spec §9: "Any
// unique-value generator (UUID, atomic counter, fresh allocation)
// works").
package uuid

import "github.com/google/uuid"

// UUID is a 16-byte universally unique identifier.
type UUID [16]byte

// New generates a new random (version 4) UUID.
func New() (UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return UUID{}, err
	}
	var u UUID
	copy(u[:], id[:])
	return u, nil
}

// String returns the canonical string form of the UUID.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}
