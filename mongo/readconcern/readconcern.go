// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package readconcern defines read concern levels for a command.
package readconcern

import "github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"

// ReadConcern represents a MongoDB read concern, which allows clients to
// choose a level of isolation for their reads.
type ReadConcern struct {
	level string
}

// New constructs a ReadConcern with a default, unset level; use Level
// options to set one.
func New(opts ...Option) *ReadConcern {
	rc := &ReadConcern{}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Option configures a ReadConcern.
type Option func(*ReadConcern)

// Level sets the read concern level explicitly.
func Level(level string) Option {
	return func(rc *ReadConcern) { rc.level = level }
}

// Majority constructs a "majority" read concern.
func Majority() *ReadConcern { return New(Level("majority")) }

// Local constructs a "local" read concern.
func Local() *ReadConcern { return New(Level("local")) }

// Snapshot constructs a "snapshot" read concern, used for snapshot reads
// within a session.
func Snapshot() *ReadConcern { return New(Level("snapshot")) }

// MarshalBSONValue implements encoding for a readConcern document element.
func (rc *ReadConcern) MarshalBSONValue() (bsoncore.Document, error) {
	if rc == nil || rc.level == "" {
		return nil, nil
	}
	return bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "level", rc.level)), nil
}
