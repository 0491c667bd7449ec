// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package writeconcern defines write concern levels for a command.
package writeconcern

import "github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"

// WriteConcern describes the level of acknowledgement requested from
// MongoDB for write operations.
type WriteConcern struct {
	w int
	wMajority bool
	wTagSet   string
}

// Option configures a WriteConcern.
type Option func(*WriteConcern)

// New constructs a WriteConcern from the given options.
func New(opts ...Option) *WriteConcern {
	wc := &WriteConcern{w: 1}
	for _, opt := range opts {
		opt(wc)
	}
	return wc
}

// W requests acknowledgement from w nodes.
func W(w int) Option {
	return func(wc *WriteConcern) { wc.w = w }
}

// WMajority requests acknowledgement from a majority of voting nodes.
func WMajority() Option {
	return func(wc *WriteConcern) { wc.wMajority = true }
}

// Acknowledged reports whether this write concern requests any
// acknowledgement at all.
func (wc *WriteConcern) Acknowledged() bool {
	return wc == nil || wc.wMajority || wc.w != 0
}

// AckWrite reports whether wc requests write acknowledgement. A nil
// WriteConcern is acknowledged by default.
func AckWrite(wc *WriteConcern) bool {
	if wc == nil {
		return true
	}
	return wc.Acknowledged()
}

// MarshalBSONValue implements encoding for a writeConcern document element.
func (wc *WriteConcern) MarshalBSONValue() (bsoncore.Document, error) {
	if wc == nil {
		return nil, nil
	}
	var elems [][]byte
	switch {
	case wc.wMajority:
		elems = append(elems, bsoncore.AppendStringElement(nil, "w", "majority"))
	case wc.w != 1:
		elems = append(elems, bsoncore.AppendInt32Element(nil, "w", int32(wc.w)))
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return bsoncore.BuildDocumentFromElements(nil, elems...), nil
}
