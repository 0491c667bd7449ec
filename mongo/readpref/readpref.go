// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package readpref defines read preference modes for a command.
package readpref

import "time"

// Mode represents a read preference mode indicating which servers
// should be considered for an operation.
type Mode uint8

// These constants are the available read preference modes.
const (
	_ Mode = iota
	PrimaryMode
	PrimaryPreferredMode
	SecondaryMode
	SecondaryPreferredMode
	NearestMode
)

// ReadPref determines which servers are considered suitable for read
// operations.
type ReadPref struct {
	mode        Mode
	tagSets     []map[string]string
	maxStaleness time.Duration
}

// New creates a new ReadPref with the given mode.
func New(mode Mode, opts ...Option) *ReadPref {
	rp := &ReadPref{mode: mode}
	for _, opt := range opts {
		opt(rp)
	}
	return rp
}

// Option configures a ReadPref.
type Option func(*ReadPref)

// WithTags sets a tag set from alternating key/value pairs.
func WithTags(tags ...string) Option {
	return func(rp *ReadPref) {
		set := make(map[string]string, len(tags)/2)
		for i := 0; i+1 < len(tags); i += 2 {
			set[tags[i]] = tags[i+1]
		}
		rp.tagSets = append(rp.tagSets, set)
	}
}

// WithMaxStaleness sets the maximum replication lag tolerated for reads
// from a secondary.
func WithMaxStaleness(d time.Duration) Option {
	return func(rp *ReadPref) { rp.maxStaleness = d }
}

// Mode returns the mode of this read preference.
func (r *ReadPref) Mode() Mode { return r.mode }

// TagSets returns the tag sets for this read preference.
func (r *ReadPref) TagSets() []map[string]string { return r.tagSets }

// MaxStaleness returns the configured max staleness, or zero if unset.
func (r *ReadPref) MaxStaleness() time.Duration { return r.maxStaleness }

// Primary constructs a read preference with a PrimaryMode.
func Primary() *ReadPref { return &ReadPref{mode: PrimaryMode} }

// PrimaryPreferred constructs a read preference with a PrimaryPreferredMode.
func PrimaryPreferred(opts ...Option) *ReadPref { return New(PrimaryPreferredMode, opts...) }

// SecondaryPreferred constructs a read preference with a SecondaryPreferredMode.
func SecondaryPreferred(opts ...Option) *ReadPref { return New(SecondaryPreferredMode, opts...) }

// Secondary constructs a read preference with a SecondaryMode.
func Secondary(opts ...Option) *ReadPref { return New(SecondaryMode, opts...) }

// Nearest constructs a read preference with a NearestMode.
func Nearest(opts ...Option) *ReadPref { return New(NearestMode, opts...) }
