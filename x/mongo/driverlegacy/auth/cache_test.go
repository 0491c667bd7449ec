// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestCredentialCacheHitAndMiss(t *testing.T) {
	c := newCredentialCache()

	sp1, err := c.saltedPassword("pencil", []byte("salt-a"), 4096, sha256.Size, sha256.New)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sp2, err := c.saltedPassword("pencil", []byte("salt-a"), 4096, sha256.Size, sha256.New)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(sp1, sp2) {
		t.Error("expected a cache hit to return the same salted password")
	}
	if len(c.saltedPasswords) != 1 {
		t.Errorf("expected exactly one cache entry, got %d", len(c.saltedPasswords))
	}

	sp3, err := c.saltedPassword("pencil", []byte("salt-b"), 4096, sha256.Size, sha256.New)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(sp1, sp3) {
		t.Error("expected a different salt to produce a different salted password")
	}
	if len(c.saltedPasswords) != 2 {
		t.Errorf("expected a second cache entry after a miss, got %d", len(c.saltedPasswords))
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	k1, err := cacheKey("pencil", []byte("salt"), 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k2, err := cacheKey("pencil", []byte("salt"), 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 != k2 {
		t.Errorf("expected cacheKey to be deterministic, got %q and %q", k1, k2)
	}

	k3, err := cacheKey("pencil", []byte("salt"), 8192)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 == k3 {
		t.Error("expected a different iteration count to change the cache key")
	}
}
