// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"bytes"
	"strconv"
	"testing"
)

func TestCompressorRegistryRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to give the compressor something to chew on")

	for _, id := range []CompressorID{CompressorSnappy, CompressorZstd} {
		t.Run(strconv.Itoa(int(id)), func(t *testing.T) {
			reg, err := NewCompressorRegistry()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			compressed, err := reg.Compress(id, payload)
			if err != nil {
				t.Fatalf("Compress: unexpected error: %v", err)
			}
			decompressed, err := reg.Decompress(id, compressed)
			if err != nil {
				t.Fatalf("Decompress: unexpected error: %v", err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Errorf("got %q; want %q", decompressed, payload)
			}
		})
	}
}

func TestCompressorRegistryNoOp(t *testing.T) {
	reg, err := NewCompressorRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := []byte("uncompressed")

	compressed, err := reg.Compress(CompressorNoOp, payload)
	if err != nil || !bytes.Equal(compressed, payload) {
		t.Fatalf("Compress(NoOp) should be a passthrough, got %q, err %v", compressed, err)
	}
	decompressed, err := reg.Decompress(CompressorNoOp, payload)
	if err != nil || !bytes.Equal(decompressed, payload) {
		t.Fatalf("Decompress(NoOp) should be a passthrough, got %q, err %v", decompressed, err)
	}
}

func TestCompressorRegistryUnsupported(t *testing.T) {
	reg, err := NewCompressorRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Decompress(CompressorZLib, []byte("x")); err == nil {
		t.Error("expected an error for an unregistered compressor id")
	}
}
