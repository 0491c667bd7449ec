// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"bytes"
	"testing"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/network/wiremessage"
)

func TestHeaderRoundTrip(t *testing.T) {
	idx, dst := AppendHeaderStart(nil, 42, 7, wiremessage.OpMsg)
	dst = append(dst, 0x01, 0x02, 0x03)
	dst = UpdateLength(dst, idx, int32(len(dst)))

	length, reqID, respTo, opcode, rem, ok := ReadHeader(dst)
	if !ok {
		t.Fatal("expected header to parse")
	}
	if length != int32(len(dst)) {
		t.Errorf("length = %d; want %d", length, len(dst))
	}
	if reqID != 42 {
		t.Errorf("reqID = %d; want 42", reqID)
	}
	if respTo != 7 {
		t.Errorf("respTo = %d; want 7", respTo)
	}
	if opcode != wiremessage.OpMsg {
		t.Errorf("opcode = %v; want %v", opcode, wiremessage.OpMsg)
	}
	if !bytes.Equal(rem, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("remaining = %v; want [1 2 3]", rem)
	}
}

func TestReadHeaderTooShort(t *testing.T) {
	_, _, _, _, _, ok := ReadHeader([]byte{0x01, 0x02})
	if ok {
		t.Error("expected ReadHeader to reject a too-short buffer")
	}
}

func TestMsgFlagsRoundTrip(t *testing.T) {
	dst := AppendMsgFlags(nil, wiremessage.ChecksumPresent|wiremessage.MoreToCome)
	got, rem, ok := ReadMsgFlags(dst)
	if !ok {
		t.Fatal("expected flags to parse")
	}
	if got != wiremessage.ChecksumPresent|wiremessage.MoreToCome {
		t.Errorf("got %v; want ChecksumPresent|MoreToCome", got)
	}
	if len(rem) != 0 {
		t.Errorf("expected no remaining bytes, got %v", rem)
	}
}

func TestMsgSectionRoundTrip(t *testing.T) {
	doc := bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "ping", "1"))

	dst := AppendMsgSectionType(nil, wiremessage.SingleDocument)
	dst = AppendMsgSectionSingleDocument(dst, doc)

	stype, rem, ok := ReadMsgSectionType(dst)
	if !ok || stype != wiremessage.SingleDocument {
		t.Fatalf("section type mismatch: ok=%v stype=%v", ok, stype)
	}
	gotDoc, rem, ok := ReadMsgSectionSingleDocument(rem)
	if !ok {
		t.Fatal("expected the document to parse")
	}
	if !bytes.Equal(gotDoc, doc) {
		t.Errorf("got %v; want %v", gotDoc, doc)
	}
	if len(rem) != 0 {
		t.Errorf("expected no remaining bytes, got %v", rem)
	}
}

func TestMsgSectionDocumentSequenceRoundTrip(t *testing.T) {
	docs := []bsoncore.Document{
		bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "_id", "a")),
		bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "_id", "b")),
	}

	dst := AppendMsgSectionDocumentSequence(nil, "documents", docs)
	dst = append(dst, 0xAA) // trailing byte from a following section

	id, gotDocs, rem, ok := ReadMsgSectionDocumentSequence(dst)
	if !ok {
		t.Fatal("expected the document sequence to parse")
	}
	if id != "documents" {
		t.Errorf("identifier = %q; want %q", id, "documents")
	}
	if len(gotDocs) != 2 || !bytes.Equal(gotDocs[0], docs[0]) || !bytes.Equal(gotDocs[1], docs[1]) {
		t.Errorf("got %v; want %v", gotDocs, docs)
	}
	if !bytes.Equal(rem, []byte{0xAA}) {
		t.Errorf("remaining = %v; want [0xAA]", rem)
	}
}

func TestQueryFieldsRoundTrip(t *testing.T) {
	dst := AppendQueryFlags(nil, wiremessage.SlaveOK|wiremessage.TailableCursor)
	dst = AppendQueryFullCollectionName(dst, "test.coll")
	dst = AppendQueryNumberToSkip(dst, 5)
	dst = AppendQueryNumberToReturn(dst, -1)
	query := bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendInt32Element(nil, "find", 1))
	dst = AppendQueryQuery(dst, query)

	flags, rem, ok := ReadQueryFlags(dst)
	if !ok || flags != wiremessage.SlaveOK|wiremessage.TailableCursor {
		t.Fatalf("flags mismatch: ok=%v flags=%v", ok, flags)
	}
	name, rem, ok := ReadQueryFullCollectionName(rem)
	if !ok || name != "test.coll" {
		t.Fatalf("full collection name mismatch: ok=%v name=%q", ok, name)
	}
	skip, rem, ok := ReadQueryNumberToSkip(rem)
	if !ok || skip != 5 {
		t.Fatalf("numberToSkip mismatch: ok=%v skip=%d", ok, skip)
	}
	n, rem, ok := ReadQueryNumberToReturn(rem)
	if !ok || n != -1 {
		t.Fatalf("numberToReturn mismatch: ok=%v n=%d", ok, n)
	}
	gotQuery, rem, ok := ReadQueryQuery(rem)
	if !ok || !bytes.Equal(gotQuery, query) {
		t.Fatalf("query mismatch: ok=%v query=%v", ok, gotQuery)
	}
	if len(rem) != 0 {
		t.Errorf("expected no remaining bytes, got %v", rem)
	}
}
