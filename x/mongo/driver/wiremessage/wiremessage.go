// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wiremessage encodes and decodes the MongoDB wire protocol's
// OP_QUERY and OP_MSG message shapes. Like x/network/wiremessage (the
// opcode vocabulary it builds on), this is part of the Wire Protocol
// Codec collaborator (spec §1 Out-of-scope (b)); the Execution Core
// only ever hands a Connection an already-built []byte and reads one
// back, never calling into this package itself.
package wiremessage

import (
	"encoding/binary"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/network/wiremessage"
)

// AppendHeaderStart reserves space for a wire message header and
// returns the index to later patch the length in at.
func AppendHeaderStart(dst []byte, reqID, respTo int32, opcode wiremessage.OpCode) (int32, []byte) {
	idx := int32(len(dst))
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[4:8], uint32(reqID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(respTo))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(opcode))
	return idx, append(dst, buf[:]...)
}

// UpdateLength patches the length prefix for the header starting at idx.
func UpdateLength(dst []byte, idx, length int32) []byte {
	binary.LittleEndian.PutUint32(dst[idx:idx+4], uint32(length))
	return dst
}

// ReadHeader reads a wire message header, returning the remaining bytes.
func ReadHeader(src []byte) (length, reqID, respTo int32, opcode wiremessage.OpCode, rem []byte, ok bool) {
	if len(src) < 16 {
		return 0, 0, 0, 0, src, false
	}
	length = int32(binary.LittleEndian.Uint32(src[0:4]))
	reqID = int32(binary.LittleEndian.Uint32(src[4:8]))
	respTo = int32(binary.LittleEndian.Uint32(src[8:12]))
	opcode = wiremessage.OpCode(binary.LittleEndian.Uint32(src[12:16]))
	return length, reqID, respTo, opcode, src[16:], true
}

// AppendQueryFlags appends OP_QUERY flags.
func AppendQueryFlags(dst []byte, flags wiremessage.QueryFlag) []byte {
	return appendi32(dst, int32(flags))
}

// ReadQueryFlags reads OP_QUERY flags.
func ReadQueryFlags(src []byte) (wiremessage.QueryFlag, []byte, bool) {
	i32, rem, ok := readi32(src)
	return wiremessage.QueryFlag(i32), rem, ok
}

// AppendQueryFullCollectionName appends an OP_QUERY fullCollectionName.
func AppendQueryFullCollectionName(dst []byte, name string) []byte {
	return appendCString(dst, name)
}

// ReadQueryFullCollectionName reads an OP_QUERY fullCollectionName.
func ReadQueryFullCollectionName(src []byte) (string, []byte, bool) {
	return readCString(src)
}

// AppendQueryNumberToSkip appends an OP_QUERY numberToSkip.
func AppendQueryNumberToSkip(dst []byte, skip int32) []byte { return appendi32(dst, skip) }

// ReadQueryNumberToSkip reads an OP_QUERY numberToSkip.
func ReadQueryNumberToSkip(src []byte) (int32, []byte, bool) { return readi32(src) }

// AppendQueryNumberToReturn appends an OP_QUERY numberToReturn.
func AppendQueryNumberToReturn(dst []byte, n int32) []byte { return appendi32(dst, n) }

// ReadQueryNumberToReturn reads an OP_QUERY numberToReturn.
func ReadQueryNumberToReturn(src []byte) (int32, []byte, bool) { return readi32(src) }

// AppendQueryQuery appends an OP_QUERY query document.
func AppendQueryQuery(dst []byte, query bsoncore.Document) []byte { return append(dst, query...) }

// ReadQueryQuery reads an OP_QUERY query document.
func ReadQueryQuery(src []byte) (bsoncore.Document, []byte, bool) { return readDocument(src) }

// AppendMsgFlags appends OP_MSG flagBits.
func AppendMsgFlags(dst []byte, flags wiremessage.MsgFlag) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(flags))
	return append(dst, buf[:]...)
}

// ReadMsgFlags reads OP_MSG flagBits.
func ReadMsgFlags(src []byte) (wiremessage.MsgFlag, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return wiremessage.MsgFlag(binary.LittleEndian.Uint32(src[0:4])), src[4:], true
}

// AppendMsgSectionType appends an OP_MSG section's kind byte.
func AppendMsgSectionType(dst []byte, stype wiremessage.SectionType) []byte {
	return append(dst, byte(stype))
}

// ReadMsgSectionType reads an OP_MSG section's kind byte.
func ReadMsgSectionType(src []byte) (wiremessage.SectionType, []byte, bool) {
	if len(src) < 1 {
		return 0, src, false
	}
	return wiremessage.SectionType(src[0]), src[1:], true
}

// AppendMsgSectionSingleDocument appends a kind-0 OP_MSG section body.
func AppendMsgSectionSingleDocument(dst []byte, doc bsoncore.Document) []byte {
	return append(dst, doc...)
}

// ReadMsgSectionSingleDocument reads a kind-0 OP_MSG section body.
func ReadMsgSectionSingleDocument(src []byte) (bsoncore.Document, []byte, bool) {
	return readDocument(src)
}

// AppendMsgSectionDocumentSequence appends a kind-1 OP_MSG section body.
func AppendMsgSectionDocumentSequence(dst []byte, identifier string, docs []bsoncore.Document) []byte {
	idx := int32(len(dst))
	dst = append(dst, 0x00, 0x00, 0x00, 0x00)
	dst = appendCString(dst, identifier)
	for _, doc := range docs {
		dst = append(dst, doc...)
	}
	binary.LittleEndian.PutUint32(dst[idx:idx+4], uint32(len(dst)-int(idx)))
	return dst
}

// ReadMsgSectionDocumentSequence reads a kind-1 OP_MSG section body.
func ReadMsgSectionDocumentSequence(src []byte) (identifier string, docs []bsoncore.Document, rem []byte, ok bool) {
	size, rest, ok := readi32(src)
	if !ok || int(size) > len(src)+4 {
		return "", nil, src, false
	}
	section := src[4:size]
	identifier, section, ok = readCString(section)
	if !ok {
		return "", nil, src, false
	}
	for len(section) > 0 {
		var doc bsoncore.Document
		doc, section, ok = readDocument(section)
		if !ok {
			return "", nil, src, false
		}
		docs = append(docs, doc)
	}
	return identifier, docs, rest[size-4:], true
}

func appendi32(dst []byte, v int32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return append(dst, buf[:]...)
}

func readi32(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return int32(binary.LittleEndian.Uint32(src[0:4])), src[4:], true
}

func appendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0x00)
}

func readCString(src []byte) (string, []byte, bool) {
	for i, b := range src {
		if b == 0x00 {
			return string(src[:i]), src[i+1:], true
		}
	}
	return "", src, false
}

func readDocument(src []byte) (bsoncore.Document, []byte, bool) {
	length, _, ok := readi32(src)
	if !ok || int(length) > len(src) || length < 4 {
		return nil, src, false
	}
	return bsoncore.Document(src[:length]), src[length:], true
}
