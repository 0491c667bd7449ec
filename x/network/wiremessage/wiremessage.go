// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wiremessage defines the constants of the MongoDB wire
// protocol: opcodes, OP_MSG section types, and the compressor IDs
// OP_COMPRESSED frames carry. It is part of the Wire Protocol Codec
// collaborator (spec §1 Out-of-scope (b)) the Execution Core never
// touches directly.
package wiremessage

// OpCode represents a MongoDB wire protocol opcode.
type OpCode int32

// These constants are the valid opcodes for client/server communication.
const (
	OpReply        OpCode = 1
	OpUpdate       OpCode = 2001
	OpInsert       OpCode = 2002
	OpQuery        OpCode = 2004
	OpGetMore      OpCode = 2005
	OpDelete       OpCode = 2006
	OpKillCursors  OpCode = 2007
	OpCompressed   OpCode = 2012
	OpMsg          OpCode = 2013
)

// QueryFlag represents the flags on an OP_QUERY message.
type QueryFlag int32

// These constants are the valid flags for an OP_QUERY message.
const (
	TailableCursor QueryFlag = 1 << 1
	SlaveOK        QueryFlag = 1 << 2
	NoCursorTimeout QueryFlag = 1 << 4
	AwaitData      QueryFlag = 1 << 5
	Exhaust        QueryFlag = 1 << 6
	Partial        QueryFlag = 1 << 7
)

// MsgFlag represents the flags on an OP_MSG message.
type MsgFlag uint32

// These constants are the valid flags for an OP_MSG message.
const (
	ChecksumPresent MsgFlag = 1
	MoreToCome      MsgFlag = 1 << 1
	ExhaustAllowed  MsgFlag = 1 << 16
)

// SectionType represents the type of a single section in an OP_MSG.
type SectionType uint8

// These constants are the valid section types for OP_MSG.
const (
	SingleDocument SectionType = iota
	DocumentSequence
)

// CompressorID identifies the compression algorithm an OP_COMPRESSED
// message's payload was compressed with.
type CompressorID uint8

// These constants are the compressor IDs this slice understands.
const (
	CompressorNoOp   CompressorID = 0
	CompressorSnappy CompressorID = 1
	CompressorZLib   CompressorID = 2
	CompressorZstd   CompressorID = 3
)
