// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsoncore is a stand-in for the Wire Protocol Codec's document
// representation. It deliberately does not implement a full BSON codec:
// encoding and decoding documents is owned by the Wire Protocol Codec
// subsystem, outside the scope of the Operation Execution Core. This
// package only gives the core something concrete to pass to
// Operation.CommandFn and to read a handful of well-known fields back
// out of a server response.
package bsoncore

import "encoding/binary"

// Document is a raw, already-encoded BSON document. The first four bytes
// are its little-endian int32 length, as on the wire.
type Document []byte

// Len returns the length prefix encoded in the document, or an error if
// the document is too short to contain one.
func (d Document) Len() (int32, error) {
	if len(d) < 4 {
		return 0, ErrTooShort
	}
	return int32(binary.LittleEndian.Uint32(d)), nil
}

// Validate reports whether d's length prefix matches its actual length
// and it is terminated correctly.
func (d Document) Validate() error {
	length, err := d.Len()
	if err != nil {
		return err
	}
	if int(length) != len(d) {
		return ErrInvalidLength
	}
	if d[len(d)-1] != 0x00 {
		return ErrMissingNullTerminator
	}
	return nil
}

// Elements splits d into its top-level elements, each returned as its
// raw type-tag-plus-key-plus-value bytes, so callers can append
// additional elements and rebuild the document with
// BuildDocumentFromElements. It supports the handful of BSON types
// elementValueLen knows about, consistent with the rest of this
// minimal codec stand-in.
func (d Document) Elements() ([][]byte, error) {
	if len(d) < 5 {
		return nil, ErrTooShort
	}
	body := d[4 : len(d)-1]
	var elems [][]byte
	i := 0
	for i < len(body) {
		start := i
		elemType := body[i]
		i++
		for i < len(body) && body[i] != 0x00 {
			i++
		}
		if i >= len(body) {
			return nil, ErrMalformedElement
		}
		i++
		vlen, known := elementValueLen(elemType, body[i:])
		if !known || i+vlen > len(body) {
			return nil, ErrMalformedElement
		}
		i += vlen
		elems = append(elems, body[start:i])
	}
	return elems, nil
}

// ErrMalformedElement is returned when Elements encounters a key or
// value it cannot decode.
var ErrMalformedElement = bsoncoreError("document contains a malformed element")

// ErrTooShort is returned when a document is too short to contain a
// length prefix.
var ErrTooShort = bsoncoreError("document is too short to contain a length prefix")

// ErrInvalidLength is returned when a document's length prefix does not
// match its actual length.
var ErrInvalidLength = bsoncoreError("document length prefix does not match actual length")

// ErrMissingNullTerminator is returned when a document is not terminated
// with a null byte.
var ErrMissingNullTerminator = bsoncoreError("document is missing its null terminator")

type bsoncoreError string

func (e bsoncoreError) Error() string { return string(e) }

// BuildDocumentFromElements builds a Document by wrapping the given
// already-encoded elements with a length prefix and null terminator.
func BuildDocumentFromElements(dst []byte, elems ...[]byte) Document {
	idx, dst := AppendDocumentStart(dst)
	for _, elem := range elems {
		dst = append(dst, elem...)
	}
	dst, _ = AppendDocumentEnd(dst, idx)
	return dst
}

// AppendDocumentStart reserves space for a document length prefix and
// returns the index at which to later patch it in.
func AppendDocumentStart(dst []byte) (int32, []byte) {
	idx := len(dst)
	return int32(idx), append(dst, 0x00, 0x00, 0x00, 0x00)
}

// AppendDocumentEnd null-terminates the document and patches its length
// prefix in at idx.
func AppendDocumentEnd(dst []byte, idx int32) ([]byte, error) {
	if int(idx) > len(dst) {
		return dst, ErrInvalidLength
	}
	dst = append(dst, 0x00)
	binary.LittleEndian.PutUint32(dst[idx:], uint32(len(dst)-int(idx)))
	return dst, nil
}

// AppendStringElement appends a string-typed element for key.
func AppendStringElement(dst []byte, key, value string) []byte {
	dst = append(dst, 0x02)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	dst = appendLengthPrefixedString(dst, value)
	return dst
}

// AppendInt32Element appends an int32-typed element for key.
func AppendInt32Element(dst []byte, key string, value int32) []byte {
	dst = append(dst, 0x10)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(value))
	return append(dst, buf[:]...)
}

// AppendInt64Element appends an int64-typed element for key.
func AppendInt64Element(dst []byte, key string, value int64) []byte {
	dst = append(dst, 0x12)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	return append(dst, buf[:]...)
}

// AppendBooleanElement appends a boolean-typed element for key.
func AppendBooleanElement(dst []byte, key string, value bool) []byte {
	dst = append(dst, 0x08)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	if value {
		return append(dst, 0x01)
	}
	return append(dst, 0x00)
}

// AppendDocumentElement appends an embedded-document-typed element for key.
func AppendDocumentElement(dst []byte, key string, value []byte) []byte {
	dst = append(dst, 0x03)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	return append(dst, value...)
}

func appendLengthPrefixedString(dst []byte, s string) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(s)+1))
	dst = append(dst, buf[:]...)
	dst = append(dst, s...)
	return append(dst, 0x00)
}

// AppendTimestampElement appends a BSON Timestamp-typed element for key.
// t is the seconds component, i the ordinal within that second.
func AppendTimestampElement(dst []byte, key string, t, i uint32) []byte {
	dst = append(dst, 0x11)
	dst = append(dst, key...)
	dst = append(dst, 0x00)
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], i)
	binary.LittleEndian.PutUint32(buf[4:8], t)
	return append(dst, buf[:]...)
}

// ReadTimestamp decodes an 8-byte BSON Timestamp element value into its
// seconds (t) and ordinal (i) components.
func ReadTimestamp(value []byte) (t, i uint32, ok bool) {
	if len(value) != 8 {
		return 0, 0, false
	}
	i = binary.LittleEndian.Uint32(value[0:4])
	t = binary.LittleEndian.Uint32(value[4:8])
	return t, i, true
}

// elementValueLen returns how many bytes of rest belong to an element's
// value, for the handful of BSON types this minimal codec stand-in
// knows how to skip over. It does not attempt to support every BSON
// type — decoding arbitrary server responses is the Wire Protocol
// Codec's job, out of the Execution Core's scope; this is only enough
// to read back the handful of well-known fields ($clusterTime,
// operationTime) the core itself inspects.
func elementValueLen(typ byte, rest []byte) (int, bool) {
	switch typ {
	case 0x08: // boolean
		return 1, len(rest) >= 1
	case 0x10: // int32
		return 4, len(rest) >= 4
	case 0x11, 0x12: // timestamp, int64
		return 8, len(rest) >= 8
	case 0x02: // string
		if len(rest) < 4 {
			return 0, false
		}
		return 4 + int(binary.LittleEndian.Uint32(rest)), true
	case 0x03: // embedded document
		if len(rest) < 4 {
			return 0, false
		}
		return int(binary.LittleEndian.Uint32(rest)), true
	default:
		return 0, false
	}
}

// Lookup scans doc's top-level elements for key, returning its BSON
// type tag and raw value bytes.
func Lookup(doc Document, key string) (typ byte, value []byte, ok bool) {
	if len(doc) < 5 {
		return 0, nil, false
	}
	body := doc[4 : len(doc)-1]
	i := 0
	for i < len(body) {
		elemType := body[i]
		i++
		start := i
		for i < len(body) && body[i] != 0x00 {
			i++
		}
		if i >= len(body) {
			return 0, nil, false
		}
		k := string(body[start:i])
		i++
		vlen, known := elementValueLen(elemType, body[i:])
		if !known || i+vlen > len(body) {
			return 0, nil, false
		}
		if k == key {
			return elemType, body[i : i+vlen], true
		}
		i += vlen
	}
	return 0, nil, false
}
