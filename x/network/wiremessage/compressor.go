// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compressor decompresses an OP_COMPRESSED payload compressed by its
// matching CompressorID back into the original opcode's bytes.
type Compressor interface {
	ID() CompressorID
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
}

type snappyCompressor struct{}

func (snappyCompressor) ID() CompressorID { return CompressorSnappy }

func (snappyCompressor) Compress(dst, src []byte) ([]byte, error) {
	return snappy.Encode(dst, src), nil
}

func (snappyCompressor) Decompress(dst, src []byte) ([]byte, error) {
	decoded, err := snappy.Decode(dst, src)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{encoder: enc, decoder: dec}, nil
}

func (*zstdCompressor) ID() CompressorID { return CompressorZstd }

func (z *zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	return z.encoder.EncodeAll(src, dst), nil
}

func (z *zstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	return z.decoder.DecodeAll(src, dst)
}

// CompressorRegistry maps a CompressorID to the Compressor that
// implements it, so the wire layer can decompress an OP_COMPRESSED
// payload before the core ever sees a response.
type CompressorRegistry struct {
	compressors map[CompressorID]Compressor
}

// NewCompressorRegistry builds a registry carrying the snappy and zstd
// compressors this slice supports.
func NewCompressorRegistry() (*CompressorRegistry, error) {
	z, err := newZstdCompressor()
	if err != nil {
		return nil, err
	}
	return &CompressorRegistry{
		compressors: map[CompressorID]Compressor{
			CompressorSnappy: snappyCompressor{},
			CompressorZstd:   z,
		},
	}, nil
}

// Decompress decompresses src, which was compressed with id, into an
// original-opcode wire message body.
func (r *CompressorRegistry) Decompress(id CompressorID, src []byte) ([]byte, error) {
	if id == CompressorNoOp {
		return src, nil
	}
	c, ok := r.compressors[id]
	if !ok {
		return nil, fmt.Errorf("unsupported compressor id %d", id)
	}
	return c.Decompress(nil, src)
}

// Compress compresses src with the compressor registered for id.
func (r *CompressorRegistry) Compress(id CompressorID, src []byte) ([]byte, error) {
	if id == CompressorNoOp {
		return src, nil
	}
	c, ok := r.compressors[id]
	if !ok {
		return nil, fmt.Errorf("unsupported compressor id %d", id)
	}
	return c.Compress(nil, src)
}
