// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strconv"
	"sync"

	"github.com/xdg-go/pbkdf2"
	"golang.org/x/crypto/hkdf"
)

// credentialCache memoizes PBKDF2 salted passwords, keyed by password,
// salt, iteration count and key length. ScramAuthenticator fills it
// using the server address as the salt; the SCRAM conversation derives
// its own salted password from the server's salt and does not read this
// cache.
type credentialCache struct {
	mu              sync.Mutex
	saltedPasswords map[string][]byte
}

func newCredentialCache() *credentialCache {
	return &credentialCache{saltedPasswords: make(map[string][]byte)}
}

// saltedPassword returns the cached PBKDF2 output for (password, salt,
// iterations, keyLen), computing and caching it on a miss; newHash is
// not part of the key. The map key is an HKDF digest of the password,
// salt and iterations with keyLen appended, so the keys do not contain
// the password; the cached values are the salted passwords themselves.
func (c *credentialCache) saltedPassword(password string, salt []byte, iterations, keyLen int, newHash func() hash.Hash) ([]byte, error) {
	key, err := cacheKey(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	key += ":" + strconv.Itoa(keyLen)

	c.mu.Lock()
	defer c.mu.Unlock()
	if sp, ok := c.saltedPasswords[key]; ok {
		return sp, nil
	}
	sp := pbkdf2.Key([]byte(password), salt, iterations, keyLen, newHash)
	c.saltedPasswords[key] = sp
	return sp, nil
}

func cacheKey(password string, salt []byte, iterations int) (string, error) {
	info := []byte{byte(iterations), byte(iterations >> 8), byte(iterations >> 16)}
	r := hkdf.New(sha256.New, []byte(password), salt, info)
	out := make([]byte, 16)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return hex.EncodeToString(out), nil
}
