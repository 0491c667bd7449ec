// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package auth

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/xdg-go/scram"
	"github.com/xdg-go/stringprep"

	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// scramCache is shared by every ScramAuthenticator in the process,
// mirroring the real driver's package-level credential cache.
var scramCache = newCredentialCache()

// ScramAuthenticator implements the SCRAM-SHA-1 and SCRAM-SHA-256
// mechanisms (RFC 5802) over saslStart/saslContinue commands.
type ScramAuthenticator struct {
	Cred      *Cred
	mechanism string
}

func (a *ScramAuthenticator) hashGenerator() scram.HashGeneratorFcn {
	if a.mechanism == "SCRAM-SHA-1" {
		return scram.SHA1
	}
	return scram.SHA256
}

func (a *ScramAuthenticator) newHash() func() hash.Hash {
	if a.mechanism == "SCRAM-SHA-1" {
		return sha1.New
	}
	return sha256.New
}

func (a *ScramAuthenticator) keyLen() int {
	if a.mechanism == "SCRAM-SHA-1" {
		return sha1.Size
	}
	return sha256.Size
}

// Auth runs the SCRAM conversation against conn, driving saslStart then
// as many saslContinue round trips as the server demands.
func (a *ScramAuthenticator) Auth(ctx context.Context, desc description.Server, conn driver.Connection) error {
	username, err := stringprep.SASLprep.Prepare(a.Cred.Username)
	if err != nil {
		return fmt.Errorf("auth: SASLprep username: %w", err)
	}
	password, err := stringprep.SASLprep.Prepare(a.Cred.Password)
	if err != nil {
		return fmt.Errorf("auth: SASLprep password: %w", err)
	}

	client, err := a.hashGenerator().NewClient(username, password, "")
	if err != nil {
		return fmt.Errorf("auth: new SCRAM client: %w", err)
	}

	// Fill the salted-password cache using the server address as salt
	// material. conv.Step derives the real salted password itself from
	// the server's salt and does not read this cache entry.
	if _, err := scramCache.saltedPassword(password, []byte(desc.Addr), 4096, a.keyLen(), a.newHash()); err != nil {
		return fmt.Errorf("auth: priming credential cache: %w", err)
	}

	conv := client.NewConversation()
	payload, err := conv.Step("")
	if err != nil {
		return fmt.Errorf("auth: starting SCRAM conversation: %w", err)
	}

	resp, err := sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt32Element(nil, "saslStart", 1),
		bsoncore.AppendStringElement(nil, "mechanism", a.mechanism),
		bsoncore.AppendStringElement(nil, "payload", payload),
		bsoncore.AppendStringElement(nil, "$db", a.Cred.dbName()),
	))
	if err != nil {
		return err
	}

	for i := 0; i < 10; i++ {
		if err := commandOKOrError(resp); err != nil {
			return err
		}
		if done, ok := lookupBool(resp, "done"); ok && done && conv.Done() {
			return nil
		}

		_, payloadVal, ok := bsoncore.Lookup(resp, "payload")
		if !ok {
			return errors.New("auth: malformed saslContinue response: missing payload")
		}
		conversationID, ok := lookupInt32(resp, "conversationId")
		if !ok {
			return errors.New("auth: malformed saslContinue response: missing conversationId")
		}

		next, err := conv.Step(string(payloadVal))
		if err != nil {
			return fmt.Errorf("auth: SCRAM conversation: %w", err)
		}
		if conv.Done() {
			return nil
		}

		resp, err = sendCommand(ctx, conn, bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendInt32Element(nil, "saslContinue", 1),
			bsoncore.AppendInt32Element(nil, "conversationId", conversationID),
			bsoncore.AppendStringElement(nil, "payload", next),
			bsoncore.AppendStringElement(nil, "$db", a.Cred.dbName()),
		))
		if err != nil {
			return err
		}
	}
	return errors.New("auth: SCRAM conversation did not converge")
}
