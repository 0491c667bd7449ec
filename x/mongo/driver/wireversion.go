// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import "github.com/skrtheboss/mongo-go-driver/x/network/description"

// Wire-version constants used for retry and feature gating (spec §6).
// These alias the Topology subsystem's own description package so the
// core's public surface names them exactly as the spec does, without
// duplicating the underlying values.
const (
	WireVersionUnknown                = description.UnknownWireVersion
	WireVersionSupportsOpMsg          = description.SupportsOpMsgWireVersion
	WireVersionReplicaSetTransactions = description.ReplicaSetTransactionsWireVersion
	WireVersionShardedTransactions    = description.ShardedTransactionsWireVersion
	WireVersion50                     = description.WireVersion50

	// MinSupportedWireVersion is the minimum wire version this core will
	// negotiate retries against.
	MinSupportedWireVersion = description.MinSupportedWireVersion
)
