/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package signaling turns raw backend notifications into adapter-neutral
// call signals. One Adapter implementation exists per backend generation;
// the reconciler depends only on the neutral contract and never sees a
// wire format.
package signaling

import (
	"github.com/voipstudio/cti-go-sdk/callstate"
	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// Adapter parses one raw notification into zero or more neutral signals.
// A notification that is well formed but irrelevant to call state (presence
// churn, delivery receipts) yields an empty slice and no error.
type Adapter interface {
	Parse(raw []byte) ([]callstate.Signal, error)
}

// ForGeneration returns the adapter for a backend signaling dialect.
func ForGeneration(gen ctisdk.Generation) (Adapter, error) {
	switch gen {
	case ctisdk.GenerationPubSub:
		return &PubSubAdapter{}, nil
	case ctisdk.GenerationDialogInfo:
		return &DialogInfoAdapter{}, nil
	case ctisdk.GenerationREST:
		return &RESTAdapter{}, nil
	}
	return nil, ctisdk.NewProtocolError("signaling", "unknown backend generation %q", gen)
}
