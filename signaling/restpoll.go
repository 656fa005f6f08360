/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"encoding/json"

	"github.com/voipstudio/cti-go-sdk/callstate"
	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// RESTAdapter parses third-generation JSON payloads, both the per-event
// webhook/poll shape and the snapshot list returned by the state endpoint
// after a reconnect. A payload with a top-level "calls" array is a
// snapshot; anything else is a single event object.
type RESTAdapter struct{}

type restEvent struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	State      string `json:"state"`
	Context    string `json:"context"`
	Direction  string `json:"direction"`
	ReferredBy string `json:"referred_by"`
	Endpoint   string `json:"endpoint"`
	Cause      string `json:"cause"`
	CauseText  string `json:"cause_txt"`
	Ref        string `json:"ref"`
	Src        string `json:"src"`
	SrcID      string `json:"src_id"`
	SrcName    string `json:"src_name"`
	Dst        string `json:"dst"`
	DstID      string `json:"dst_id"`
	DstName    string `json:"dst_name"`
}

type restPayload struct {
	Calls []restEvent `json:"calls"`
	restEvent
}

func (a *RESTAdapter) Parse(raw []byte) ([]callstate.Signal, error) {
	var payload restPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ctisdk.NewProtocolError("rest", "malformed payload: %v", err)
	}
	if payload.Calls != nil {
		sigs := make([]callstate.Signal, 0, len(payload.Calls))
		for _, ev := range payload.Calls {
			sig := signalFromRESTEvent(ev)
			sig.Snapshot = true
			sigs = append(sigs, sig)
		}
		return sigs, nil
	}
	if payload.ID == "" {
		// Keep-alive or acknowledgement frame.
		return nil, nil
	}
	return []callstate.Signal{signalFromRESTEvent(payload.restEvent)}, nil
}

func signalFromRESTEvent(ev restEvent) callstate.Signal {
	sig := callstate.Signal{
		CorrelationID:   ev.ID,
		SignalingRef:    ev.Ref,
		ReferredBy:      ev.ReferredBy,
		RawStatus:       callstate.Status(ev.State),
		Context:         ev.Context,
		EndpointID:      ev.Endpoint,
		CauseCode:       ev.Cause,
		CauseText:       ev.CauseText,
		Source:          ev.Src,
		SourceID:        ev.SrcID,
		SourceName:      ev.SrcName,
		Destination:     ev.Dst,
		DestinationID:   ev.DstID,
		DestinationName: ev.DstName,
	}
	if sig.SignalingRef == "" {
		sig.SignalingRef = ev.ID
	}
	switch ev.Role {
	case "endpoint":
		sig.Role = callstate.RoleEndpoint
	case "error":
		sig.Role = callstate.RoleError
	default:
		sig.Role = callstate.RoleCall
	}
	switch ev.Direction {
	case "inbound":
		sig.Direction = callstate.DirectionInbound
	case "outbound":
		sig.Direction = callstate.DirectionOutbound
	}
	return sig
}
