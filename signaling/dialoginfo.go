/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"encoding/xml"
	"strings"

	"github.com/voipstudio/cti-go-sdk/callstate"
	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// DialogInfoAdapter parses second-generation RFC 4235 dialog event bodies
// as delivered in SIP NOTIFY requests. Every dialog element becomes one
// signal; the dialog state vocabulary collapses onto the call lattice
// (trying/early/proceeding ring, confirmed connects, terminated hangs up).
type DialogInfoAdapter struct{}

type dialogInfo struct {
	XMLName xml.Name `xml:"dialog-info"`
	Entity  string   `xml:"entity,attr"`
	Dialogs []dialog `xml:"dialog"`
}

type dialog struct {
	ID        string      `xml:"id,attr"`
	Direction string      `xml:"direction,attr"`
	State     string      `xml:"state"`
	Local     dialogParty `xml:"local"`
	Remote    dialogParty `xml:"remote"`
}

type dialogParty struct {
	Identity string `xml:"identity"`
	Target   string `xml:"target"`
}

func (a *DialogInfoAdapter) Parse(raw []byte) ([]callstate.Signal, error) {
	var info dialogInfo
	if err := xml.Unmarshal(raw, &info); err != nil {
		return nil, ctisdk.NewProtocolError("dialog-info", "malformed body: %v", err)
	}

	local := addressFromURI(info.Entity)
	sigs := make([]callstate.Signal, 0, len(info.Dialogs))
	for _, d := range info.Dialogs {
		status, ok := statusFromDialogState(d.State)
		if !ok {
			continue
		}
		sig := callstate.Signal{
			Role:          callstate.RoleCall,
			CorrelationID: d.ID,
			SignalingRef:  d.ID,
			// Dialog subscriptions are per-user, so every dialog is about
			// the local user by construction.
			Context:   callstate.ContextLocalUser,
			RawStatus: status,
		}
		remote := addressFromURI(d.Remote.Identity)
		switch strings.ToLower(d.Direction) {
		case "initiator":
			sig.Direction = callstate.DirectionOutbound
			sig.Source, sig.SourceID = local, local
			sig.Destination, sig.DestinationID = remote, remote
		case "recipient":
			sig.Direction = callstate.DirectionInbound
			sig.Source, sig.SourceID = remote, remote
			sig.Destination, sig.DestinationID = local, local
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// statusFromDialogState maps the RFC 4235 dialog state vocabulary to the
// call lattice. Unknown states are skipped rather than failed: newer PBX
// firmware emits extension states older documents never listed.
func statusFromDialogState(state string) (callstate.Status, bool) {
	switch strings.ToLower(state) {
	case "trying", "early", "proceeding":
		return callstate.StatusRinging, true
	case "confirmed":
		return callstate.StatusConnected, true
	case "terminated":
		return callstate.StatusHangup, true
	}
	return "", false
}

// addressFromURI extracts the user part of a sip:/tel: URI, or returns the
// input unchanged when it does not look like one.
func addressFromURI(uri string) string {
	if idx := strings.Index(uri, ":"); idx >= 0 {
		uri = uri[idx+1:]
	}
	if at := strings.Index(uri, "@"); at >= 0 {
		uri = uri[:at]
	}
	return uri
}
