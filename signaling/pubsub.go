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

// PubSubAdapter parses the first-generation publish/subscribe message
// stanzas. Call state arrives as headline messages carrying one or more
// <call> nodes under event/items/item; correlated error reports arrive as
// chat messages whose id echoes the correlation token.
type PubSubAdapter struct{}

// contextEndpoint marks a <call> node that describes a single softphone
// registration rather than the call itself.
const contextEndpoint = "ENDPOINT"

type pubsubStanza struct {
	XMLName xml.Name         `xml:"message"`
	Type    string           `xml:"type,attr"`
	ID      string           `xml:"id,attr"`
	Body    string           `xml:"body"`
	Calls   []pubsubCallNode `xml:"event>items>item>call"`
}

// pubsubCallNode keeps the call node's children as a flat name/text list;
// the backend adds fields without notice and unknown ones must be ignored.
type pubsubCallNode struct {
	Fields []pubsubField `xml:",any"`
}

type pubsubField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (n pubsubCallNode) get(name string) string {
	for _, f := range n.Fields {
		if f.XMLName.Local == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// Parse maps one stanza to neutral signals. Stanzas of type "error" and
// chat messages without a correlated error body are dropped silently, the
// way the backend expects clients to behave.
func (a *PubSubAdapter) Parse(raw []byte) ([]callstate.Signal, error) {
	var st pubsubStanza
	if err := xml.Unmarshal(raw, &st); err != nil {
		return nil, ctisdk.NewProtocolError("pubsub", "malformed stanza: %v", err)
	}

	switch st.Type {
	case "error":
		return nil, nil
	case "headline":
		sigs := make([]callstate.Signal, 0, len(st.Calls))
		for _, node := range st.Calls {
			sigs = append(sigs, signalFromCallNode(node))
		}
		return sigs, nil
	case "chat":
		return signalsFromChat(st), nil
	}
	return nil, ctisdk.NewProtocolError("pubsub", "unexpected stanza type %q", st.Type)
}

func signalFromCallNode(node pubsubCallNode) callstate.Signal {
	sig := callstate.Signal{
		Role:            callstate.RoleCall,
		CorrelationID:   node.get("Id"),
		SignalingRef:    node.get("Id"),
		ReferredBy:      node.get("ReferredBy"),
		RawStatus:       callstate.Status(node.get("State")),
		Context:         node.get("Context"),
		CauseCode:       node.get("Cause"),
		CauseText:       node.get("Cause-txt"),
		Source:          node.get("Src"),
		SourceID:        node.get("SrcId"),
		SourceName:      node.get("SrcName"),
		Destination:     node.get("Dst"),
		DestinationID:   node.get("DstId"),
		DestinationName: node.get("DstName"),
	}
	if sig.Context == contextEndpoint {
		sig.Role = callstate.RoleEndpoint
		sig.Context = ""
		sig.EndpointID = node.get("SrcContact")
	}
	return sig
}

// signalsFromChat extracts the correlated error a chat message may carry.
// Only messages whose id echoes a correlation token and whose body contains
// an error report are meaningful.
func signalsFromChat(st pubsubStanza) []callstate.Signal {
	if st.ID == "" || !strings.Contains(st.Body, "Error") {
		return nil
	}
	return []callstate.Signal{{
		Role:          callstate.RoleError,
		CorrelationID: st.ID,
		CauseText:     st.Body,
	}}
}
