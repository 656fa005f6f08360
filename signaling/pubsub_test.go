/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"testing"

	"github.com/voipstudio/cti-go-sdk/callstate"
)

const headlineStanza = `
<message type="headline" from="pubsub.example.com" to="1001@example.com">
  <event xmlns="http://jabber.org/protocol/pubsub#event">
    <items node="user:1001">
      <item id="i1">
        <call>
          <Id>42</Id>
          <State>RINGING</State>
          <Context>LOCAL_USER</Context>
          <Src>+442079460000</Src>
          <SrcId>9000</SrcId>
          <SrcName>Alice</SrcName>
          <Dst>1001</Dst>
          <DstId>1001</DstId>
          <DstName>Bob</DstName>
        </call>
      </item>
    </items>
  </event>
</message>`

const endpointStanza = `
<message type="headline">
  <event><items><item>
    <call>
      <Id>c2c77</Id>
      <State>ACCEPTED</State>
      <Context>ENDPOINT</Context>
      <SrcContact>sip:1001@10.0.0.5:5060</SrcContact>
      <Cause>200</Cause>
      <Cause-txt>OK</Cause-txt>
    </call>
  </item></items></event>
</message>`

const hangupStanza = `
<message type="headline">
  <event><items><item>
    <call>
      <Id>42</Id>
      <State>HANGUP</State>
      <Context>LOCAL_USER</Context>
      <Cause>16</Cause>
      <Cause-txt>Normal call clearing</Cause-txt>
      <ReferredBy>c2c77</ReferredBy>
    </call>
  </item></items></event>
</message>`

func TestPubSubParseHeadline(t *testing.T) {
	a := &PubSubAdapter{}

	sigs, err := a.Parse([]byte(headlineStanza))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Role != callstate.RoleCall {
		t.Errorf("Role = %q, want %q", sig.Role, callstate.RoleCall)
	}
	if sig.CorrelationID != "42" || sig.SignalingRef != "42" {
		t.Errorf("ids = %q/%q, want 42/42", sig.CorrelationID, sig.SignalingRef)
	}
	if sig.RawStatus != callstate.StatusRinging {
		t.Errorf("RawStatus = %q, want RINGING", sig.RawStatus)
	}
	if sig.Context != "LOCAL_USER" {
		t.Errorf("Context = %q, want LOCAL_USER", sig.Context)
	}
	if sig.Source != "+442079460000" || sig.SourceID != "9000" || sig.SourceName != "Alice" {
		t.Errorf("unexpected source fields: %+v", sig)
	}
	if sig.Destination != "1001" || sig.DestinationID != "1001" || sig.DestinationName != "Bob" {
		t.Errorf("unexpected destination fields: %+v", sig)
	}
}

func TestPubSubParseEndpoint(t *testing.T) {
	a := &PubSubAdapter{}

	sigs, err := a.Parse([]byte(endpointStanza))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Role != callstate.RoleEndpoint {
		t.Fatalf("Role = %q, want %q", sig.Role, callstate.RoleEndpoint)
	}
	if sig.CorrelationID != "c2c77" {
		t.Errorf("CorrelationID = %q, want c2c77", sig.CorrelationID)
	}
	if sig.EndpointID != "sip:1001@10.0.0.5:5060" {
		t.Errorf("EndpointID = %q", sig.EndpointID)
	}
	if sig.CauseCode != "200" || sig.CauseText != "OK" {
		t.Errorf("cause = %q/%q, want 200/OK", sig.CauseCode, sig.CauseText)
	}
	if sig.Context != "" {
		t.Errorf("endpoint signals must not leak the ENDPOINT context tag, got %q", sig.Context)
	}
}

func TestPubSubParseHangupWithReferral(t *testing.T) {
	a := &PubSubAdapter{}

	sigs, err := a.Parse([]byte(hangupStanza))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	sig := sigs[0]
	if sig.RawStatus != callstate.StatusHangup {
		t.Errorf("RawStatus = %q, want HANGUP", sig.RawStatus)
	}
	if sig.CauseCode != "16" || sig.CauseText != "Normal call clearing" {
		t.Errorf("cause = %q/%q", sig.CauseCode, sig.CauseText)
	}
	if sig.ReferredBy != "c2c77" {
		t.Errorf("ReferredBy = %q, want c2c77", sig.ReferredBy)
	}
}

func TestPubSubParseChat(t *testing.T) {
	a := &PubSubAdapter{}

	t.Run("correlated error", func(t *testing.T) {
		raw := `<message type="chat" id="c2c77"><body>Error: service unavailable</body></message>`
		sigs, err := a.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if len(sigs) != 1 {
			t.Fatalf("expected 1 signal, got %d", len(sigs))
		}
		if sigs[0].Role != callstate.RoleError {
			t.Errorf("Role = %q, want %q", sigs[0].Role, callstate.RoleError)
		}
		if sigs[0].CorrelationID != "c2c77" {
			t.Errorf("CorrelationID = %q", sigs[0].CorrelationID)
		}
		if sigs[0].CauseText != "Error: service unavailable" {
			t.Errorf("CauseText = %q", sigs[0].CauseText)
		}
	})

	t.Run("plain chat ignored", func(t *testing.T) {
		raw := `<message type="chat" id="c2c77"><body>hello</body></message>`
		sigs, err := a.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		if len(sigs) != 0 {
			t.Fatalf("expected no signals, got %d", len(sigs))
		}
	})
}

func TestPubSubParseErrorStanzaIgnored(t *testing.T) {
	a := &PubSubAdapter{}

	sigs, err := a.Parse([]byte(`<message type="error"><body>boom</body></message>`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sigs) != 0 {
		t.Fatalf("expected no signals, got %d", len(sigs))
	}
}

func TestPubSubParseMalformed(t *testing.T) {
	a := &PubSubAdapter{}

	if _, err := a.Parse([]byte(`<message type="headline">`)); err == nil {
		t.Fatal("expected error for truncated stanza")
	}
	if _, err := a.Parse([]byte(`<message type="subscribe"/>`)); err == nil {
		t.Fatal("expected error for unexpected stanza type")
	}
}
