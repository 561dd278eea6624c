package main

import (
	"encoding/json"
	"testing"
)

// TestRequestWire_RoundTrip pins the IPC wire contract: panelctl builds these
// envelopes by hand, so the discriminator strings must not drift.
func TestRequestWire_RoundTrip(t *testing.T) {
	cases := []struct {
		req      Request
		wantType string
	}{
		{MirrorParam{ControlID: 74, Value: 100}, "set_param"},
		{QueryParam{ControlID: 74}, "get_param"},
		{QueryState{}, "get_state"},
		{QueryParams{}, "list_params"},
	}

	for _, tc := range cases {
		data, err := MarshalRequest(tc.req)
		if err != nil {
			t.Fatalf("marshal %T: %v", tc.req, err)
		}

		var env RequestEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Type != tc.wantType {
			t.Errorf("expected type %q for %T, got %q", tc.wantType, tc.req, env.Type)
		}

		back, err := UnmarshalRequest(data)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != tc.req {
			t.Errorf("expected %#v after round trip, got %#v", tc.req, back)
		}
	}
}

// TestUnmarshalRequest_PayloadFields checks a hand-written envelope, the way
// an external client would send it.
func TestUnmarshalRequest_PayloadFields(t *testing.T) {
	req, err := UnmarshalRequest([]byte(`{"type":"set_param","data":{"control_id":74,"value":127}}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m, ok := req.(MirrorParam)
	if !ok {
		t.Fatalf("expected MirrorParam, got %T", req)
	}
	if m.ControlID != 74 || m.Value != 127 {
		t.Errorf("expected CC 74 value 127, got CC %d value %d", m.ControlID, m.Value)
	}
}

func TestUnmarshalRequest_UnknownType(t *testing.T) {
	if _, err := UnmarshalRequest([]byte(`{"type":"reticulate"}`)); err == nil {
		t.Errorf("expected an error for an unknown request type")
	}
}
