package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Request Types - Daemon Command Bus
// ============================================================================
// Requests represent intent from sources other than the rotary encoder
// (IPC clients, the MIDI mirror listener, the state websocket). The daemon
// loop consumes these requests so that every access to the parameter table
// happens on the loop goroutine.
// ============================================================================

// Request is a marker interface for all daemon requests.
type Request interface {
	requestMarker()
}

// MirrorParam records an externally-changed parameter value in the table.
// It is a mirror write: the value is stored verbatim and the change handler
// is NOT invoked, so mirrored values never echo back to their source.
type MirrorParam struct {
	ControlID uint8 `json:"control_id"`
	Value     uint8 `json:"value"`
}

func (MirrorParam) requestMarker() {}

// QueryParam asks the daemon for the current state of one parameter,
// looked up by MIDI CC number (first match wins, same as mirror writes).
// Reply is filled in by the server that posts the request; the daemon
// closes it without sending when no parameter matches.
type QueryParam struct {
	ControlID uint8 `json:"control_id"`

	Reply chan ParamState `json:"-"`
}

func (QueryParam) requestMarker() {}

// QueryState asks the daemon for a snapshot of the panel UI state.
type QueryState struct {
	Reply chan StateSnapshot `json:"-"`
}

func (QueryState) requestMarker() {}

// QueryParams asks the daemon for the full parameter table.
type QueryParams struct {
	Reply chan []ParamState `json:"-"`
}

func (QueryParams) requestMarker() {}

// ============================================================================
// Reply / Broadcast Payloads
// ============================================================================
// These are the externally-consumable views of daemon state. They are shared
// by the IPC responses and the state websocket frames; keep them decoupled
// from the internal panel types.
// ============================================================================

// ParamState is the external view of one parameter table entry.
type ParamState struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ControlID uint8  `json:"control_id"`
	Value     uint8  `json:"value"`
	Min       uint8  `json:"min"`
	Max       uint8  `json:"max"`
}

// StateSnapshot is the external view of the panel UI state: the interaction
// mode, the cursor position and the parameter under the cursor.
type StateSnapshot struct {
	Mode  string     `json:"mode"` // "browse" or "edit"
	Index int        `json:"index"`
	Count int        `json:"count"`
	Param ParamState `json:"param"`
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// RequestEnvelope wraps requests for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// RequestEnvelope wraps a request with a type discriminator for JSON marshaling
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalRequest deserializes a JSON request envelope into a concrete Request.
// Reply channels are never transported; servers that need a reply create the
// channel themselves after parsing.
func UnmarshalRequest(data []byte) (Request, error) {
	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "set_param":
		var r MirrorParam
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal MirrorParam: %w", err)
		}
		return r, nil

	case "get_param":
		var r QueryParam
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal QueryParam: %w", err)
		}
		return r, nil

	case "get_state":
		return QueryState{}, nil

	case "list_params":
		return QueryParams{}, nil

	default:
		return nil, fmt.Errorf("unknown request type: %q", env.Type)
	}
}

// MarshalRequest serializes a Request into a JSON envelope with type discriminator
func MarshalRequest(r Request) ([]byte, error) {
	var env RequestEnvelope

	switch r := r.(type) {
	case MirrorParam:
		env.Type = "set_param"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal MirrorParam: %w", err)
		}
		env.Data = data

	case QueryParam:
		env.Type = "get_param"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal QueryParam: %w", err)
		}
		env.Data = data

	case QueryState:
		env.Type = "get_state"

	case QueryParams:
		env.Type = "list_params"

	default:
		return nil, fmt.Errorf("unsupported request type: %T", r)
	}

	return json.Marshal(env)
}
