package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// panelctl - Command-line IPC Client
// ============================================================================
// This tool sends requests to the panel303 daemon via IPC.
//
// Usage:
//   panelctl set 74 100
//   panelctl get 74
//   panelctl state
//   panelctl list
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/pico303-panel.sock)
// ============================================================================

// Request types (duplicated from main package for standalone binary)
type Request interface{}

type MirrorParam struct {
	ControlID uint8 `json:"control_id"`
	Value     uint8 `json:"value"`
}

type QueryParam struct {
	ControlID uint8 `json:"control_id"`
}

type QueryState struct{}

type QueryParams struct{}

// RequestEnvelope wraps requests for JSON
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ParamState mirrors the daemon's view of one parameter table entry
type ParamState struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ControlID uint8  `json:"control_id"`
	Value     uint8  `json:"value"`
	Min       uint8  `json:"min"`
	Max       uint8  `json:"max"`
}

// StateSnapshot mirrors the daemon's view of the panel UI state
type StateSnapshot struct {
	Mode  string     `json:"mode"`
	Index int        `json:"index"`
	Count int        `json:"count"`
	Param ParamState `json:"param"`
}

func main() {
	socketPath := "/tmp/pico303-panel.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var req Request

	switch args[0] {
	case "set":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "error: set requires a CC number and a value\n")
			os.Exit(1)
		}
		cc := parseByte(args[1], "CC number")
		value := parseByte(args[2], "value")
		req = MirrorParam{ControlID: cc, Value: value}

	case "get":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: get requires a CC number\n")
			os.Exit(1)
		}
		req = QueryParam{ControlID: parseByte(args[1], "CC number")}

	case "state":
		req = QueryState{}

	case "list", "params":
		req = QueryParams{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send request
	data, err := sendRequest(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Print the result
	switch req.(type) {
	case QueryParam:
		var p ParamState
		if err := json.Unmarshal(data, &p); err != nil {
			fmt.Fprintf(os.Stderr, "error: decode parameter: %v\n", err)
			os.Exit(1)
		}
		printParam(p)

	case QueryState:
		var s StateSnapshot
		if err := json.Unmarshal(data, &s); err != nil {
			fmt.Fprintf(os.Stderr, "error: decode state: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("mode=%s cursor=%d/%d\n", s.Mode, s.Index+1, s.Count)
		printParam(s.Param)

	case QueryParams:
		var params []ParamState
		if err := json.Unmarshal(data, &params); err != nil {
			fmt.Fprintf(os.Stderr, "error: decode parameters: %v\n", err)
			os.Exit(1)
		}
		for _, p := range params {
			printParam(p)
		}

	default:
		fmt.Println("ok")
	}
}

// parseByte parses a 0-255 integer argument or exits with an error.
func parseByte(s, what string) uint8 {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid %s %q (need 0-255)\n", what, s)
		os.Exit(1)
	}
	return uint8(v)
}

func printParam(p ParamState) {
	fmt.Printf("%2d  %-12s cc=%-3d value=%3d range=[%d,%d]\n",
		p.Index, p.Name, p.ControlID, p.Value, p.Min, p.Max)
}

// sendRequest sends one request over the unix socket and returns the
// response's data payload.
func sendRequest(socketPath string, req Request) (json.RawMessage, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal request
	data, err := marshalRequest(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Send request (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Check response status
	if response.Status == "error" {
		return nil, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response.Data, nil
}

func marshalRequest(req Request) ([]byte, error) {
	var env RequestEnvelope

	switch r := req.(type) {
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
		return nil, fmt.Errorf("unknown request type: %T", req)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `panelctl - Control the panel303 daemon via IPC

Usage:
  panelctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/pico303-panel.sock)

Commands:
  set <cc> <value>    Mirror a parameter value into the panel table
                      (no change notification is sent back out)
  get <cc>            Show one parameter by MIDI CC number
  state               Show the panel mode and cursor position
  list, params        Show the full parameter table
  help, -h, --help    Show this help message

Examples:
  panelctl set 74 100
  panelctl get 74
  panelctl state
  panelctl -socket /var/run/pico303.sock list
`)
}
