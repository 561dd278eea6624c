package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server allows external clients to send JSON requests to the daemon
// via a Unix domain socket. This enables:
//   - Mirroring parameter values changed by the sequencer or patch loader
//   - Inspecting the panel state from scripts and debugging tools
//   - UI/Web interface control
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "request_name", "data": {...}}
//   - Server responds: {"status": "ok", "data": {...}} or
//     {"status": "error", "error": "msg"}
// ============================================================================

// ipcReplyTimeout bounds how long a query waits for the daemon loop.
const ipcReplyTimeout = 1 * time.Second

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // error message if status == "error"
	Data   any    `json:"data,omitempty"`  // query result if the request was a query
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, requests chan<- Request, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	// Create Unix domain socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Make socket accessible (consider security implications in production)
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Exit cleanly on shutdown/close.
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		// Handle connection in a separate goroutine.
		go handleIPCConnection(conn, requests, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, requests chan<- Request, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		req, err := UnmarshalRequest([]byte(line))
		if err != nil {
			response := IPCResponse{
				Status: "error",
				Error:  fmt.Sprintf("parse request: %v", err),
			}
			if encErr := encoder.Encode(response); encErr != nil {
				logger.Error("IPC failed to send error response", "error", encErr)
			}
			continue
		}

		response := dispatchRequest(req, requests)
		if encErr := encoder.Encode(response); encErr != nil {
			logger.Error("IPC failed to send response", "error", encErr)
		}
	}

	logger.Debug("IPC connection closed")
}

// dispatchRequest posts a request to the daemon loop. Queries get a reply
// channel attached first and wait (bounded) for the daemon's answer.
func dispatchRequest(req Request, requests chan<- Request) IPCResponse {
	switch q := req.(type) {
	case QueryParam:
		reply := make(chan ParamState, 1)
		q.Reply = reply
		if !postRequest(requests, q) {
			return queueFullResponse()
		}
		select {
		case ps, ok := <-reply:
			if !ok {
				return IPCResponse{
					Status: "error",
					Error:  fmt.Sprintf("no parameter with control_id %d", q.ControlID),
				}
			}
			return IPCResponse{Status: "ok", Data: ps}
		case <-time.After(ipcReplyTimeout):
			return timeoutResponse()
		}

	case QueryState:
		reply := make(chan StateSnapshot, 1)
		q.Reply = reply
		if !postRequest(requests, q) {
			return queueFullResponse()
		}
		select {
		case snap := <-reply:
			return IPCResponse{Status: "ok", Data: snap}
		case <-time.After(ipcReplyTimeout):
			return timeoutResponse()
		}

	case QueryParams:
		reply := make(chan []ParamState, 1)
		q.Reply = reply
		if !postRequest(requests, q) {
			return queueFullResponse()
		}
		select {
		case params := <-reply:
			return IPCResponse{Status: "ok", Data: params}
		case <-time.After(ipcReplyTimeout):
			return timeoutResponse()
		}

	default:
		// Fire-and-forget requests (mirror writes).
		if !postRequest(requests, req) {
			return queueFullResponse()
		}
		return IPCResponse{Status: "ok"}
	}
}

// postRequest enqueues without blocking; a full daemon queue means the caller
// gets an error instead of a stalled connection.
func postRequest(requests chan<- Request, req Request) bool {
	select {
	case requests <- req:
		return true
	default:
		return false
	}
}

func queueFullResponse() IPCResponse {
	return IPCResponse{Status: "error", Error: "request queue full"}
}

func timeoutResponse() IPCResponse {
	return IPCResponse{Status: "error", Error: "timed out waiting for daemon"}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================
// These functions can be used to send requests to the daemon from external
// programs or for testing.
// ============================================================================

// SendIPCRequest sends a request to the daemon via IPC and returns the
// decoded response. A response with an error status is returned alongside a
// non-nil error so callers can treat daemon failures like transport failures.
func SendIPCRequest(socketPath string, req Request) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal request
	data, err := MarshalRequest(req)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	// Send request (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	// Read response
	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}

	return resp, nil
}
