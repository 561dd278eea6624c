// Package engine talks to the pico-303 sound engine's websocket control
// interface: JSON commands over a single connection, one response per
// request.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ParamValue is one parameter reading reported by the engine.
type ParamValue struct {
	ControlID uint8 `json:"control_id"`
	Value     uint8 `json:"value"`
}

// Client defines the operations the daemon needs from the engine link.
// This allows for mocking in tests.
type Client interface {
	// SetParam pushes one parameter change to the engine.
	SetParam(controlID, value uint8) error

	// GetParams queries the engine's full parameter state, used to mirror
	// values into the panel table at startup.
	GetParams() ([]ParamValue, error)

	// GetVersion queries the engine firmware/build version.
	GetVersion() (string, error)

	Close() error
}

// WSClient manages the websocket connection to the engine.
type WSClient struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	url         string
	logger      *slog.Logger
	readTimeout time.Duration
}

// NewWSClient creates an engine client and establishes the initial
// connection.
func NewWSClient(wsURL string, logger *slog.Logger, readTimeout int) (*WSClient, error) {
	// Validate URL
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}

	client := &WSClient{
		url:         wsURL,
		logger:      logger,
		readTimeout: time.Duration(readTimeout) * time.Millisecond,
	}

	// Establish initial connection with retry
	if err := client.connectWithRetry(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect establishes a websocket connection to the engine
func (c *WSClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid ws url: %w", err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}

	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

// connectWithRetry attempts to connect with backoff
func (c *WSClient) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to engine", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("engine connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after 10 attempts: %w", lastErr)
}

// ensureConnected checks connection and reconnects if necessary
func (c *WSClient) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("engine connection lost; reconnecting...")
	return c.connectWithRetry()
}

// sendAndRead sends a command and waits for the engine's response
func (c *WSClient) sendAndRead(v any, timeout time.Duration) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("no websocket connection")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	// Set read deadline
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})

	_, message, err := c.conn.ReadMessage()
	if err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	return message, nil
}

// Close closes the websocket connection
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// SetParam sends a SetParam command for one control change number.
func (c *WSClient) SetParam(controlID, value uint8) error {
	cmd := map[string]any{"SetParam": ParamValue{ControlID: controlID, Value: value}}

	response, err := c.sendAndRead(cmd, c.readTimeout)
	if err != nil {
		return fmt.Errorf("set param: %w", err)
	}

	var setResp struct {
		SetParam struct {
			Result string `json:"result"`
		} `json:"SetParam"`
	}

	if err := json.Unmarshal(response, &setResp); err != nil {
		c.logger.Warn("failed to parse SetParam response", "error", err)
		return nil // Assume success
	}

	c.logger.Debug("SetParam", "control", controlID, "value", value, "result", setResp.SetParam.Result)

	return nil
}

// GetParams queries the engine for its full parameter state.
func (c *WSClient) GetParams() ([]ParamValue, error) {
	cmd := "GetParams"

	response, err := c.sendAndRead(cmd, c.readTimeout)
	if err != nil {
		return nil, fmt.Errorf("get params: %w", err)
	}

	var resp struct {
		GetParams struct {
			Result string       `json:"result"`
			Value  []ParamValue `json:"value"`
		} `json:"GetParams"`
	}

	if err := json.Unmarshal(response, &resp); err != nil {
		c.logger.Warn("failed to parse GetParams response", "error", err)
		return nil, err
	}

	c.logger.Debug("GetParams", "count", len(resp.GetParams.Value), "result", resp.GetParams.Result)

	return resp.GetParams.Value, nil
}

// GetVersion queries the engine build version.
func (c *WSClient) GetVersion() (string, error) {
	cmd := "GetVersion"

	response, err := c.sendAndRead(cmd, c.readTimeout)
	if err != nil {
		return "", fmt.Errorf("get version: %w", err)
	}

	var resp struct {
		GetVersion struct {
			Result string `json:"result"`
			Value  string `json:"value"`
		} `json:"GetVersion"`
	}

	if err := json.Unmarshal(response, &resp); err != nil {
		c.logger.Warn("failed to parse GetVersion response", "error", err)
		return "", err
	}

	c.logger.Debug("GetVersion", "version", resp.GetVersion.Value, "result", resp.GetVersion.Result)

	return resp.GetVersion.Value, nil
}
