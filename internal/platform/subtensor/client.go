// Package subtensor implements a WebSocket JSON-RPC client for the
// Bittensor subtensor chain. It exposes the dividend query and staking
// extrinsics the service needs, behind the domain.Ledger interface.
package subtensor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// defaultCallTimeout bounds a single RPC round trip when the caller's
	// context carries no deadline of its own.
	defaultCallTimeout = 30 * time.Second
)

// raoPerTao converts between TAO (display units) and RAO (chain units).
var raoPerTao = decimal.NewFromInt(1_000_000_000)

// Client talks JSON-RPC 2.0 over a WebSocket connection to a subtensor
// node. Calls are serialized on a single connection; a broken connection
// is re-dialed on the next call.
type Client struct {
	wsURL string
	seed  string

	mu     sync.Mutex
	conn   *websocket.Conn
	reqID  int64
	closed bool
}

// NewClient creates a subtensor client for the given WebSocket endpoint,
// e.g. "wss://test.finney.opentensor.ai:443". The seed is the hot wallet
// seed used to sign staking extrinsics; it may be empty for read-only use.
func NewClient(wsURL, seed string) *Client {
	return &Client{
		wsURL: wsURL,
		seed:  seed,
	}
}

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TaoDividends returns the dividend value for the (netuid, hotkey) pair,
// expressed in TAO.
func (c *Client) TaoDividends(ctx context.Context, netuid int, hotkey string) (float64, error) {
	raw, err := c.call(ctx, "subtensor_taoDividendsPerSubnet", []any{netuid, hotkey})
	if err != nil {
		return 0, fmt.Errorf("subtensor: tao dividends: %w", err)
	}

	var rao uint64
	if err := json.Unmarshal(raw, &rao); err != nil {
		return 0, fmt.Errorf("subtensor: decode dividends: %w", err)
	}

	tao, _ := decimal.NewFromUint64(rao).Div(raoPerTao).Float64()
	return tao, nil
}

// AddStake submits a stake extrinsic for amountTao TAO on the given hotkey.
// It returns the transaction reference reported by the node.
func (c *Client) AddStake(ctx context.Context, netuid int, hotkey string, amountTao float64) (string, error) {
	return c.submitStake(ctx, "subtensor_addStake", netuid, hotkey, amountTao)
}

// RemoveStake submits an unstake extrinsic for amountTao TAO on the given
// hotkey. It returns the transaction reference reported by the node.
func (c *Client) RemoveStake(ctx context.Context, netuid int, hotkey string, amountTao float64) (string, error) {
	return c.submitStake(ctx, "subtensor_removeStake", netuid, hotkey, amountTao)
}

func (c *Client) submitStake(ctx context.Context, method string, netuid int, hotkey string, amountTao float64) (string, error) {
	if c.seed == "" {
		return "", fmt.Errorf("subtensor: %s: no wallet seed configured", method)
	}

	rao := decimal.NewFromFloat(amountTao).Mul(raoPerTao).Round(0)
	if rao.Sign() <= 0 {
		return "", fmt.Errorf("subtensor: %s: amount %v does not convert to a positive RAO value", method, amountTao)
	}

	raw, err := c.call(ctx, method, []any{c.seed, netuid, hotkey, rao.String()})
	if err != nil {
		return "", fmt.Errorf("subtensor: %s: %w", method, err)
	}

	var txRef string
	if err := json.Unmarshal(raw, &txRef); err != nil {
		return "", fmt.Errorf("subtensor: decode %s result: %w", method, err)
	}
	return txRef, nil
}

// Connected reports whether the client currently holds an open connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Ping issues a lightweight RPC to verify the node is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.call(ctx, "system_health", nil); err != nil {
		return fmt.Errorf("subtensor: ping: %w", err)
	}
	return nil
}

// Close shuts down the connection. Subsequent calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn != nil {
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// call performs one JSON-RPC round trip. Calls are serialized; the
// connection is established lazily and dropped on any transport error so
// the next call re-dials.
func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCallTimeout)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed: %w", domain.ErrLedgerUnavailable)
	}

	if c.conn == nil {
		if err := c.dialLocked(ctx); err != nil {
			return nil, fmt.Errorf("connect %s: %w: %w", c.wsURL, domain.ErrLedgerUnavailable, err)
		}
	}

	c.reqID++
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID,
		Method:  method,
		Params:  params,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("write %s: %w: %w", method, domain.ErrLedgerUnavailable, err)
	}

	c.conn.SetReadDeadline(deadline)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("read %s: %w: %w", method, domain.ErrLedgerUnavailable, err)
		}

		var resp rpcResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			continue
		}
		// Skip subscription notifications and stale responses.
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// dialLocked establishes the WebSocket connection. Caller must hold c.mu.
func (c *Client) dialLocked(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// dropLocked discards a broken connection. Caller must hold c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Compile-time interface check.
var _ domain.Ledger = (*Client)(nil)
