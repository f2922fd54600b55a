package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// samplingClient issues server-initiated sampling/createMessage
// requests to the connected client and correlates replies back to the
// waiting caller. Unlike inbound dispatch, these requests originate
// from the server, so the server must track its own outstanding IDs.
type samplingClient struct {
	server *Server

	mu       sync.Mutex
	nextID   int64
	pending  map[string]chan *Response
	capable  bool
}

func newSamplingClient(s *Server) *samplingClient {
	return &samplingClient{
		server:  s,
		pending: make(map[string]chan *Response),
	}
}

func (c *samplingClient) setClientCapable(v bool) {
	c.mu.Lock()
	c.capable = v
	c.mu.Unlock()
}

func (c *samplingClient) isCapable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capable
}

// deliver routes an inbound frame (which the server has already
// determined is a reply, not a request) to the goroutine waiting on
// it. Returns false if no pending request matches, meaning the caller
// should treat the frame as something else.
func (c *samplingClient) deliver(id json.RawMessage, line []byte) bool {
	c.mu.Lock()
	ch, ok := c.pending[string(id)]
	c.mu.Unlock()
	if !ok {
		return false
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return false
	}
	ch <- &resp
	return true
}

// Request sends a sampling/createMessage request and blocks for a
// reply, bounded by timeout. Returns (nil, nil) — not an error — when
// the client lacks the sampling capability, times out, refuses, or
// replies with non-text content, since every caller of this method
// must already have a deterministic fallback for exactly that case.
func (c *samplingClient) Request(ctx context.Context, params SamplingCreateMessageParams, timeout time.Duration) (*SamplingCreateMessageResult, error) {
	if !c.isCapable() {
		return nil, nil
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	idJSON, _ := json.Marshal(id)
	ch := make(chan *Response, 1)
	c.pending[string(idJSON)] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, string(idJSON))
		c.mu.Unlock()
	}()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling sampling params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      idJSON,
		Method:  "sampling/createMessage",
		Params:  paramsJSON,
	}
	if err := c.server.write(req); err != nil {
		return nil, fmt.Errorf("writing sampling request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			c.server.logger.Debug("sampling request refused", "message", resp.Error.Message)
			return nil, nil
		}
		resultJSON, err := json.Marshal(resp.Result)
		if err != nil {
			return nil, nil
		}
		var result SamplingCreateMessageResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, nil
		}
		if result.Content.Type != "text" {
			return nil, nil
		}
		return &result, nil
	case <-timer.C:
		c.server.logger.Debug("sampling request timed out")
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestSampling is the public entry point tools call through the
// server to perform server-initiated sampling.
func (s *Server) RequestSampling(ctx context.Context, params SamplingCreateMessageParams, timeout time.Duration) (*SamplingCreateMessageResult, error) {
	return s.sampling.Request(ctx, params, timeout)
}
