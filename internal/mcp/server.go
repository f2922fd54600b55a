package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/librarymcp/librarymcp/internal/domain"
)

// ToolReasoner is implemented by domain errors that carry a
// machine-readable reason for a failed tool call (e.g. "patron_inactive",
// "no_copies"). Tool implementations return such errors and
// the server maps them onto a -32003 RPC error with a structured
// data.reason field, rather than inventing a parallel soft-error
// convention on top of ToolsCallResult.
type ToolReasoner interface {
	ToolReason() string
}

// ParamsInvalider is implemented by domain errors that should surface
// as -32602 invalid params rather than -32003 tool execution failed —
// an unknown entity id referenced in the tool's own arguments, as
// opposed to a business rule violated while executing it.
type ParamsInvalider interface {
	InvalidParams() bool
}

// Canceller is implemented by errors a long-running, batch-oriented
// tool returns when it observes its context cancelled mid-run.
// CancelProgress reports how much of the batch had already committed,
// so a cancelled bulk_import_books still tells the caller what landed.
type Canceller interface {
	CancelProgress() map[string]any
}

// Server implements the MCP protocol over stdio.
type Server struct {
	registry *Registry
	info     ServerInfo
	logger   *slog.Logger

	encMu sync.Mutex
	enc   *json.Encoder

	stateMu sync.Mutex
	state   SessionState

	wg sync.WaitGroup

	cancelMu    sync.Mutex
	cancelled   map[string]bool
	cancelFuncs map[string]context.CancelFunc

	sampling *samplingClient

	subsMu         sync.Mutex
	subsByTemplate map[string]map[string]bool
	templateByID   map[string]string
}

// NewServer creates an MCP server with the given registry and server info.
func NewServer(registry *Registry, info ServerInfo, logger *slog.Logger) *Server {
	s := &Server{
		registry:  registry,
		info:      info,
		logger:    logger,
		state:       StateUninitialized,
		cancelled:   make(map[string]bool),
		cancelFuncs: make(map[string]context.CancelFunc),

		subsByTemplate: make(map[string]map[string]bool),
		templateByID:   make(map[string]string),
	}
	s.enc = json.NewEncoder(os.Stdout)
	s.sampling = newSamplingClient(s)
	return s
}

func (s *Server) setState(state SessionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *Server) currentState() SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// write serializes writes to stdout: tool handler goroutines and the
// sampling client's outbound requests all share one encoder.
func (s *Server) write(v any) error {
	s.encMu.Lock()
	defer s.encMu.Unlock()
	return s.enc.Encode(v)
}

// Run reads JSON-RPC requests from stdin and writes responses to stdout.
// It blocks until stdin is closed or the context is cancelled. Each
// request is handled on its own goroutine (the cooperative scheduling
// model only forbids preemption within a handler, not concurrency
// across handlers); Run waits for all in-flight handlers to finish
// before returning so shutdown can drain cleanly.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	s.logger.Info("librarymcp server started", "name", s.info.Name, "version", s.info.Version)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.setState(StateStopping)
			s.wg.Wait()
			s.setState(StateStopped)
			return ctx.Err()
		default:
		}

		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}

		if s.handleAsSamplingReply(line) {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			resp := s.handleMessage(ctx, line)
			if resp != nil {
				if err := s.write(resp); err != nil {
					s.logger.Error("failed to write response", "error", err)
				}
			}
		}()
	}

	s.setState(StateStopping)
	s.wg.Wait()
	s.setState(StateStopped)

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading stdin: %w", err)
	}

	s.logger.Info("librarymcp server stopped (stdin closed)")
	return nil
}

// handleAsSamplingReply recognizes a reply to a server-initiated
// sampling/createMessage request: a frame with an ID but no method.
// Genuine requests always carry a method, so this distinguishes the
// two without needing a second transport channel.
func (s *Server) handleAsSamplingReply(line []byte) bool {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil || probe.Method != "" || probe.ID == nil {
		return false
	}
	return s.sampling.deliver(probe.ID, line)
}

// handleMessage parses a JSON-RPC request and dispatches to the appropriate handler.
func (s *Server) handleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("failed to parse request", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ErrCodeParse,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.ID == nil {
		s.handleNotification(&req)
		return nil
	}

	if s.isCancelled(req.ID) {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{
			Code: ErrCodeCancelled, Message: "request was cancelled",
		}}
	}

	s.logger.Debug("handling request", "method", req.Method, "id", string(req.ID))

	reqCtx, cleanup := s.cancellableContext(ctx, req.ID)
	result, rpcErr := s.dispatch(reqCtx, &req)
	cancelledMidRun := reqCtx.Err() == context.Canceled
	cleanup()

	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr == nil && cancelledMidRun {
		rpcErr = &RPCError{Code: ErrCodeCancelled, Message: "request was cancelled"}
	}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	s.forgetCancel(req.ID)
	return resp
}

func (s *Server) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized")
		s.setState(StateReady)
	case "$/cancelRequest":
		var p CancelParams
		if err := json.Unmarshal(req.Params, &p); err == nil {
			s.markCancelled(p.ID)
			s.logger.Debug("request cancelled", "id", string(p.ID), "reason", p.Reason)
		}
	default:
		s.logger.Debug("received notification", "method", req.Method)
	}
}

func (s *Server) markCancelled(id json.RawMessage) {
	s.cancelMu.Lock()
	s.cancelled[string(id)] = true
	cancel := s.cancelFuncs[string(id)]
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Server) isCancelled(id json.RawMessage) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	return s.cancelled[string(id)]
}

func (s *Server) forgetCancel(id json.RawMessage) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	delete(s.cancelled, string(id))
	delete(s.cancelFuncs, string(id))
}

// cancellableContext derives a context for a single request that is
// cancelled the moment a matching $/cancelRequest notification arrives,
// so long-running tools (bulk_import_books, catalog_maintenance) can
// observe ctx.Done() mid-batch instead of only being checked before
// dispatch starts. The returned cleanup must run once the request
// finishes, successfully or not.
func (s *Server) cancellableContext(ctx context.Context, id json.RawMessage) (context.Context, func()) {
	child, cancel := context.WithCancel(ctx)
	key := string(id)
	s.cancelMu.Lock()
	s.cancelFuncs[key] = cancel
	s.cancelMu.Unlock()
	return child, func() {
		s.cancelMu.Lock()
		delete(s.cancelFuncs, key)
		s.cancelMu.Unlock()
		cancel()
	}
}

// dispatch routes a request to the appropriate handler method.
func (s *Server) dispatch(ctx context.Context, req *Request) (any, *RPCError) {
	if req.Method != "initialize" {
		if s.currentState() == StateUninitialized {
			return nil, &RPCError{
				Code:    ErrCodeNotInitialized,
				Message: "server not initialized",
			}
		}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.Params)
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	case "prompts/list":
		return s.handlePromptsList()
	case "prompts/get":
		return s.handlePromptsGet(req.Params)
	case "resources/list":
		return s.handleResourcesList()
	case "resources/read":
		return s.handleResourcesRead(ctx, req.Params)
	case "resources/subscribe":
		return s.handleResourcesSubscribe(req.Params)
	case "resources/unsubscribe":
		return s.handleResourcesUnsubscribe(req.Params)
	default:
		return nil, &RPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	}
}

// handleInitialize responds to the MCP handshake.
func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	s.setState(StateInitializing)

	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &RPCError{
				Code:    ErrCodeInvalidParams,
				Message: "Invalid initialize params",
				Data:    err.Error(),
			}
		}
	}

	s.logger.Info("client connecting",
		"client", initParams.ClientInfo.Name,
		"client_version", initParams.ClientInfo.Version,
		"protocol_version", initParams.ProtocolVersion,
	)

	s.sampling.setClientCapable(initParams.Capabilities.Sampling != nil)

	caps := ServerCapability{
		Tools: &ToolsCapability{},
	}
	if s.registry.HasPrompts() {
		caps.Prompts = &PromptsCapability{}
	}
	if s.registry.HasResources() {
		caps.Resources = &ResourcesCapability{Subscribe: true}
	}

	return &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities:    caps,
		ServerInfo:      s.info,
	}, nil
}

// handleToolsList returns all registered tools.
func (s *Server) handleToolsList() (any, *RPCError) {
	return &ToolsListResult{
		Tools: s.registry.List(),
	}, nil
}

// handleToolsCall dispatches a tool call to the registry.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var callParams ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &RPCError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid tools/call params",
			Data:    err.Error(),
		}
	}

	tool := s.registry.Get(callParams.Name)
	if tool == nil {
		return nil, &RPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("tool not found: %s", callParams.Name),
		}
	}

	s.logger.Info("calling tool", "tool", callParams.Name)

	var result *ToolsCallResult
	var err error
	if pt, ok := tool.(ProgressTool); ok {
		reporter := s.newProgressReporter(callParams.ProgressToken)
		result, err = pt.ExecuteWithProgress(ctx, callParams.Arguments, reporter)
	} else {
		result, err = tool.Execute(ctx, callParams.Arguments)
	}
	if err != nil {
		s.logger.Error("tool execution failed", "tool", callParams.Name, "error", err)
		var cancelled Canceller
		if errors.As(err, &cancelled) {
			return nil, &RPCError{
				Code:    ErrCodeCancelled,
				Message: err.Error(),
				Data:    cancelled.CancelProgress(),
			}
		}
		var invalid ParamsInvalider
		if errors.As(err, &invalid) {
			return nil, &RPCError{
				Code:    ErrCodeInvalidParams,
				Message: err.Error(),
			}
		}
		var reasoner ToolReasoner
		if errors.As(err, &reasoner) {
			return nil, &RPCError{
				Code:    ErrCodeToolExecution,
				Message: err.Error(),
				Data:    map[string]string{"reason": reasoner.ToolReason()},
			}
		}
		return nil, &RPCError{
			Code:    ErrCodeInternal,
			Message: fmt.Sprintf("tool execution failed: %v", err),
		}
	}

	return result, nil
}

// handlePromptsList returns all registered prompts.
func (s *Server) handlePromptsList() (any, *RPCError) {
	return &PromptsListResult{
		Prompts: s.registry.ListPrompts(),
	}, nil
}

// handlePromptsGet returns a specific prompt by name.
func (s *Server) handlePromptsGet(params json.RawMessage) (any, *RPCError) {
	var getParams PromptsGetParams
	if err := json.Unmarshal(params, &getParams); err != nil {
		return nil, &RPCError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid prompts/get params",
			Data:    err.Error(),
		}
	}

	prompt := s.registry.GetPrompt(getParams.Name)
	if prompt == nil {
		return nil, &RPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("prompt not found: %s", getParams.Name),
		}
	}

	s.logger.Debug("getting prompt", "prompt", getParams.Name)

	result, err := prompt.Get(getParams.Arguments)
	if err != nil {
		var invalid ParamsInvalider
		if errors.As(err, &invalid) {
			return nil, &RPCError{
				Code:    ErrCodeInvalidParams,
				Message: err.Error(),
			}
		}
		return nil, &RPCError{
			Code:    ErrCodeInternal,
			Message: fmt.Sprintf("prompt error: %v", err),
		}
	}

	return result, nil
}

// handleResourcesList returns all registered resources.
func (s *Server) handleResourcesList() (any, *RPCError) {
	return &ResourcesListResult{
		Resources: s.registry.ListResources(),
	}, nil
}

// handleResourcesRead returns the content of a specific resource.
func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var readParams ResourcesReadParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &RPCError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid resources/read params",
			Data:    err.Error(),
		}
	}

	resource, _, uriParams, query, ok := s.registry.Resolve(readParams.URI)
	if !ok {
		return nil, &RPCError{
			Code:    ErrCodeResourceNotFound,
			Message: fmt.Sprintf("resource not found: %s", readParams.URI),
		}
	}

	s.logger.Debug("reading resource", "uri", readParams.URI)

	result, err := resource.Read(ctx, uriParams, query)
	if err != nil {
		var invalid ParamsInvalider
		if errors.As(err, &invalid) {
			return nil, &RPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &RPCError{Code: ErrCodeResourceNotFound, Message: err.Error()}
		}
		return nil, &RPCError{
			Code:    ErrCodeInternal,
			Message: fmt.Sprintf("resource read error: %v", err),
		}
	}

	return result, nil
}

// handleResourcesSubscribe records a subscription on a list resource
// and returns its id. Non-list resources (single-entity detail pages,
// the stats aggregate) reject subscription with invalid params, per
// spec.md §4.2's "allowed only on list URIs".
func (s *Server) handleResourcesSubscribe(params json.RawMessage) (any, *RPCError) {
	var p ResourcesSubscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "Invalid resources/subscribe params", Data: err.Error()}
	}
	resource, template, _, _, ok := s.registry.Resolve(p.URI)
	if !ok {
		return nil, &RPCError{Code: ErrCodeResourceNotFound, Message: fmt.Sprintf("resource not found: %s", p.URI)}
	}
	if !resource.Definition().List {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "subscriptions are only allowed on list URIs"}
	}

	id := s.addSubscription(template)
	return ResourcesSubscribeResult{SubscriptionID: id}, nil
}

// handleResourcesUnsubscribe removes a subscription; an unknown id is
// a no-op, per spec.md §4.2.
func (s *Server) handleResourcesUnsubscribe(params json.RawMessage) (any, *RPCError) {
	var p ResourcesUnsubscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "Invalid resources/unsubscribe params", Data: err.Error()}
	}
	s.removeSubscription(p.SubscriptionID)
	return map[string]any{}, nil
}

// addSubscription registers a new subscription against a template URI
// and returns its id.
func (s *Server) addSubscription(template string) string {
	id := uuid.NewString()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.subsByTemplate[template] == nil {
		s.subsByTemplate[template] = make(map[string]bool)
	}
	s.subsByTemplate[template][id] = true
	s.templateByID[id] = template
	return id
}

// removeSubscription drops a subscription by id. Unknown ids are a no-op.
func (s *Server) removeSubscription(id string) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	template, ok := s.templateByID[id]
	if !ok {
		return
	}
	delete(s.templateByID, id)
	delete(s.subsByTemplate[template], id)
	if len(s.subsByTemplate[template]) == 0 {
		delete(s.subsByTemplate, template)
	}
}

// NotifyResourceUpdated sends a notifications/resources/updated message
// to every subscription currently held against the given template URI
// (e.g. "library://books"). Tools that mutate circulation state call
// this after a successful commit; it is a no-op if nobody is subscribed.
func (s *Server) NotifyResourceUpdated(template, uri string, diff map[string]any) {
	s.subsMu.Lock()
	ids := make([]string, 0, len(s.subsByTemplate[template]))
	for id := range s.subsByTemplate[template] {
		ids = append(ids, id)
	}
	s.subsMu.Unlock()

	for _, id := range ids {
		notification := struct {
			JSONRPC string                 `json:"jsonrpc"`
			Method  string                 `json:"method"`
			Params  ResourcesUpdatedParams `json:"params"`
		}{
			JSONRPC: "2.0",
			Method:  "notifications/resources/updated",
			Params: ResourcesUpdatedParams{
				URI:            uri,
				SubscriptionID: id,
				Diff:           diff,
			},
		}
		if err := s.write(notification); err != nil {
			s.logger.Error("failed to send resource update notification", "error", err)
		}
	}
}
