package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/token"
)

// ErrForbidden means the request's declared call or tenant does not match
// the token's binding. This is an authorization failure, not a tool
// outcome, so it surfaces as an error instead of an envelope.
var ErrForbidden = errors.New("token is not bound to this call and tenant")

// Handler executes one named tool. Implementations return either a data map
// or a ToolError; they never panic on bad arguments.
type Handler interface {
	Name() string
	Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError)
}

// ExchangeRecorder receives the tool_call/tool_result audit pair after each
// fresh execution. Satisfied by the timeline service.
type ExchangeRecorder interface {
	RecordToolExchange(ctx context.Context, callID, tool string, args, result map[string]interface{}) error
}

// sideEffecting marks tools whose execution changes the outside world.
// Only these participate in idempotent replay.
var sideEffecting = map[string]bool{
	"book_showing":     true,
	"request_callback": true,
}

// Request is one tool invocation as declared by the client.
type Request struct {
	CallID         string
	TenantID       string
	Tool           string
	Args           map[string]interface{}
	IdempotencyKey string
}

// Result carries the envelope plus its exact serialization. Raw is what
// goes on the wire: replays return the stored bytes untouched, so a
// replayed response is byte-for-byte identical to the original.
type Result struct {
	Envelope Envelope
	Raw      []byte
	Replayed bool
}

// Dispatcher routes tool requests through authorization, validation,
// idempotent replay, and bounded execution.
type Dispatcher struct {
	handlers map[string]Handler
	idem     IdempotencyStore
	recorder ExchangeRecorder
	timeout  time.Duration
	log      *zap.Logger
}

func NewDispatcher(idem IdempotencyStore, recorder ExchangeRecorder, timeout time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		idem:     idem,
		recorder: recorder,
		timeout:  timeout,
		log:      log,
	}
}

// Register adds a handler to the tool set.
func (d *Dispatcher) Register(h Handler) {
	d.handlers[h.Name()] = h
}

// Dispatch runs one tool request on behalf of the verified identity.
func (d *Dispatcher) Dispatch(ctx context.Context, id *token.Identity, req Request) (*Result, error) {
	// The token is the authority on which call this is. A mismatched body
	// is rejected before any handler sees the arguments.
	if req.CallID != id.CallID || req.TenantID != id.TenantID {
		d.log.Warn("Tool request rejected: identity mismatch",
			zap.String("token_call_id", id.CallID),
			zap.String("request_call_id", req.CallID),
			zap.String("tool", req.Tool),
		)
		return nil, ErrForbidden
	}

	handler, ok := d.handlers[req.Tool]
	if !ok {
		return d.finish(ctx, req, Failure(NotFoundError(fmt.Sprintf("unknown tool: %s", req.Tool))), "")
	}

	replayKey := ""
	if sideEffecting[req.Tool] && req.IdempotencyKey != "" {
		replayKey = cacheKey(req.TenantID, req.Tool, req.IdempotencyKey)
		raw, found, err := d.idem.Get(ctx, replayKey)
		if err != nil {
			d.log.Warn("Idempotency lookup failed, executing fresh", zap.Error(err), zap.String("tool", req.Tool))
		} else if found {
			var env Envelope
			if err := json.Unmarshal(raw, &env); err == nil {
				d.log.Info("Tool envelope replayed",
					zap.String("call_id", req.CallID),
					zap.String("tool", req.Tool),
				)
				return &Result{Envelope: env, Raw: raw, Replayed: true}, nil
			}
		}
	}

	env := d.execute(ctx, handler, req.Args)
	return d.finish(ctx, req, env, replayKey)
}

// execute runs the handler with a deadline and panic recovery. A panicking
// or overrunning handler becomes a retryable envelope, never a 500.
func (d *Dispatcher) execute(ctx context.Context, handler Handler, args map[string]interface{}) Envelope {
	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan Envelope, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("Tool handler panicked",
					zap.String("tool", handler.Name()),
					zap.Any("panic", r),
				)
				done <- Failure(ExecutionError("tool execution failed"))
			}
		}()

		data, toolErr := handler.Execute(execCtx, args)
		if toolErr != nil {
			done <- Failure(toolErr)
			return
		}
		done <- Success(data)
	}()

	select {
	case env := <-done:
		return env
	case <-execCtx.Done():
		d.log.Warn("Tool execution timed out",
			zap.String("tool", handler.Name()),
			zap.Duration("timeout", d.timeout),
		)
		return Failure(TimeoutError(fmt.Sprintf("tool did not finish within %s", d.timeout)))
	}
}

// finish serializes the envelope, stores it for replay when applicable, and
// records the audit pair on the timeline.
func (d *Dispatcher) finish(ctx context.Context, req Request, env Envelope, replayKey string) (*Result, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}

	if replayKey != "" && env.OK {
		if err := d.idem.Set(ctx, replayKey, raw); err != nil {
			d.log.Warn("Failed to store envelope for replay", zap.Error(err), zap.String("tool", req.Tool))
		}
	}

	if d.recorder != nil {
		result := map[string]interface{}{"ok": env.OK}
		if env.OK {
			result["data"] = env.Data
		} else {
			result["error"] = map[string]interface{}{
				"kind":      env.Error.Kind,
				"message":   env.Error.Message,
				"retryable": env.Error.Retryable,
			}
		}
		if err := d.recorder.RecordToolExchange(ctx, req.CallID, req.Tool, req.Args, result); err != nil {
			d.log.Warn("Failed to record tool exchange", zap.Error(err), zap.String("call_id", req.CallID))
		}
	}

	return &Result{Envelope: env, Raw: raw}, nil
}
