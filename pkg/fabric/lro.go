package fabric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
)

// OperationState is the lifecycle state of a long-running operation.
type OperationState int

// Operation states. Succeeded, Failed and TimedOut are terminal.
const (
	StateSubmitted OperationState = iota
	StatePolling
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s OperationState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("OperationState(%d)", int(s))
	}
}

// Terminal reports whether no further polling happens from s.
func (s OperationState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// Operation is a handle to a long-running operation.
type Operation struct {
	Location string
	Interval time.Duration
	Timeout  time.Duration

	// Schedule overrides the constant Interval wait between polls.
	Schedule backoff.BackOff
}

// OperationResult is the outcome of polling.
type OperationResult struct {
	State   OperationState
	Payload []byte
	Polls   int
}

// NewOperation builds a handle from a 202 response using the configured
// poll interval and timeout.
func (c *Client) NewOperation(resp *Response) (Operation, error) {
	loc := resp.OperationLocation()
	if loc == "" {
		return Operation{}, &FormatError{Endpoint: "operation", Reason: "202 response without Operation-Location"}
	}
	return Operation{Location: loc, Interval: c.cfg.PollInterval, Timeout: c.cfg.PollTimeout}, nil
}

// Poll polls op until it reaches a terminal state. The first poll happens
// immediately. A Succeeded operation returns its final payload; when the
// last status response points at a result document, that document is
// returned instead. Failed and TimedOut operations return an
// *OperationError alongside the result.
//
// Poll returns within op.Timeout: waits are cut to the time left and every
// request runs under the operation deadline. A request still in flight at
// the deadline ends the operation as TimedOut.
func (c *Client) Poll(ctx context.Context, op Operation) (*OperationResult, error) {
	if op.Location == "" {
		return nil, fmt.Errorf("%w: operation location is empty", ErrInvalidArgument)
	}
	if op.Interval <= 0 {
		op.Interval = c.cfg.PollInterval
	}
	if op.Timeout <= 0 {
		op.Timeout = c.cfg.PollTimeout
	}
	schedule := op.Schedule
	if schedule == nil {
		schedule = backoff.NewConstantBackOff(op.Interval)
	}
	schedule.Reset()

	result := &OperationResult{State: StateSubmitted}
	start := c.clock.Now()
	remaining := func() time.Duration { return op.Timeout - c.clock.Since(start) }

	opCtx, cancel := context.WithTimeout(ctx, op.Timeout)
	defer cancel()

	for remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		resp, err := c.Do(opCtx, Request{Method: http.MethodGet, Endpoint: op.Location, LRO: true})
		result.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if opCtx.Err() != nil {
				break
			}
			return c.failed(result, op, errorPayload(err)), fmt.Errorf("polling %s: %w", op.Location, &OperationError{
				Location: op.Location,
				State:    StateFailed,
				Payload:  errorPayload(err),
			})
		}
		if !pollStatusOK(resp.StatusCode) {
			return c.failed(result, op, resp.Body), &OperationError{Location: op.Location, State: StateFailed, Payload: resp.Body}
		}

		result.Payload = resp.Body
		switch operationStatus(resp.Body) {
		case StateSucceeded:
			if loc := resp.Header.Get("Location"); loc != "" && loc != op.Location {
				final, err := c.Do(opCtx, Request{Method: http.MethodGet, Endpoint: loc})
				if err != nil {
					if ctx.Err() == nil && opCtx.Err() != nil {
						return c.timedOut(ctx, result, op)
					}
					return result, fmt.Errorf("fetching operation result: %w", err)
				}
				result.Payload = final.Body
			}
			result.State = StateSucceeded
			c.logger.DebugContext(ctx, "operation succeeded", "location", op.Location, "polls", result.Polls)
			return result, nil
		case StateFailed:
			return c.failed(result, op, resp.Body), &OperationError{Location: op.Location, State: StateFailed, Payload: resp.Body}
		}

		result.State = StatePolling
		if observe, ok := ctx.Value(pollObserverKey{}).(PollObserver); ok {
			observe(PollProgress{
				Polls:           result.Polls,
				Status:          gjson.GetBytes(resp.Body, "status").String(),
				PercentComplete: percentComplete(resp.Body),
			})
		}
		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		wait = min(wait, remaining())
		if wait <= 0 {
			break
		}
		if err := c.sleep(opCtx, wait); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			break
		}
	}

	return c.timedOut(ctx, result, op)
}

func (c *Client) timedOut(ctx context.Context, result *OperationResult, op Operation) (*OperationResult, error) {
	c.logger.WarnContext(ctx, "operation timed out", "location", op.Location, "timeout", op.Timeout, "polls", result.Polls)
	result.State = StateTimedOut
	result.Payload = nil
	return result, &OperationError{Location: op.Location, State: StateTimedOut}
}

// PollProgress describes an operation that is still running.
type PollProgress struct {
	Polls int

	// Status is the platform's status text, such as "Running".
	Status string

	// PercentComplete is -1 when the platform does not report it.
	PercentComplete int
}

// PollObserver receives progress after every poll that leaves an operation
// running.
type PollObserver func(PollProgress)

type pollObserverKey struct{}

// WithPollObserver returns a context whose long-running operations report
// to fn while they poll.
func WithPollObserver(ctx context.Context, fn PollObserver) context.Context {
	return context.WithValue(ctx, pollObserverKey{}, fn)
}

func percentComplete(body []byte) int {
	v := gjson.GetBytes(body, "percentComplete")
	if !v.Exists() {
		return -1
	}
	return int(v.Int())
}

func (c *Client) failed(result *OperationResult, op Operation, payload []byte) *OperationResult {
	result.State = StateFailed
	result.Payload = payload
	c.logger.Warn("operation failed", "location", op.Location, "polls", result.Polls, "error", operationErrorMessage(payload))
	return result
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := c.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// awaitResponse returns the body of resp, polling first when the platform
// answered with 202 Accepted.
func (c *Client) awaitResponse(ctx context.Context, resp *Response, interval time.Duration) ([]byte, error) {
	if !resp.Accepted() {
		return resp.Body, nil
	}
	op, err := c.NewOperation(resp)
	if err != nil {
		return nil, err
	}
	if interval > 0 {
		op.Interval = interval
	}
	result, err := c.Poll(ctx, op)
	if err != nil {
		return nil, err
	}
	return result.Payload, nil
}

func pollStatusOK(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated || code == http.StatusAccepted
}

// operationStatus maps the status field of a poll response to a state.
// Unknown or missing values mean the operation is still running.
func operationStatus(body []byte) OperationState {
	status := gjson.GetBytes(body, "status")
	if !status.Exists() {
		status = gjson.GetBytes(body, "operationStatus")
	}
	switch strings.ToLower(status.String()) {
	case "succeeded", "completed":
		return StateSucceeded
	case "failed", "canceled", "cancelled":
		return StateFailed
	default:
		return StatePolling
	}
}

// operationErrorMessage extracts a human readable failure reason.
func operationErrorMessage(payload []byte) string {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return truncate(string(payload), 200)
	}
	for _, path := range []string{"error.message", "error.errorCode", "message", "errorCode"} {
		if v := gjson.GetBytes(payload, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func errorPayload(err error) []byte {
	var te *TransportError
	if errors.As(err, &te) && te.Body != "" {
		return []byte(te.Body)
	}
	return nil
}
