// Package graph implements the orchestration graph (C9): a directed
// workflow over agentstate.State with named nodes, conditional routing,
// a single retryable node, and mandatory per-transition audit emission.
// Grounded on the teacher's action.InterceptorChain chain-of-responsibility
// idiom (internal/domain/action/chain.go), generalized from a fixed
// two-link proxy chain into a named-node graph with conditional edges.
package graph

import (
	"context"
	"errors"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/agentstate"
)

// Node names, fixed
const (
	NodeValidateBearerToken        = "validate_bearer_token"
	NodeCheckUserAuthorization     = "check_user_authorization"
	NodeComprehensiveSecurityCheck = "comprehensive_security_analysis"
	NodeExecuteQuery               = "execute_query"
	NodeGenerateResponse           = "generate_response"
	NodeGenerateInsights           = "generate_insights"
	NodeSuggestFollowUps           = "suggest_follow_ups"
	NodeEnd                        = "end"
)

// NodeFunc executes one node's logic against shared state, returning the
// name of the next node to run (NodeEnd terminates the walk).
type NodeFunc func(ctx context.Context, state *agentstate.State) (next string, err error)

// AuditEmitter is notified of every node enter/exit "every
// enter/exit emits an AuditEvent" requirement. Implementations forward to
// the audit sink (C1).
type AuditEmitter interface {
	EmitTransition(ctx context.Context, state *agentstate.State, fromNode, toNode string, err error)
}

// RetryPolicy governs the one retryable node, execute_query:
// exponential backoff with a base, factor 2, and a cap.
type RetryPolicy struct {
	Base   time.Duration
	Factor float64
	Cap    time.Duration
}

// DefaultRetryPolicy is the execute_query policy: 250ms base, factor
// 2, capped at 4s.
var DefaultRetryPolicy = RetryPolicy{Base: 250 * time.Millisecond, Factor: 2, Cap: 4 * time.Second}

// BackoffFor returns the delay before retry attempt n (1-indexed),
// clamped to Cap.
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	d := p.Base
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d > p.Cap {
			return p.Cap
		}
	}
	if d > p.Cap {
		d = p.Cap
	}
	return d
}

// TransientMDHError is implemented by errors the execute_query node may
// retry: connection failures, 5xx responses, timeouts.
type TransientMDHError interface {
	error
	Transient() bool
}

// ErrCancelled is returned when the cooperative cancellation signal fires
// between node executions.
var ErrCancelled = errors.New("graph execution cancelled")

// Executor runs the fixed node sequence over a State, honoring
// cancellation, the single-node retry policy, and per-transition audit
// emission.
type Executor struct {
	nodes   map[string]NodeFunc
	audit   AuditEmitter
	retry   RetryPolicy
	sleep   func(time.Duration)
}

// NewExecutor builds an Executor. audit may be nil to disable transition
// emission (tests only -- production wiring always supplies a sink).
func NewExecutor(nodes map[string]NodeFunc, audit AuditEmitter) *Executor {
	return &Executor{nodes: nodes, audit: audit, retry: DefaultRetryPolicy, sleep: time.Sleep}
}

// Run walks the graph starting at NodeValidateBearerToken until it reaches
// NodeEnd, an unrecoverable error, or ctx is cancelled.
func (e *Executor) Run(ctx context.Context, state *agentstate.State) error {
	current := NodeValidateBearerToken
	for current != NodeEnd {
		select {
		case <-ctx.Done():
			return ErrCancelled
		default:
		}

		fn, ok := e.nodes[current]
		if !ok {
			return errors.New("graph: no implementation registered for node " + current)
		}

		next, err := e.runNode(ctx, current, fn, state)
		if e.audit != nil {
			e.audit.EmitTransition(ctx, state, current, next, err)
		}
		state.RecordAudit(current, next, transitionDetail(err))

		if err != nil && current != NodeExecuteQuery {
			return err
		}
		if err != nil && current == NodeExecuteQuery {
			// runNode already exhausted the retry budget before
			// surfacing this error.
			return err
		}
		current = next
	}
	return nil
}

// runNode executes fn, applying the retry policy only when current is
// execute_query and the error is transient.
func (e *Executor) runNode(ctx context.Context, current string, fn NodeFunc, state *agentstate.State) (string, error) {
	next, err := fn(ctx, state)
	if err == nil || current != NodeExecuteQuery {
		return next, err
	}

	transient, ok := err.(TransientMDHError)
	if !ok || !transient.Transient() {
		return next, err
	}

	for state.IncrementRetry() {
		select {
		case <-ctx.Done():
			return next, ErrCancelled
		default:
		}
		e.sleep(e.retry.BackoffFor(state.RetryCount()))
		next, err = fn(ctx, state)
		if err == nil {
			return next, nil
		}
		transient, ok = err.(TransientMDHError)
		if !ok || !transient.Transient() {
			return next, err
		}
	}
	return next, err
}

func transitionDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
