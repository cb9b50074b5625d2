// Package agentstate defines AgentState, the orchestration graph's single
// mutable value-object, and the monotonic security-clearance /
// retry-cap / append-only-audit-trail invariants the graph enforces on it.
package agentstate

import (
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/semantic"
)

// AuthStatus tracks bearer-token validation progress.
type AuthStatus string

const (
	AuthPending       AuthStatus = "pending"
	AuthAuthenticated AuthStatus = "authenticated"
	AuthTokenInvalid  AuthStatus = "token_invalid"
	AuthExpired       AuthStatus = "expired"
)

// SecurityClearance is the graph's monotonic forward-or-blocked progress
// marker through the security layers.
type SecurityClearance string

const (
	ClearancePending        SecurityClearance = "pending"
	ClearanceLayer1Passed   SecurityClearance = "layer1_passed"
	ClearanceLayer2Passed   SecurityClearance = "layer2_passed"
	ClearanceLayer3Passed   SecurityClearance = "layer3_passed"
	ClearanceApproved       SecurityClearance = "approved"
	ClearanceBlocked        SecurityClearance = "blocked"
)

// clearanceRank orders clearances for the monotonic-forward invariant;
// Blocked is absorbing and comparable to nothing but itself.
var clearanceRank = map[SecurityClearance]int{
	ClearancePending:      0,
	ClearanceLayer1Passed: 1,
	ClearanceLayer2Passed: 2,
	ClearanceLayer3Passed: 3,
	ClearanceApproved:     4,
}

// CanAdvanceTo reports whether transitioning from s to next honors the
// monotonic-forward-or-blocked invariant.
func (s SecurityClearance) CanAdvanceTo(next SecurityClearance) bool {
	if next == ClearanceBlocked {
		return s != ClearanceBlocked
	}
	if s == ClearanceBlocked {
		return false
	}
	return clearanceRank[next] >= clearanceRank[s]
}

// AuditEntry is one append-only record of a graph node transition.
type AuditEntry struct {
	Timestamp time.Time
	FromNode  string
	ToNode    string
	Detail    string
}

const maxRetries = 3

// State is AgentState: the workflow's single mutable value-object, owned
// exclusively by the executor for the lifetime of one request.
type State struct {
	RequestID   string
	UserQuery   string
	BearerToken string
	UserContext *credential.Principal

	AuthStatus        AuthStatus
	SecurityClearance SecurityClearance

	QueryIntent     pipeline.Intent
	QueryComplexity pipeline.QueryComplexity
	IsMetaQuery     bool
	Entities        []pipeline.Entity
	SuggestedModels []string
	FieldMappings   map[string]pipeline.FieldMapping

	DiscoveredModels []mdh.ModelDescriptor
	TargetModelID    string
	ConstructedQuery *mdh.CanonicalQuery
	QueryResults     *mdh.QueryResult
	FormattedResponse *pipeline.FormattedResponse

	ThreatAssessment     *semantic.CombinedAssessment
	auditTrail           []AuditEntry
	ProactiveInsights    []pipeline.ProactiveInsight
	FollowUpSuggestions  []pipeline.FollowUpSuggestion

	ErrorState string
	retryCount int

	ProcessingStartTime    time.Time
	SecurityValidationTime time.Duration
	QueryExecutionTime     time.Duration
}

// New initializes a State for one incoming request.
func New(requestID, userQuery, bearerToken string) *State {
	return &State{
		RequestID:           requestID,
		UserQuery:           userQuery,
		BearerToken:         bearerToken,
		AuthStatus:          AuthPending,
		SecurityClearance:   ClearancePending,
		FieldMappings:       make(map[string]pipeline.FieldMapping),
		ProcessingStartTime: time.Now(),
	}
}

// AdvanceClearance transitions SecurityClearance, returning false (and
// leaving state untouched) if the transition would violate the
// monotonic-forward-or-blocked invariant.
func (s *State) AdvanceClearance(next SecurityClearance) bool {
	if !s.SecurityClearance.CanAdvanceTo(next) {
		return false
	}
	s.SecurityClearance = next
	return true
}

// SetQueryResults enforces that results are only ever attached while
// clearance is approved.
func (s *State) SetQueryResults(results *mdh.QueryResult) bool {
	if s.SecurityClearance != ClearanceApproved {
		return false
	}
	s.QueryResults = results
	return true
}

// RecordAudit appends an entry to the request's audit trail. The trail is
// append-only: there is no remove/replace operation.
func (s *State) RecordAudit(fromNode, toNode, detail string) {
	s.auditTrail = append(s.auditTrail, AuditEntry{
		Timestamp: time.Now(),
		FromNode:  fromNode,
		ToNode:    toNode,
		Detail:    detail,
	})
}

// AuditTrail returns the accumulated trail. Callers must not mutate the
// returned slice's backing array.
func (s *State) AuditTrail() []AuditEntry {
	return s.auditTrail
}

// RetryCount returns the current retry attempt count for execute_query.
func (s *State) RetryCount() int {
	return s.retryCount
}

// IncrementRetry increments the retry counter, returning false once the
// cap of 3 is reached.
func (s *State) IncrementRetry() bool {
	if s.retryCount >= maxRetries {
		return false
	}
	s.retryCount++
	return true
}
