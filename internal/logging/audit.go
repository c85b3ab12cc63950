package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event.
type AuditEventType string

const (
	// Solve transitions
	AuditSolveSubmit  AuditEventType = "solve_submit"
	AuditSolveConfirm AuditEventType = "solve_confirm"
	AuditSolveReset   AuditEventType = "solve_reset"
	AuditSolveReject  AuditEventType = "solve_reject"

	// Exclusion inputs
	AuditCrewAttempt  AuditEventType = "crew_attempt"
	AuditTraitIgnore  AuditEventType = "trait_ignore"
	AuditTraitRestore AuditEventType = "trait_restore"

	// Pipeline and sync
	AuditRecompute   AuditEventType = "recompute"
	AuditCollabPull  AuditEventType = "collab_pull"
	AuditCollabPost  AuditEventType = "collab_post"
	AuditStateDelete AuditEventType = "state_delete"
)

// AuditEvent is a structured record of one spotter state change.
type AuditEvent struct {
	Timestamp  time.Time
	EventType  AuditEventType
	ChainID    string
	Node       int // -1 when not node-scoped
	Target     string
	Success    bool
	DurationMs int64
	Count      int
	Error      string
	Message    string
}

// AuditLogger writes audit events scoped to one chain.
type AuditLogger struct {
	chainID string
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithChain creates an audit logger scoped to a chain.
func AuditWithChain(chainID string) *AuditLogger {
	return &AuditLogger{chainID: chainID}
}

// Log writes an audit event through the audit category.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsCategoryEnabled(CategoryAudit) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ChainID == "" {
		event.ChainID = a.chainID
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("chain", event.ChainID),
		zap.Time("at", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.Node >= 0 {
		fields = append(fields, zap.Int("node", event.Node))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.DurationMs))
	}
	if event.Count > 0 {
		fields = append(fields, zap.Int("count", event.Count))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	msg := event.Message
	if msg == "" {
		msg = string(event.EventType)
	}
	Base().Named(string(CategoryAudit)).Info(msg, fields...)
}

// Transition records a node-scoped state machine transition.
func (a *AuditLogger) Transition(eventType AuditEventType, node int, target string, err error) {
	ev := AuditEvent{EventType: eventType, Node: node, Target: target, Success: err == nil}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// Recompute records a pipeline run.
func (a *AuditLogger) Recompute(duration time.Duration, candidates int, err error) {
	ev := AuditEvent{
		EventType:  AuditRecompute,
		Node:       -1,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
		Target:     "candidates",
		Count:      candidates,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}
