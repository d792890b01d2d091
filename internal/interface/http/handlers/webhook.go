package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE WEBHOOK PAYLOAD
// The grade entry system notifies us after it writes grades, evaluations
// or career goals so that cached reports can be dropped.
// ══════════════════════════════════════════════════════════════════════════════

// GradeEventType names an upstream change.
type GradeEventType string

const (
	EventGradeRecorded     GradeEventType = "grade.recorded"
	EventGradeDeleted      GradeEventType = "grade.deleted"
	EventEnrollmentChanged GradeEventType = "enrollment.changed"
	EventStructureChanged  GradeEventType = "structure.changed"
	EventGoalChanged       GradeEventType = "goal.changed"
)

// MaxEventsPerWebhook bounds a single delivery.
const MaxEventsPerWebhook = 500

// ErrInvalidPayload is returned for malformed webhook bodies.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// GradeEvent is one upstream change.
type GradeEvent struct {
	Type         GradeEventType `json:"type"`
	EnrollmentID string         `json:"enrollment_id,omitempty"`
	StudentID    string         `json:"student_id,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at,omitempty"`
}

// NeedsEnrollment reports whether the event must carry an enrollment ID.
func (t GradeEventType) NeedsEnrollment() bool {
	switch t {
	case EventGradeRecorded, EventGradeDeleted, EventEnrollmentChanged:
		return true
	}
	return false
}

// IsValid reports whether the event type is known.
func (t GradeEventType) IsValid() bool {
	switch t {
	case EventGradeRecorded, EventGradeDeleted, EventEnrollmentChanged,
		EventStructureChanged, EventGoalChanged:
		return true
	}
	return false
}

// GradeWebhookPayload is the body of POST /webhook/grades.
type GradeWebhookPayload struct {
	DeliveryID string       `json:"delivery_id,omitempty"`
	Events     []GradeEvent `json:"events"`
}

// ParseGradeWebhook decodes and validates a webhook body.
func ParseGradeWebhook(r io.Reader) (*GradeWebhookPayload, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p GradeWebhookPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(p.Events) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrInvalidPayload)
	}
	if len(p.Events) > MaxEventsPerWebhook {
		return nil, fmt.Errorf("%w: %d events, at most %d allowed", ErrInvalidPayload, len(p.Events), MaxEventsPerWebhook)
	}

	for i := range p.Events {
		e := &p.Events[i]
		e.EnrollmentID = strings.TrimSpace(e.EnrollmentID)
		e.StudentID = strings.TrimSpace(e.StudentID)

		if !e.Type.IsValid() {
			return nil, fmt.Errorf("%w: events[%d]: unknown type %q", ErrInvalidPayload, i, e.Type)
		}
		if e.Type.NeedsEnrollment() && e.EnrollmentID == "" {
			return nil, fmt.Errorf("%w: events[%d]: %s requires enrollment_id", ErrInvalidPayload, i, e.Type)
		}
		if e.EnrollmentID == "" && e.StudentID == "" {
			return nil, fmt.Errorf("%w: events[%d]: enrollment_id or student_id is required", ErrInvalidPayload, i)
		}
	}

	return &p, nil
}

// InvalidationTarget is a deduplicated eviction request.
type InvalidationTarget struct {
	EnrollmentID string
	StudentID    string
	Reason       GradeEventType
}

// Targets folds events into distinct evictions, keeping first-seen order.
// A batch of grades for one enrollment collapses into a single eviction.
func (p *GradeWebhookPayload) Targets() []InvalidationTarget {
	seen := make(map[InvalidationTarget]struct{}, len(p.Events))
	out := make([]InvalidationTarget, 0, len(p.Events))
	for _, e := range p.Events {
		key := InvalidationTarget{EnrollmentID: e.EnrollmentID, StudentID: e.StudentID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		key.Reason = e.Type
		out = append(out, key)
	}
	return out
}
