// Package kafka carries the engine's event traffic: inbound problem
// submissions from external systems and outbound notifications emitted by the
// ingest pipeline and the analysis runs.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	// TopicProblemSubmitted is the inbound channel: external systems push
	// hand-curated problems here and the worker routes them through the
	// ingest pipeline.
	TopicProblemSubmitted = "problem.submitted"

	TopicProblemIngested    = "problem.ingested"
	TopicGapDetected        = "gap.detected"
	TopicAnalysisCompleted  = "analysis.completed"
	TopicDeadLetterProblems = "dead_letter.problems"
)

// Envelope is the wire form shared by every event on every topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// ProblemSubmittedPayload is what external producers put on
// TopicProblemSubmitted. Category is optional; empty means "classify it".
type ProblemSubmittedPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Source      string `json:"source,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

type ProblemIngestedPayload struct {
	ProblemID  string    `json:"problem_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Source     string    `json:"source"`
	SourceID   string    `json:"source_id,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

type GapDetectedPayload struct {
	GapID              string    `json:"gap_id"`
	CapabilityID       string    `json:"capability_id"`
	CapabilityName     string    `json:"capability_name"`
	Priority           string    `json:"priority"`
	ImpactScore        float64   `json:"impact_score"`
	NumBlockedProblems int       `json:"num_blocked_problems"`
	DetectedAt         time.Time `json:"detected_at"`
}

type AnalysisCompletedPayload struct {
	CapabilitiesScored int       `json:"capabilities_scored"`
	GapsOpen           int       `json:"gaps_open"`
	GapsClosed         int       `json:"gaps_closed"`
	Elapsed            string    `json:"elapsed"`
	CompletedAt        time.Time `json:"completed_at"`
}

// NewEnvelope wraps a payload for publishing. Source names the emitting
// component ("ingest", "analysis", "worker").
func NewEnvelope(eventType, source string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "marshal event payload")
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *Envelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return errors.New(errors.CodeValidation, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "decode event payload")
	}
	return nil
}

// DecodeEnvelope parses a raw message value back into an Envelope.
func DecodeEnvelope(value []byte) (*Envelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.CodeValidation, "empty message value")
	}
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "decode event envelope")
	}
	return &env, nil
}
