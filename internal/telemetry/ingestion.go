package telemetry

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Ingestion event types.
const (
	TypeEventCreate = "event-create"
	TypeScoreCreate = "score-create"
)

// DataType of a score value.
type DataType string

const (
	Numeric DataType = "NUMERIC"
	Boolean DataType = "BOOLEAN"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Batch is the body of POST /api/public/ingestion.
type Batch struct {
	Batch []IngestionEvent `json:"batch"`
}

// IngestionEvent is one item of a batch.
type IngestionEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Body      any    `json:"body"`
}

// EventBody is the body of an event-create item.
type EventBody struct {
	TraceID  string         `json:"traceId"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// ScoreBody is the body of a score-create item.
type ScoreBody struct {
	TraceID  string   `json:"traceId"`
	Name     string   `json:"name"`
	Value    any      `json:"value"`
	DataType DataType `json:"dataType"`
	Comment  string   `json:"comment,omitempty"`
}

// NewEvent builds an event-create item.
func NewEvent(traceID, name string, metadata map[string]any, now time.Time) IngestionEvent {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return IngestionEvent{
		ID:        newID(name),
		Type:      TypeEventCreate,
		Timestamp: formatTimestamp(now),
		Body:      EventBody{TraceID: traceID, Name: name, Metadata: metadata},
	}
}

// NewScore builds a score-create item. Boolean scores carry a JSON bool;
// everything else is numeric.
func NewScore(traceID, name string, value float64, dataType DataType, comment string, now time.Time) IngestionEvent {
	var v any = value
	if dataType == Boolean {
		v = value != 0
	} else {
		dataType = Numeric
	}
	return IngestionEvent{
		ID:        newID(name),
		Type:      TypeScoreCreate,
		Timestamp: formatTimestamp(now),
		Body:      ScoreBody{TraceID: traceID, Name: name, Value: v, DataType: dataType, Comment: comment},
	}
}

// ParseMetadata decodes a JSON object. Anything else yields an empty map.
func ParseMetadata(raw string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// formatTimestamp keeps second precision with a fixed .000 fraction.
func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
