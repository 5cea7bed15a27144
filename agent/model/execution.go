package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Execution lifecycle states. Completed, failed and cancelled are terminal;
// once left, queued and running are never re-entered.
const (
	ExecutionQueued    = "queued"
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
	ExecutionCancelled = "cancelled"
)

// TerminalStatus reports whether status is one of the three final states.
func TerminalStatus(status string) bool {
	switch status {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	}
	return false
}

// SearchExecution records one dispatched run of a data source's query.
// Immutable once terminal, except that its owned result set is retained.
type SearchExecution struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ExecutionID string             `json:"execution_id" bson:"execution_id"`
	DashboardID string             `json:"dashboard_id" bson:"dashboard_id"`
	SourceID    string             `json:"source_id" bson:"source_id"`

	Query         string            `json:"query" bson:"query"`
	TokenSnapshot map[string]string `json:"token_snapshot,omitempty" bson:"token_snapshot,omitempty"`

	Status       string             `json:"status" bson:"status"`
	StartTime    primitive.DateTime `json:"start_time" bson:"start_time"`
	EndTime      primitive.DateTime `json:"end_time,omitempty" bson:"end_time,omitempty"`
	ResultCount  int                `json:"result_count" bson:"result_count"`
	ErrorMessage string             `json:"error_message,omitempty" bson:"error_message,omitempty"`

	// Results are exclusively owned by this execution, ordered by
	// RowIndex, never shared and never mutated after creation.
	Results []SearchResult `json:"results,omitempty" bson:"results,omitempty"`
}

// SearchResult is one decoded result row. RowIndex defines the total order
// within the owning execution.
type SearchResult struct {
	RowIndex int                    `json:"row_index" bson:"row_index"`
	Payload  map[string]interface{} `json:"payload" bson:"payload"`
}
