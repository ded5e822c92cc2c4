package etl

import "context"

// ── Destination ────────────────────────────────────────────
// A Destination writes records into a target system.
//
// Pattern: Singer target protocol.

// SyncMode determines how records are written to the destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop the table, recreate it, insert fresh
	SyncAppend  SyncMode = "append"  // add rows without deleting existing
)

// Destination writes records to a named table.
type Destination interface {
	Write(ctx context.Context, table string, schema *Schema, records []Record, mode SyncMode) (int, error)
}

// JoinSpec describes an inner join of two stored tables on one key column.
// The result carries every left column followed by RightColumns.
type JoinSpec struct {
	Left         string   `json:"left"`
	Right        string   `json:"right"`
	Key          string   `json:"key"`
	RightColumns []string `json:"rightColumns"`
	// KeyType, when set, is the declared type both key columns must carry.
	KeyType string `json:"keyType,omitempty"`
}

// Joiner joins tables that were previously written to the same store.
type Joiner interface {
	InnerJoin(ctx context.Context, spec JoinSpec) (*Schema, []Record, error)
}

// Store is a Destination that can also join what it holds.
type Store interface {
	Destination
	Joiner
}
