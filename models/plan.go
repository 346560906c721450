package models

import "time"

// Join strategies chosen by the compiler.
const (
	JoinStrategyNested = "nested"
	JoinStrategyHash   = "hash"
)

// QueryPlan is the analysis annotation attached to a compiled query: which
// indexes the filters can use and how joins should be executed.
type QueryPlan struct {
	Fields       []string   `json:"fields,omitempty"`
	Filters      FilterNode `json:"filters,omitempty"`
	Sort         []SortSpec `json:"sort,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
	UseIndex     []string   `json:"useIndex,omitempty"`
	JoinStrategy string     `json:"joinStrategy"`
}

// CompiledQuery is a cached, plan-annotated AST. Entries live in the plan
// cache until evicted or the cache is cleared after a schema change.
type CompiledQuery struct {
	ObjectName string    `json:"objectName"`
	AST        QueryAST  `json:"ast"`
	Plan       QueryPlan `json:"plan"`
	Timestamp  time.Time `json:"timestamp"`
}
