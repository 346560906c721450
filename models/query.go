package models

import "strings"

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// UnifiedQuery is the driver-agnostic query request accepted at the service
// boundary. Two naming conventions exist in the wild (top/skip/filters/sort
// and limit/offset/where/orderBy); Normalize folds the legacy aliases into the
// canonical fields so nothing past the boundary ever sees both.
type UnifiedQuery struct {
	Fields    []string           `json:"fields,omitempty"`
	Filters   FilterCondition    `json:"filters,omitempty"`
	Sort      [][]string         `json:"sort,omitempty"`
	Top       int                `json:"top,omitempty"`
	Skip      int                `json:"skip,omitempty"`
	GroupBy   []string           `json:"groupBy,omitempty"`
	Aggregate []AggregateRequest `json:"aggregate,omitempty"`
	Joins     []Join             `json:"joins,omitempty"`

	// Legacy aliases, accepted at the boundary only.
	Where   FilterCondition `json:"where,omitempty"`
	OrderBy [][]string      `json:"orderBy,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Normalize folds legacy alias fields into their canonical counterparts.
// Canonical fields win when both are set.
func (q *UnifiedQuery) Normalize() {
	if q.Filters == nil && q.Where != nil {
		q.Filters = q.Where
	}
	if q.Sort == nil && q.OrderBy != nil {
		q.Sort = q.OrderBy
	}
	if q.Top == 0 && q.Limit > 0 {
		q.Top = q.Limit
	}
	if q.Skip == 0 && q.Offset > 0 {
		q.Skip = q.Offset
	}
	q.Where = nil
	q.OrderBy = nil
	q.Limit = 0
	q.Offset = 0
}

// AggregateRequest is an aggregation as requested by the caller.
type AggregateRequest struct {
	Func  string `json:"func"`
	Field string `json:"field"`
	Alias string `json:"alias,omitempty"`
}

// QueryAST is the complete canonical query description produced by the
// builder and consumed by compilers and drivers.
type QueryAST struct {
	Object       string        `json:"object"`
	Fields       []string      `json:"fields,omitempty"`
	Filters      FilterNode    `json:"filters,omitempty"`
	Sort         []SortSpec    `json:"sort,omitempty"`
	Top          int           `json:"top,omitempty"`
	Skip         int           `json:"skip,omitempty"`
	GroupBy      []string      `json:"groupBy,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Joins        []Join        `json:"joins,omitempty"`
}

// SortSpec is a single sort key.
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// Aggregation is a canonical aggregation entry.
type Aggregation struct {
	Function string `json:"function"`
	Field    string `json:"field"`
	Alias    string `json:"alias"`
}

// Join declares a join the caller wants applied when the query is lowered to
// SQL. Type is LEFT, RIGHT, INNER or empty for a plain JOIN.
type Join struct {
	Type      string `json:"type"`
	Table     string `json:"table"`
	Condition string `json:"condition"`
}

// NormalizeOrder maps loose order tokens to OrderAsc/OrderDesc, defaulting to
// ascending for anything unrecognized.
func NormalizeOrder(order string) string {
	if strings.EqualFold(order, OrderDesc) {
		return OrderDesc
	}
	return OrderAsc
}

// ExecuteOptions carries per-call execution options across the driver
// boundary. Tx is an opaque transaction token passed through untouched.
type ExecuteOptions struct {
	WithCount bool `json:"withCount,omitempty"`
	Tx        any  `json:"-"`
}

// QueryResult is the standard driver response shape.
type QueryResult struct {
	Value   []map[string]any `json:"value"`
	Count   int64            `json:"count,omitempty"`
	Scanned int64            `json:"scanned,omitempty"`
}
