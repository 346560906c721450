package models

import "sort"

// FilterCondition is the user-facing, operator-keyed filter expression:
// {"age": {"$gte": 18}, "$or": [{"status": "active"}, {"role": "admin"}]}
type FilterCondition map[string]any

// FilterNode is the canonical, array-based filter representation. A leaf is a
// triple [field, symbol, value]. A chain is an alternating array
// [node, "and"|"or", node, ...] with no implicit precedence: connectors apply
// left to right, grouping exists only through nesting. A chain always has odd
// length.
type FilterNode []any

// Logical connectors used at odd indices of a chain node.
const (
	ConnectorAnd = "and"
	ConnectorOr  = "or"
)

// Canonical operator symbols used in leaf triples.
const (
	SymbolEq         = "="
	SymbolNe         = "!="
	SymbolGt         = ">"
	SymbolGte        = ">="
	SymbolLt         = "<"
	SymbolLte        = "<="
	SymbolIn         = "in"
	SymbolNin        = "nin"
	SymbolContains   = "contains"
	SymbolStartsWith = "startswith"
	SymbolEndsWith   = "endswith"
	SymbolIsNull     = "is_null"
	SymbolIsNotNull  = "is_not_null"
	SymbolBetween    = "between"
)

// OperatorSymbols maps user-facing $-operators to canonical symbols.
var OperatorSymbols = map[string]string{
	"$eq":         SymbolEq,
	"$ne":         SymbolNe,
	"$gt":         SymbolGt,
	"$gte":        SymbolGte,
	"$lt":         SymbolLt,
	"$lte":        SymbolLte,
	"$in":         SymbolIn,
	"$nin":        SymbolNin,
	"$contains":   SymbolContains,
	"$startsWith": SymbolStartsWith,
	"$endsWith":   SymbolEndsWith,
	"$null":       SymbolIsNull,
	"$exist":      SymbolIsNotNull,
	"$between":    SymbolBetween,
}

var symbolSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(OperatorSymbols))
	for _, sym := range OperatorSymbols {
		set[sym] = struct{}{}
	}
	return set
}()

// Leaf builds a canonical condition triple.
func Leaf(field, symbol string, value any) FilterNode {
	return FilterNode{field, symbol, value}
}

// IsSymbol reports whether s is a canonical operator symbol.
func IsSymbol(s string) bool {
	_, ok := symbolSet[s]
	return ok
}

// IsLeaf reports whether the node is a condition triple rather than a chain.
func (n FilterNode) IsLeaf() bool {
	if len(n) != 3 {
		return false
	}
	if _, ok := n[0].(string); !ok {
		return false
	}
	sym, ok := n[1].(string)
	return ok && IsSymbol(sym)
}

// Field returns the leaf field name. Only meaningful when IsLeaf is true.
func (n FilterNode) Field() string {
	s, _ := n[0].(string)
	return s
}

// Symbol returns the leaf operator symbol. Only meaningful when IsLeaf is true.
func (n FilterNode) Symbol() string {
	s, _ := n[1].(string)
	return s
}

// Value returns the leaf comparison value. Only meaningful when IsLeaf is true.
func (n FilterNode) Value() any {
	return n[2]
}

// AsFilterNode converts chain elements back to FilterNode. Elements arrive as
// FilterNode when built in-process and as []any when decoded from JSON.
func AsFilterNode(v any) (FilterNode, bool) {
	switch e := v.(type) {
	case FilterNode:
		return e, true
	case []any:
		return FilterNode(e), true
	default:
		return nil, false
	}
}

// LeafFields collects the distinct field names referenced by leaves at any
// depth, sorted for deterministic output.
func LeafFields(n FilterNode) []string {
	seen := map[string]struct{}{}
	collectLeafFields(n, seen)

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func collectLeafFields(n FilterNode, seen map[string]struct{}) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		seen[n.Field()] = struct{}{}
		return
	}
	for i := 0; i < len(n); i += 2 {
		if child, ok := AsFilterNode(n[i]); ok {
			collectLeafFields(child, seen)
		}
	}
}
