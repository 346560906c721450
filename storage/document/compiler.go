// Package document lowers canonical filter nodes into document-store filter
// trees (mongo-style operator maps) and provides an in-memory driver that
// evaluates them, implementing the legacy driver call shape.
package document

import (
	"fmt"
	"regexp"

	"github.com/spf13/cast"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

var symbolToDocumentOp = map[string]string{
	models.SymbolEq:  "$eq",
	models.SymbolNe:  "$ne",
	models.SymbolGt:  "$gt",
	models.SymbolGte: "$gte",
	models.SymbolLt:  "$lt",
	models.SymbolLte: "$lte",
	models.SymbolIn:  "$in",
	models.SymbolNin: "$nin",
}

// CompileFilter lowers a filter node to a document filter tree. A nil node
// compiles to an empty filter (match everything). Chains fold left to right,
// mirroring the SQL lowering: a AND b OR c becomes {$or: [{$and: [a, b]}, c]}.
func CompileFilter(node models.FilterNode) (map[string]any, error) {
	if node == nil {
		return map[string]any{}, nil
	}
	if node.IsLeaf() {
		return leafToFilter(node)
	}

	if len(node)%2 == 0 {
		return nil, &engine.InvalidFilterError{Reason: "filter chain must alternate condition, connector, condition"}
	}

	first, ok := models.AsFilterNode(node[0])
	if !ok {
		return nil, &engine.InvalidFilterError{Reason: "expected condition at position 0"}
	}
	current, err := CompileFilter(first)
	if err != nil {
		return nil, err
	}

	for i := 1; i+1 < len(node); i += 2 {
		connector, _ := node[i].(string)
		childNode, ok := models.AsFilterNode(node[i+1])
		if !ok {
			return nil, &engine.InvalidFilterError{Reason: fmt.Sprintf("expected condition at position %d", i+1)}
		}
		next, err := CompileFilter(childNode)
		if err != nil {
			return nil, err
		}

		op := "$and"
		if connector == models.ConnectorOr {
			op = "$or"
		}
		current = map[string]any{op: []any{current, next}}
	}
	return current, nil
}

func leafToFilter(leaf models.FilterNode) (map[string]any, error) {
	field, symbol, value := leaf.Field(), leaf.Symbol(), leaf.Value()

	if op, ok := symbolToDocumentOp[symbol]; ok {
		return map[string]any{field: map[string]any{op: value}}, nil
	}

	switch symbol {
	case models.SymbolContains:
		return regexFilter(field, regexp.QuoteMeta(cast.ToString(value))), nil
	case models.SymbolStartsWith:
		return regexFilter(field, "^"+regexp.QuoteMeta(cast.ToString(value))), nil
	case models.SymbolEndsWith:
		return regexFilter(field, regexp.QuoteMeta(cast.ToString(value))+"$"), nil
	case models.SymbolIsNull:
		return map[string]any{field: map[string]any{"$eq": nil}}, nil
	case models.SymbolIsNotNull:
		return map[string]any{field: map[string]any{"$ne": nil}}, nil
	case models.SymbolBetween:
		pair := cast.ToSlice(value)
		if len(pair) != 2 {
			return nil, &engine.InvalidFilterError{Reason: fmt.Sprintf("between on %q expects a [from, to] pair", field)}
		}
		return map[string]any{field: map[string]any{"$gte": pair[0], "$lte": pair[1]}}, nil
	default:
		return nil, &engine.UnsupportedOperatorError{Operator: symbol}
	}
}

func regexFilter(field, pattern string) map[string]any {
	return map[string]any{field: map[string]any{"$regex": pattern, "$options": "i"}}
}
