package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"ucode/ucode_go_query_engine_service/models"
)

// FilterTranslator converts user-facing filter expressions into canonical
// filter nodes. Translation is pure and deterministic: no I/O, no clock, and
// map keys are processed in sorted order so the same input always produces
// the same output.
type FilterTranslator struct{}

func NewFilterTranslator() *FilterTranslator {
	return &FilterTranslator{}
}

// Translate lowers a filter expression to canonical form. nil and empty
// inputs mean "no constraint" and yield nil. An already-canonical array is
// validated and passed through unchanged, so legacy callers keep working.
func (t *FilterTranslator) Translate(filter any) (models.FilterNode, error) {
	switch f := filter.(type) {
	case nil:
		return nil, nil
	case models.FilterNode:
		if len(f) == 0 {
			return nil, nil
		}
		if err := validateNode(f); err != nil {
			return nil, err
		}
		return f, nil
	case []any:
		return t.Translate(models.FilterNode(f))
	case models.FilterCondition:
		return t.translateCondition(f)
	case map[string]any:
		return t.translateCondition(models.FilterCondition(f))
	default:
		return nil, &InvalidFilterError{Reason: fmt.Sprintf("unsupported filter type %T", filter)}
	}
}

// translateCondition lowers one condition object. Order: $and members first,
// then plain fields, then the $or group; every node after the first is joined
// with an explicit "and" connector, the $or members with explicit "or".
func (t *FilterTranslator) translateCondition(cond models.FilterCondition) (models.FilterNode, error) {
	if len(cond) == 0 {
		return nil, nil
	}

	if _, ok := cond["$not"]; ok {
		return nil, &UnsupportedOperatorError{Operator: "$not"}
	}

	var nodes []models.FilterNode

	if raw, ok := cond["$and"]; ok {
		members, err := combinatorMembers("$and", raw)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			node, err := t.translateCondition(member)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}

	fields := make([]string, 0, len(cond))
	for key := range cond {
		if strings.HasPrefix(key, "$") {
			if key != "$and" && key != "$or" {
				return nil, &UnsupportedOperatorError{Operator: key}
			}
			continue
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)

	for _, field := range fields {
		fieldNodes, err := t.translateField(field, cond[field])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, fieldNodes...)
	}

	if raw, ok := cond["$or"]; ok {
		members, err := combinatorMembers("$or", raw)
		if err != nil {
			return nil, err
		}
		var orNodes []models.FilterNode
		for _, member := range members {
			node, err := t.translateCondition(member)
			if err != nil {
				return nil, err
			}
			if node != nil {
				orNodes = append(orNodes, node)
			}
		}
		if orNode := chainNodes(orNodes, models.ConnectorOr); orNode != nil {
			nodes = append(nodes, orNode)
		}
	}

	return chainNodes(nodes, models.ConnectorAnd), nil
}

// translateField lowers one field entry. An operator-keyed object produces
// one leaf per operator, in sorted operator order; everything else is
// implicit equality.
func (t *FilterTranslator) translateField(field string, value any) ([]models.FilterNode, error) {
	var opMap map[string]any
	switch v := value.(type) {
	case models.FilterCondition:
		opMap = v
	case map[string]any:
		opMap = v
	default:
		return []models.FilterNode{models.Leaf(field, models.SymbolEq, value)}, nil
	}

	ops := make([]string, 0, len(opMap))
	for op := range opMap {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	leaves := make([]models.FilterNode, 0, len(ops))
	for _, op := range ops {
		symbol, ok := models.OperatorSymbols[op]
		if !ok {
			return nil, &UnsupportedOperatorError{Operator: op}
		}

		opValue := opMap[op]
		if symbol == models.SymbolBetween {
			pair := cast.ToSlice(opValue)
			if len(pair) != 2 {
				return nil, &InvalidFilterError{Reason: fmt.Sprintf("$between on %q expects a [from, to] pair", field)}
			}
			opValue = pair
		}

		leaves = append(leaves, models.Leaf(field, symbol, opValue))
	}
	return leaves, nil
}

func combinatorMembers(name string, raw any) ([]models.FilterCondition, error) {
	var items []any
	switch typed := raw.(type) {
	case []any:
		items = typed
	case []models.FilterCondition:
		return typed, nil
	case []map[string]any:
		members := make([]models.FilterCondition, 0, len(typed))
		for _, m := range typed {
			members = append(members, models.FilterCondition(m))
		}
		return members, nil
	default:
		return nil, &InvalidFilterError{Reason: name + " expects an array of condition objects"}
	}

	members := make([]models.FilterCondition, 0, len(items))
	for _, item := range items {
		switch m := item.(type) {
		case models.FilterCondition:
			members = append(members, m)
		case map[string]any:
			members = append(members, models.FilterCondition(m))
		default:
			return nil, &InvalidFilterError{Reason: name + " members must be condition objects"}
		}
	}
	return members, nil
}

// validateNode checks the chain invariant on pass-through input: odd length,
// connectors at odd indices, well-formed nodes at even indices.
func validateNode(n models.FilterNode) error {
	if n.IsLeaf() {
		return nil
	}
	if len(n) == 0 || len(n)%2 == 0 {
		return &InvalidFilterError{Reason: "filter chain must alternate condition, connector, condition"}
	}
	for i, el := range n {
		if i%2 == 1 {
			conn, ok := el.(string)
			if !ok || (conn != models.ConnectorAnd && conn != models.ConnectorOr) {
				return &InvalidFilterError{Reason: fmt.Sprintf("expected and/or connector at position %d", i)}
			}
			continue
		}
		child, ok := models.AsFilterNode(el)
		if !ok {
			return &InvalidFilterError{Reason: fmt.Sprintf("expected condition at position %d", i)}
		}
		if err := validateNode(child); err != nil {
			return err
		}
	}
	return nil
}

// chainNodes joins nodes with an explicit connector. A single node is
// returned as-is, never wrapped.
func chainNodes(nodes []models.FilterNode, connector string) models.FilterNode {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	out := make(models.FilterNode, 0, len(nodes)*2-1)
	for i, n := range nodes {
		if i > 0 {
			out = append(out, connector)
		}
		out = append(out, n)
	}
	return out
}
