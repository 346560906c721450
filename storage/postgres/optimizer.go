package postgres

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/spf13/cast"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

// SQLQueryOptimizer lowers a query AST into parameterized SQL. Registered
// index metadata drives USE INDEX hints, and declared LEFT JOINs are
// strengthened to INNER JOINs when a filter predicate references the joined
// table. Without a registered schema it degrades to a plain SELECT with no
// hints; it never fails just because metadata arrived late.
type SQLQueryOptimizer struct {
	mu      sync.RWMutex
	schemas map[string]models.ObjectSchema
}

func NewSQLQueryOptimizer() *SQLQueryOptimizer {
	return &SQLQueryOptimizer{
		schemas: make(map[string]models.ObjectSchema),
	}
}

// RegisterSchema adds or replaces metadata for one object.
func (o *SQLQueryOptimizer) RegisterSchema(schema models.ObjectSchema) {
	o.mu.Lock()
	o.schemas[schema.Name] = schema
	o.mu.Unlock()
}

// ClearSchemas resets to the no-schema state.
func (o *SQLQueryOptimizer) ClearSchemas() {
	o.mu.Lock()
	o.schemas = make(map[string]models.ObjectSchema)
	o.mu.Unlock()
}

// Optimize produces SQL text and its bind arguments. Values are always bound
// through placeholders, never interpolated into the statement.
func (o *SQLQueryOptimizer) Optimize(ast models.QueryAST) (string, []any, error) {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	filterFields := models.LeafFields(ast.Filters)

	query := sb.Select(selectColumns(ast)...).From(o.fromClause(ast, filterFields))

	for _, join := range ast.Joins {
		joinExpr := join.Table + " ON " + join.Condition
		switch kind := joinKind(join, filterFields); kind {
		case "LEFT":
			query = query.LeftJoin(joinExpr)
		case "RIGHT":
			query = query.RightJoin(joinExpr)
		case "INNER":
			query = query.InnerJoin(joinExpr)
		default:
			query = query.Join(joinExpr)
		}
	}

	if ast.Filters != nil {
		where, err := filterToSqlizer(ast.Filters)
		if err != nil {
			return "", nil, err
		}
		query = query.Where(where)
	}

	if len(ast.GroupBy) > 0 {
		query = query.GroupBy(ast.GroupBy...)
	}

	for _, s := range ast.Sort {
		query = query.OrderBy(fmt.Sprintf("%s %s", s.Field, strings.ToUpper(s.Order)))
	}

	if ast.Top > 0 {
		query = query.Limit(uint64(ast.Top))
	}
	if ast.Skip > 0 {
		query = query.Offset(uint64(ast.Skip))
	}

	return query.ToSql()
}

// selectColumns resolves the projection: explicit fields, or aggregations
// with their group-by keys, or everything.
func selectColumns(ast models.QueryAST) []string {
	if len(ast.Aggregations) > 0 {
		columns := append([]string{}, ast.GroupBy...)
		for _, agg := range ast.Aggregations {
			columns = append(columns, fmt.Sprintf("%s(%s) AS %s",
				strings.ToUpper(agg.Function), agg.Field, agg.Alias))
		}
		return columns
	}
	if len(ast.Fields) > 0 {
		return ast.Fields
	}
	return []string{"*"}
}

// fromClause appends a USE INDEX hint when a registered index's field set
// intersects the filtered fields. No schema, no hint.
func (o *SQLQueryOptimizer) fromClause(ast models.QueryAST, filterFields []string) string {
	from := pq.QuoteIdentifier(ast.Object)

	o.mu.RLock()
	schema, ok := o.schemas[ast.Object]
	o.mu.RUnlock()
	if !ok || len(filterFields) == 0 {
		return from
	}

	var hints []string
	for _, idx := range schema.Indexes {
		if indexApplies(idx, filterFields) {
			hints = append(hints, idx.Name)
		}
	}
	if len(hints) == 0 {
		return from
	}
	return from + " USE INDEX (" + strings.Join(hints, ", ") + ")"
}

func indexApplies(idx models.IndexMetadata, filterFields []string) bool {
	for _, indexed := range idx.Fields {
		for _, filtered := range filterFields {
			if indexed == filtered {
				return true
			}
		}
	}
	return false
}

// joinKind strengthens a declared LEFT JOIN to INNER only when a filter
// predicate is qualified with the joined table's name. A bare field that
// merely matches the table name is not a reference.
func joinKind(join models.Join, filterFields []string) string {
	kind := strings.ToUpper(join.Type)
	if kind != "LEFT" {
		return kind
	}
	prefix := join.Table + "."
	for _, field := range filterFields {
		if strings.HasPrefix(field, prefix) {
			return "INNER"
		}
	}
	return kind
}

// filterToSqlizer lowers a canonical filter node to a squirrel condition
// tree. Chains fold left to right with no operator precedence, so
// a AND b OR c becomes (a AND b) OR c.
func filterToSqlizer(node models.FilterNode) (squirrel.Sqlizer, error) {
	if node.IsLeaf() {
		return leafToSqlizer(node)
	}
	if err := chainShape(node); err != nil {
		return nil, err
	}

	first, _ := models.AsFilterNode(node[0])
	current, err := filterToSqlizer(first)
	if err != nil {
		return nil, err
	}

	for i := 1; i+1 < len(node); i += 2 {
		connector, _ := node[i].(string)
		childNode, _ := models.AsFilterNode(node[i+1])
		next, err := filterToSqlizer(childNode)
		if err != nil {
			return nil, err
		}
		if connector == models.ConnectorOr {
			current = squirrel.Or{current, next}
		} else {
			current = squirrel.And{current, next}
		}
	}
	return current, nil
}

func chainShape(node models.FilterNode) error {
	if len(node) == 0 || len(node)%2 == 0 {
		return &engine.InvalidFilterError{Reason: "filter chain must alternate condition, connector, condition"}
	}
	for i := 0; i < len(node); i += 2 {
		if _, ok := models.AsFilterNode(node[i]); !ok {
			return &engine.InvalidFilterError{Reason: fmt.Sprintf("expected condition at position %d", i)}
		}
	}
	return nil
}

func leafToSqlizer(leaf models.FilterNode) (squirrel.Sqlizer, error) {
	field, symbol, value := leaf.Field(), leaf.Symbol(), leaf.Value()

	switch symbol {
	case models.SymbolEq:
		return squirrel.Eq{field: value}, nil
	case models.SymbolNe:
		return squirrel.NotEq{field: value}, nil
	case models.SymbolGt:
		return squirrel.Gt{field: value}, nil
	case models.SymbolGte:
		return squirrel.GtOrEq{field: value}, nil
	case models.SymbolLt:
		return squirrel.Lt{field: value}, nil
	case models.SymbolLte:
		return squirrel.LtOrEq{field: value}, nil
	case models.SymbolIn:
		return squirrel.Eq{field: cast.ToSlice(value)}, nil
	case models.SymbolNin:
		return squirrel.NotEq{field: cast.ToSlice(value)}, nil
	case models.SymbolContains:
		return squirrel.ILike{field: "%" + cast.ToString(value) + "%"}, nil
	case models.SymbolStartsWith:
		return squirrel.ILike{field: cast.ToString(value) + "%"}, nil
	case models.SymbolEndsWith:
		return squirrel.ILike{field: "%" + cast.ToString(value)}, nil
	case models.SymbolIsNull:
		return squirrel.Eq{field: nil}, nil
	case models.SymbolIsNotNull:
		return squirrel.NotEq{field: nil}, nil
	case models.SymbolBetween:
		pair := cast.ToSlice(value)
		if len(pair) != 2 {
			return nil, &engine.InvalidFilterError{Reason: fmt.Sprintf("between on %q expects a [from, to] pair", field)}
		}
		return squirrel.Expr(fmt.Sprintf("%s BETWEEN ? AND ?", field), pair[0], pair[1]), nil
	default:
		return nil, &engine.UnsupportedOperatorError{Operator: symbol}
	}
}
