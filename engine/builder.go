package engine

import (
	"fmt"
	"strings"

	"ucode/ucode_go_query_engine_service/models"
)

// QueryBuilder assembles a canonical query AST from a unified query request.
// Like the translator it is pure: no shared state, safe for concurrent use.
type QueryBuilder struct {
	translator *FilterTranslator
}

func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{translator: NewFilterTranslator()}
}

// Build normalizes the request and produces the AST. Absent filters leave the
// AST filter field nil: "no constraint" is distinct from an empty chain.
// Range validation of pagination values is a driver concern, not done here.
func (b *QueryBuilder) Build(objectName string, query models.UnifiedQuery) (models.QueryAST, error) {
	query.Normalize()

	ast := models.QueryAST{
		Object:  objectName,
		Fields:  query.Fields,
		Top:     query.Top,
		Skip:    query.Skip,
		GroupBy: query.GroupBy,
		Joins:   query.Joins,
	}

	if query.Filters != nil {
		node, err := b.translator.Translate(query.Filters)
		if err != nil {
			return models.QueryAST{}, err
		}
		ast.Filters = node
	}

	for _, pair := range query.Sort {
		if len(pair) == 0 || pair[0] == "" {
			continue
		}
		order := models.OrderAsc
		if len(pair) > 1 {
			order = models.NormalizeOrder(pair[1])
		}
		ast.Sort = append(ast.Sort, models.SortSpec{Field: pair[0], Order: order})
	}

	for _, agg := range query.Aggregate {
		alias := agg.Alias
		if alias == "" {
			alias = fmt.Sprintf("%s_%s", strings.ToLower(agg.Func), agg.Field)
		}
		ast.Aggregations = append(ast.Aggregations, models.Aggregation{
			Function: agg.Func,
			Field:    agg.Field,
			Alias:    alias,
		})
	}

	return ast, nil
}
