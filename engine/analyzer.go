package engine

import (
	"fmt"
	"strings"

	"ucode/ucode_go_query_engine_service/models"
)

// Complexity scoring weights. The score is a bounded heuristic, not a cost
// estimate: it exists so humans can compare queries at a glance.
const (
	complexityBase          = 10
	complexityPerCondition  = 5
	complexityOrPenalty     = 15
	complexityPerSortKey    = 3
	complexityNarrowBonus   = 5
	complexityPaginateBonus = 5

	defaultRowEstimate = 1000
)

// ExplainPlan is the static analysis of a query: applicable indexes,
// advisory warnings and suggestions, a bounded complexity score, and a rough
// row estimate. Nothing here executes against a driver.
type ExplainPlan struct {
	Object            string   `json:"object"`
	FilteredFields    []string `json:"filteredFields,omitempty"`
	ApplicableIndexes []string `json:"applicableIndexes,omitempty"`
	JoinStrategy      string   `json:"joinStrategy"`
	Warnings          []string `json:"warnings,omitempty"`
	Suggestions       []string `json:"suggestions,omitempty"`
	Complexity        int      `json:"complexity"`
	EstimatedRows     int64    `json:"estimatedRows"`
}

// QueryAnalyzer produces explain plans from schema metadata. Unlike the SQL
// optimizer it cannot degrade gracefully without a schema: analysis of an
// unregistered object is an error.
type QueryAnalyzer struct {
	schemas SchemaSource
	builder *QueryBuilder
}

func NewQueryAnalyzer(schemas SchemaSource) *QueryAnalyzer {
	return &QueryAnalyzer{
		schemas: schemas,
		builder: NewQueryBuilder(),
	}
}

// Explain statically analyzes a query against registered metadata.
func (a *QueryAnalyzer) Explain(objectName string, query models.UnifiedQuery) (*ExplainPlan, error) {
	schema, err := a.schemas.GetSchema(objectName)
	if err != nil {
		return nil, err
	}

	ast, err := a.builder.Build(objectName, query)
	if err != nil {
		return nil, err
	}

	plan := &ExplainPlan{
		Object:        objectName,
		JoinStrategy:  derivePlan(ast).JoinStrategy,
		EstimatedRows: estimateRows(ast),
		Complexity:    complexityScore(ast),
	}

	if ast.Filters != nil {
		plan.FilteredFields = models.LeafFields(ast.Filters)
	}
	for _, idx := range schema.Indexes {
		if fieldsIntersect(idx.Fields, plan.FilteredFields) {
			plan.ApplicableIndexes = append(plan.ApplicableIndexes, idx.Name)
		}
	}

	if ast.Filters == nil {
		plan.Warnings = append(plan.Warnings, "query has no filters and will scan the entire object")
		plan.Suggestions = append(plan.Suggestions, "add a filter on an indexed field to avoid a full scan")
	}
	if ast.Top == 0 {
		plan.Warnings = append(plan.Warnings, "query has no row limit")
		plan.Suggestions = append(plan.Suggestions, "set top to bound the result set")
	}
	if len(ast.Fields) == 0 && len(ast.Aggregations) == 0 {
		plan.Warnings = append(plan.Warnings, "query selects every field")
		plan.Suggestions = append(plan.Suggestions, "project only the fields you need")
	}
	if len(plan.FilteredFields) > 0 && len(plan.ApplicableIndexes) == 0 {
		plan.Warnings = append(plan.Warnings, "filters match no registered index")
		plan.Suggestions = append(plan.Suggestions,
			fmt.Sprintf("consider an index covering: %s", strings.Join(plan.FilteredFields, ", ")))
	}

	return plan, nil
}

func fieldsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// complexityScore: base 10, +5 per filter condition, +15 when filters nest an
// OR group, +3 per sort key, -5 for narrow field selection, -5 when
// paginated; clamped to [0, 100].
func complexityScore(ast models.QueryAST) int {
	score := complexityBase

	if ast.Filters != nil {
		score += complexityPerCondition * countLeaves(ast.Filters)
		if hasOrConnector(ast.Filters) {
			score += complexityOrPenalty
		}
	}
	score += complexityPerSortKey * len(ast.Sort)
	if len(ast.Fields) > 0 {
		score -= complexityNarrowBonus
	}
	if ast.Top > 0 || ast.Skip > 0 {
		score -= complexityPaginateBonus
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func countLeaves(n models.FilterNode) int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	count := 0
	for i := 0; i < len(n); i += 2 {
		if child, ok := models.AsFilterNode(n[i]); ok {
			count += countLeaves(child)
		}
	}
	return count
}

func hasOrConnector(n models.FilterNode) bool {
	if n == nil || n.IsLeaf() {
		return false
	}
	for i, el := range n {
		if i%2 == 1 {
			if conn, ok := el.(string); ok && conn == models.ConnectorOr {
				return true
			}
			continue
		}
		if child, ok := models.AsFilterNode(el); ok && hasOrConnector(child) {
			return true
		}
	}
	return false
}

// estimateRows halves a fixed base per filter condition and caps at the row
// limit when one is set. Deliberately crude.
func estimateRows(ast models.QueryAST) int64 {
	estimate := int64(defaultRowEstimate)
	for i := countLeaves(ast.Filters); i > 0 && estimate > 1; i-- {
		estimate /= 2
	}
	if ast.Top > 0 && int64(ast.Top) < estimate {
		estimate = int64(ast.Top)
	}
	return estimate
}
