package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

func newUsersRegistry() *engine.SchemaRegistry {
	registry := engine.NewSchemaRegistry()
	registry.RegisterObject(models.ObjectSchema{
		Name: "users",
		Fields: map[string]models.FieldDescriptor{
			"guid":   {Type: "uuid"},
			"name":   {Type: "text"},
			"status": {Type: "text"},
			"age":    {Type: "int"},
		},
		Indexes: []models.IndexMetadata{
			{Name: "idx_users_status", Fields: []string{"status"}},
		},
	})
	return registry
}

func TestExplainUnknownObject(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	_, err := analyzer.Explain("missing", models.UnifiedQuery{})
	var notFound *engine.SchemaNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Object)
}

func TestExplainApplicableIndexes(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	plan, err := analyzer.Explain("users", models.UnifiedQuery{
		Fields:  []string{"guid"},
		Filters: models.FilterCondition{"status": "active"},
		Top:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"status"}, plan.FilteredFields)
	assert.Equal(t, []string{"idx_users_status"}, plan.ApplicableIndexes)
	assert.Empty(t, plan.Warnings)
}

func TestExplainWarnsOnFullScan(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	plan, err := analyzer.Explain("users", models.UnifiedQuery{})
	require.NoError(t, err)

	assert.Contains(t, plan.Warnings, "query has no filters and will scan the entire object")
	assert.Contains(t, plan.Warnings, "query has no row limit")
	assert.Contains(t, plan.Warnings, "query selects every field")
	assert.NotEmpty(t, plan.Suggestions)
}

func TestExplainWarnsOnUnindexedFilter(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	plan, err := analyzer.Explain("users", models.UnifiedQuery{
		Filters: models.FilterCondition{"name": "bob"},
	})
	require.NoError(t, err)

	assert.Empty(t, plan.ApplicableIndexes)
	assert.Contains(t, plan.Warnings, "filters match no registered index")
}

func TestExplainComplexityScoring(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	// base 10 only
	bare, err := analyzer.Explain("users", models.UnifiedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 10, bare.Complexity)

	// base 10 + 2 conditions (10) + or penalty (15) + sort key (3)
	// - narrow fields (5) - pagination (5) = 28
	scored, err := analyzer.Explain("users", models.UnifiedQuery{
		Fields: []string{"guid"},
		Filters: models.FilterCondition{
			"$or": []any{
				map[string]any{"status": "active"},
				map[string]any{"age": map[string]any{"$gte": 18}},
			},
		},
		Sort: [][]string{{"name", "desc"}},
		Top:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 28, scored.Complexity)
}

func TestExplainComplexityIsClamped(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	members := make([]any, 0, 30)
	for i := 0; i < 30; i++ {
		members = append(members, map[string]any{"age": map[string]any{"$gte": i}})
	}

	plan, err := analyzer.Explain("users", models.UnifiedQuery{
		Filters: models.FilterCondition{"$and": members},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, plan.Complexity)
}

func TestExplainRowEstimate(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	plan, err := analyzer.Explain("users", models.UnifiedQuery{
		Filters: models.FilterCondition{"status": "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), plan.EstimatedRows)

	capped, err := analyzer.Explain("users", models.UnifiedQuery{
		Filters: models.FilterCondition{"status": "active"},
		Top:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), capped.EstimatedRows)
}

func TestExplainTranslationErrorSurfaces(t *testing.T) {
	analyzer := engine.NewQueryAnalyzer(newUsersRegistry())

	_, err := analyzer.Explain("users", models.UnifiedQuery{
		Filters: models.FilterCondition{"age": map[string]any{"$almost": 1}},
	})
	var unsupported *engine.UnsupportedOperatorError
	assert.ErrorAs(t, err, &unsupported)
}
