package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

func TestCompileCacheHitReturnsSameEntry(t *testing.T) {
	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	ast := models.QueryAST{
		Object:  "users",
		Filters: models.FilterNode{"status", "=", "active"},
		Top:     10,
	}

	first := compiler.Compile("users", ast)
	second := compiler.Compile("users", ast)

	assert.Same(t, first, second)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, 1, compiler.CacheLen())
}

func TestCompileStructurallyEqualASTsShareEntry(t *testing.T) {
	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	build := func() models.QueryAST {
		return models.QueryAST{
			Object:  "users",
			Fields:  []string{"guid", "name"},
			Filters: models.FilterNode{"age", ">=", 18},
		}
	}

	first := compiler.Compile("users", build())
	second := compiler.Compile("users", build())
	assert.Same(t, first, second)
}

func TestCompileClearCacheRecompiles(t *testing.T) {
	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	ast := models.QueryAST{Object: "users"}

	first := compiler.Compile("users", ast)
	compiler.ClearCache()
	assert.Equal(t, 0, compiler.CacheLen())

	second := compiler.Compile("users", ast)
	assert.NotSame(t, first, second)
}

func TestCompileLRUEviction(t *testing.T) {
	const capacity = 4
	compiler, err := engine.NewQueryCompiler(capacity)
	require.NoError(t, err)

	for i := 0; i < capacity+1; i++ {
		compiler.Compile(fmt.Sprintf("object_%d", i), models.QueryAST{
			Object: fmt.Sprintf("object_%d", i),
		})
	}
	assert.Equal(t, capacity, compiler.CacheLen())

	// object_0 was evicted; recompiling yields a fresh entry.
	fresh := compiler.Compile("object_0", models.QueryAST{Object: "object_0"})
	assert.NotNil(t, fresh)
	assert.Equal(t, capacity, compiler.CacheLen())
}

func TestCompilePlanUseIndex(t *testing.T) {
	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	compiled := compiler.Compile("users", models.QueryAST{
		Object: "users",
		Filters: models.FilterNode{
			models.FilterNode{"status", "=", "active"},
			"and",
			models.FilterNode{"age", ">=", 18},
		},
	})

	assert.Equal(t, []string{"age", "status"}, compiled.Plan.UseIndex)
}

func TestCompileJoinStrategyThreshold(t *testing.T) {
	compiler, err := engine.NewQueryCompiler(0)
	require.NoError(t, err)

	small := compiler.Compile("users", models.QueryAST{Object: "users", Top: 99})
	assert.Equal(t, models.JoinStrategyNested, small.Plan.JoinStrategy)

	large := compiler.Compile("users", models.QueryAST{Object: "users", Top: 100})
	assert.Equal(t, models.JoinStrategyHash, large.Plan.JoinStrategy)

	unbounded := compiler.Compile("users", models.QueryAST{Object: "users"})
	assert.Equal(t, models.JoinStrategyHash, unbounded.Plan.JoinStrategy)
}
