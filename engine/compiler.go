package engine

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"ucode/ucode_go_query_engine_service/models"
)

const (
	// DefaultPlanCacheSize bounds the compiled-plan cache when the caller
	// does not configure a capacity.
	DefaultPlanCacheSize = 128

	// nestedJoinRowLimit is the row-limit threshold under which the plan
	// prefers nested-loop joins over hash joins.
	nestedJoinRowLimit = 100
)

// QueryCompiler turns an AST into an execution plan and caches compiled
// entries by a structural hash of the AST with strict LRU eviction. The cache
// is shared mutable state; a mutex makes the compiler safe for concurrent
// callers.
type QueryCompiler struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *models.CompiledQuery]
}

func NewQueryCompiler(capacity int) (*QueryCompiler, error) {
	if capacity <= 0 {
		capacity = DefaultPlanCacheSize
	}
	cache, err := lru.New[string, *models.CompiledQuery](capacity)
	if err != nil {
		return nil, err
	}
	return &QueryCompiler{cache: cache}, nil
}

// Compile returns the cached entry when a structurally equal AST was compiled
// before, original timestamp included; otherwise it derives a fresh plan and
// caches it. A cache hit promotes the entry to most-recently-used.
func (c *QueryCompiler) Compile(objectName string, ast models.QueryAST) *models.CompiledQuery {
	key := cacheKey(objectName, ast)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	compiled := &models.CompiledQuery{
		ObjectName: objectName,
		AST:        ast,
		Plan:       derivePlan(ast),
		Timestamp:  time.Now(),
	}
	c.cache.Add(key, compiled)
	return compiled
}

// ClearCache drops every cached plan. Call after schema changes so stale
// index hints cannot survive.
func (c *QueryCompiler) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

// CacheLen reports the number of cached plans.
func (c *QueryCompiler) CacheLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// cacheKey hashes the AST's canonical JSON form so structurally equal ASTs
// share an entry regardless of how they were constructed. An AST that cannot
// be serialized gets a unique key and is effectively uncached; that failure
// never reaches the caller.
func cacheKey(objectName string, ast models.QueryAST) string {
	body, err := json.Marshal(struct {
		Object string          `json:"object"`
		AST    models.QueryAST `json:"ast"`
	}{objectName, ast})
	if err != nil {
		return "unhashable:" + uuid.NewString()
	}

	h := fnv.New64a()
	_, _ = h.Write(body)
	return strconv.FormatUint(h.Sum64(), 16)
}

// derivePlan annotates the AST with index-usage hints and a join strategy.
// useIndex is the set of filtered field names, conservative and not
// join-aware; the join strategy is a plain threshold heuristic, not a
// cost model.
func derivePlan(ast models.QueryAST) models.QueryPlan {
	plan := models.QueryPlan{
		Fields:       ast.Fields,
		Filters:      ast.Filters,
		Sort:         ast.Sort,
		Limit:        ast.Top,
		Offset:       ast.Skip,
		JoinStrategy: models.JoinStrategyHash,
	}

	if ast.Filters != nil {
		plan.UseIndex = models.LeafFields(ast.Filters)
	}
	if ast.Top > 0 && ast.Top < nestedJoinRowLimit {
		plan.JoinStrategy = models.JoinStrategyNested
	}
	return plan
}
