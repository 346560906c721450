package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"ucode/ucode_go_query_engine_service/models"
	span "ucode/ucode_go_query_engine_service/pkg/jaeger"
	"ucode/ucode_go_query_engine_service/pkg/logger"
	"ucode/ucode_go_query_engine_service/storage"
)

const slowQueryListSize = 10

// ProfileResult is the outcome of executing a query with timing enabled.
// Efficiency is rows returned over rows scanned when the driver reports scan
// counts, 1 otherwise.
type ProfileResult struct {
	Object       string                `json:"object"`
	Compiled     *models.CompiledQuery `json:"compiled"`
	DurationMS   float64               `json:"durationMs"`
	RowsReturned int64                 `json:"rowsReturned"`
	RowsScanned  int64                 `json:"rowsScanned,omitempty"`
	Efficiency   float64               `json:"efficiency"`
}

// SlowQuery is one entry of the bounded slow-query list.
type SlowQuery struct {
	Object     string    `json:"object"`
	DurationMS float64   `json:"durationMs"`
	At         time.Time `json:"at"`
}

// ServiceStats aggregates execution statistics across calls.
type ServiceStats struct {
	TotalQueries  int64            `json:"totalQueries"`
	AvgDurationMS float64          `json:"avgDurationMs"`
	MinDurationMS float64          `json:"minDurationMs"`
	MaxDurationMS float64          `json:"maxDurationMs"`
	PerObject     map[string]int64 `json:"perObject"`
	SlowQueries   []SlowQuery      `json:"slowQueries"`
}

// QueryService orchestrates the pipeline: build, compile, execute. Driver
// capabilities are probed once at construction, not per call; the standard
// shape is preferred and the legacy shape is the fallback.
type QueryService struct {
	log      logger.LoggerI
	builder  *QueryBuilder
	compiler *QueryCompiler
	standard storage.StandardDriver
	legacy   storage.LegacyDriver

	mu    sync.Mutex
	stats ServiceStats
	total time.Duration
}

// NewQueryService wires the pipeline to a driver. The driver may implement
// either call shape or both.
func NewQueryService(log logger.LoggerI, compiler *QueryCompiler, driver any) *QueryService {
	s := &QueryService{
		log:      log,
		builder:  NewQueryBuilder(),
		compiler: compiler,
		stats:    ServiceStats{PerObject: map[string]int64{}},
	}
	if sd, ok := driver.(storage.StandardDriver); ok {
		s.standard = sd
	}
	if ld, ok := driver.(storage.LegacyDriver); ok {
		s.legacy = ld
	}
	return s
}

// Compile builds and compiles without executing.
func (s *QueryService) Compile(objectName string, query models.UnifiedQuery) (*models.CompiledQuery, error) {
	ast, err := s.builder.Build(objectName, query)
	if err != nil {
		return nil, err
	}
	return s.compiler.Compile(objectName, ast), nil
}

// Run executes a unified query against the driver. Translation and
// compilation errors surface before any driver call; driver errors pass
// through with operation context attached.
func (s *QueryService) Run(ctx context.Context, objectName string, query models.UnifiedQuery, opts models.ExecuteOptions) (*models.QueryResult, error) {
	dbSpan, ctx := span.StartSpanFromContext(ctx, "query_service.Run", objectName)
	defer dbSpan.Finish()

	compiled, err := s.Compile(objectName, query)
	if err != nil {
		return nil, err
	}

	switch {
	case s.standard != nil:
		result, err := s.standard.ExecuteQuery(ctx, compiled, opts)
		if err != nil {
			s.log.Error("---RunQuery--->>>", logger.String("object", objectName), logger.Error(err))
			return nil, errors.Wrap(err, fmt.Sprintf("executeQuery %q", objectName))
		}
		return result, nil
	case s.legacy != nil:
		if len(compiled.AST.Aggregations) > 0 || len(compiled.AST.GroupBy) > 0 {
			return nil, &DriverUnsupportedOperationError{Operation: "aggregate"}
		}
		rows, err := s.legacy.Find(ctx, objectName, compiled.AST, opts)
		if err != nil {
			s.log.Error("---RunQuery--->>>", logger.String("object", objectName), logger.Error(err))
			return nil, errors.Wrap(err, fmt.Sprintf("find %q", objectName))
		}
		result := &models.QueryResult{Value: rows}
		if opts.WithCount {
			count, err := s.legacy.Count(ctx, objectName, compiled.AST.Filters)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("count %q", objectName))
			}
			result.Count = count
		}
		return result, nil
	default:
		return nil, &DriverUnsupportedOperationError{Operation: "query"}
	}
}

// Profile runs the query and records wall-clock time and row statistics.
func (s *QueryService) Profile(ctx context.Context, objectName string, query models.UnifiedQuery, opts models.ExecuteOptions) (*ProfileResult, error) {
	compiled, err := s.Compile(objectName, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.Run(ctx, objectName, query, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	profile := &ProfileResult{
		Object:       objectName,
		Compiled:     compiled,
		DurationMS:   float64(elapsed.Microseconds()) / 1000,
		RowsReturned: int64(len(result.Value)),
		RowsScanned:  result.Scanned,
		Efficiency:   1,
	}
	if result.Scanned > 0 {
		profile.Efficiency = float64(profile.RowsReturned) / float64(result.Scanned)
	}

	s.record(objectName, elapsed)
	return profile, nil
}

// Stats returns a copy of the aggregated statistics.
func (s *QueryService) Stats() ServiceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.PerObject = make(map[string]int64, len(s.stats.PerObject))
	for k, v := range s.stats.PerObject {
		out.PerObject[k] = v
	}
	out.SlowQueries = append([]SlowQuery(nil), s.stats.SlowQueries...)
	return out
}

func (s *QueryService) record(objectName string, elapsed time.Duration) {
	ms := float64(elapsed.Microseconds()) / 1000

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalQueries++
	s.total += elapsed
	s.stats.AvgDurationMS = float64(s.total.Microseconds()) / 1000 / float64(s.stats.TotalQueries)
	if s.stats.TotalQueries == 1 || ms < s.stats.MinDurationMS {
		s.stats.MinDurationMS = ms
	}
	if ms > s.stats.MaxDurationMS {
		s.stats.MaxDurationMS = ms
	}
	s.stats.PerObject[objectName]++

	s.stats.SlowQueries = append(s.stats.SlowQueries, SlowQuery{
		Object:     objectName,
		DurationMS: ms,
		At:         time.Now(),
	})
	sort.SliceStable(s.stats.SlowQueries, func(i, j int) bool {
		return s.stats.SlowQueries[i].DurationMS > s.stats.SlowQueries[j].DurationMS
	})
	if len(s.stats.SlowQueries) > slowQueryListSize {
		s.stats.SlowQueries = s.stats.SlowQueries[:slowQueryListSize]
	}
}
