package document

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

// Driver is an in-memory document store. It keeps records per collection and
// answers Find and Count by compiling the query's filter node to a document
// filter tree and evaluating it record by record.
type Driver struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

func NewDriver() *Driver {
	return &Driver{collections: make(map[string][]map[string]any)}
}

// Insert appends records to a collection, creating it on first use.
func (d *Driver) Insert(collection string, records ...map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections[collection] = append(d.collections[collection], records...)
}

// Find evaluates the query against the collection. Sorting, skip, top, and
// field projection are applied in that order.
func (d *Driver) Find(ctx context.Context, objectName string, ast models.QueryAST, opts models.ExecuteOptions) ([]map[string]any, error) {
	filter, err := CompileFilter(ast.Filters)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	records := d.collections[objectName]
	d.mu.RUnlock()

	matched := make([]map[string]any, 0, len(records))
	for _, record := range records {
		ok, err := matchFilter(record, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, record)
		}
	}

	sortRecords(matched, ast.Sort)

	if ast.Skip > 0 {
		if ast.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[ast.Skip:]
		}
	}
	if ast.Top > 0 && ast.Top < len(matched) {
		matched = matched[:ast.Top]
	}

	if len(ast.Fields) == 0 {
		return matched, nil
	}
	projected := make([]map[string]any, 0, len(matched))
	for _, record := range matched {
		row := make(map[string]any, len(ast.Fields))
		for _, field := range ast.Fields {
			if v, ok := record[field]; ok {
				row[field] = v
			}
		}
		projected = append(projected, row)
	}
	return projected, nil
}

// Count reports how many records in the collection match the filter node.
func (d *Driver) Count(ctx context.Context, objectName string, filters models.FilterNode) (int64, error) {
	filter, err := CompileFilter(filters)
	if err != nil {
		return 0, err
	}

	d.mu.RLock()
	records := d.collections[objectName]
	d.mu.RUnlock()

	var count int64
	for _, record := range records {
		ok, err := matchFilter(record, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func matchFilter(record map[string]any, filter map[string]any) (bool, error) {
	for key, condition := range filter {
		switch key {
		case "$and":
			for _, child := range cast.ToSlice(condition) {
				childFilter, ok := child.(map[string]any)
				if !ok {
					return false, &engine.InvalidFilterError{Reason: "$and members must be filter maps"}
				}
				matched, err := matchFilter(record, childFilter)
				if err != nil || !matched {
					return false, err
				}
			}
		case "$or":
			anyMatched := false
			for _, child := range cast.ToSlice(condition) {
				childFilter, ok := child.(map[string]any)
				if !ok {
					return false, &engine.InvalidFilterError{Reason: "$or members must be filter maps"}
				}
				matched, err := matchFilter(record, childFilter)
				if err != nil {
					return false, err
				}
				if matched {
					anyMatched = true
					break
				}
			}
			if !anyMatched {
				return false, nil
			}
		default:
			ops, ok := condition.(map[string]any)
			if !ok {
				ops = map[string]any{"$eq": condition}
			}
			matched, err := matchField(record[key], ops)
			if err != nil || !matched {
				return false, err
			}
		}
	}
	return true, nil
}

func matchField(actual any, ops map[string]any) (bool, error) {
	for op, expected := range ops {
		var matched bool
		switch op {
		case "$eq":
			matched = valuesEqual(actual, expected)
		case "$ne":
			matched = !valuesEqual(actual, expected)
		case "$gt":
			cmp, ok := compareValues(actual, expected)
			matched = ok && cmp > 0
		case "$gte":
			cmp, ok := compareValues(actual, expected)
			matched = ok && cmp >= 0
		case "$lt":
			cmp, ok := compareValues(actual, expected)
			matched = ok && cmp < 0
		case "$lte":
			cmp, ok := compareValues(actual, expected)
			matched = ok && cmp <= 0
		case "$in":
			for _, candidate := range cast.ToSlice(expected) {
				if valuesEqual(actual, candidate) {
					matched = true
					break
				}
			}
		case "$nin":
			matched = true
			for _, candidate := range cast.ToSlice(expected) {
				if valuesEqual(actual, candidate) {
					matched = false
					break
				}
			}
		case "$regex":
			pattern := cast.ToString(expected)
			if opts, ok := ops["$options"]; ok && strings.Contains(cast.ToString(opts), "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return false, &engine.InvalidFilterError{Reason: "invalid pattern: " + err.Error()}
			}
			matched = re.MatchString(cast.ToString(actual))
		case "$options":
			continue
		default:
			return false, &engine.UnsupportedOperatorError{Operator: op}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return cast.ToString(a) == cast.ToString(b)
}

// compareValues compares numerically when both values cast to float64,
// otherwise lexically by string form. Nil never compares.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b)), true
}

func sortRecords(records []map[string]any, keys []models.SortSpec) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			cmp, ok := compareValues(records[i][key.Field], records[j][key.Field])
			if !ok || cmp == 0 {
				continue
			}
			if key.Order == models.OrderDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
