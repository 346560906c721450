package engine

import (
	"context"
	"sort"
	"sync"

	"ucode/ucode_go_query_engine_service/models"
)

// DependencyGraph is a directed graph over object names capturing
// lookup/master-detail/foreign-key relationships. It owns ordering decisions
// only; executing a cascade is delegated to an injected callback. Adjacency
// state is shared and mutable, so every operation takes the lock.
type DependencyGraph struct {
	mu      sync.RWMutex
	objects map[string]struct{}
	order   []string
	// edges is keyed by the referenced object; each edge's To depends on From.
	edges map[string][]models.DependencyEdge
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		objects: make(map[string]struct{}),
		edges:   make(map[string][]models.DependencyEdge),
	}
}

// BuildDependencyGraph constructs a graph from registered schemas using their
// reference fields. Objects are added in sorted-name order so construction is
// deterministic.
func BuildDependencyGraph(schemas map[string]models.ObjectSchema) *DependencyGraph {
	g := NewDependencyGraph()

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g.AddObject(name)
	}
	for _, name := range names {
		schema := schemas[name]
		fieldNames := make([]string, 0, len(schema.Fields))
		for fieldName := range schema.Fields {
			fieldNames = append(fieldNames, fieldName)
		}
		sort.Strings(fieldNames)

		for _, fieldName := range fieldNames {
			fd := schema.Fields[fieldName]
			if fd.ReferenceTo == "" {
				continue
			}
			relType := fd.RelationType
			if relType == "" {
				relType = models.RelationLookup
			}
			g.AddDependency(fd.ReferenceTo, name, relType, fieldName)
		}
	}
	return g
}

// AddObject registers an object with no edges.
func (g *DependencyGraph) AddObject(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addObjectLocked(name)
}

func (g *DependencyGraph) addObjectLocked(name string) {
	if _, ok := g.objects[name]; ok {
		return
	}
	g.objects[name] = struct{}{}
	g.order = append(g.order, name)
}

// AddDependency records that "to" depends on "from": to holds a reference
// into from through fieldName. Unknown objects are registered implicitly.
func (g *DependencyGraph) AddDependency(from, to, depType, fieldName string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.addObjectLocked(from)
	g.addObjectLocked(to)
	g.edges[from] = append(g.edges[from], models.DependencyEdge{
		From:      from,
		To:        to,
		Type:      depType,
		FieldName: fieldName,
	})
}

// RemoveObject drops an object and every edge touching it.
func (g *DependencyGraph) RemoveObject(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.objects, name)
	delete(g.edges, name)
	for i, obj := range g.order {
		if obj == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	for from, edges := range g.edges {
		kept := edges[:0]
		for _, e := range edges {
			if e.To != name {
				kept = append(kept, e)
			}
		}
		g.edges[from] = kept
	}
}

// GetDependents returns the objects that directly depend on name, in edge
// registration order without duplicates.
func (g *DependencyGraph) GetDependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(name)
}

func (g *DependencyGraph) dependentsLocked(name string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range g.edges[name] {
		if _, ok := seen[e.To]; ok {
			continue
		}
		seen[e.To] = struct{}{}
		out = append(out, e.To)
	}
	return out
}

// Edges returns a copy of every registered edge.
func (g *DependencyGraph) Edges() []models.DependencyEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.DependencyEdge
	for _, name := range g.order {
		out = append(out, g.edges[name]...)
	}
	return out
}

// TopologicalSort orders the given subset so that each object's dependents
// appear before the object itself: reverse-dependency order, suitable for
// deletion sequencing. Objects outside the subset are not traversed.
func (g *DependencyGraph) TopologicalSort(subset []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inSubset := make(map[string]struct{}, len(subset))
	for _, name := range subset {
		inSubset[name] = struct{}{}
	}

	visited := map[string]struct{}{}
	var out []string

	var visit func(name string)
	visit = func(name string) {
		if _, done := visited[name]; done {
			return
		}
		visited[name] = struct{}{}
		for _, dependent := range g.dependentsLocked(name) {
			if _, ok := inSubset[dependent]; ok {
				visit(dependent)
			}
		}
		out = append(out, name)
	}

	for _, name := range subset {
		visit(name)
	}
	return out
}

// HasCircularDependency reports whether any reference cycle exists in the
// full graph, using a DFS that tracks both fully-visited nodes and the
// current recursion stack.
func (g *DependencyGraph) HasCircularDependency() bool {
	return g.Validate() != nil
}

// Validate returns a CircularDependencyError naming one cycle, or nil when
// the graph is acyclic. Validation is explicit so callers decide when a
// configuration check is convenient; graph mutation never fails on cycles.
func (g *DependencyGraph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{}
	inProgress := map[string]struct{}{}
	var stack []string

	var visit func(name string) *CircularDependencyError
	visit = func(name string) *CircularDependencyError {
		if _, ok := inProgress[name]; ok {
			return &CircularDependencyError{Path: append(append([]string{}, stack...), name)}
		}
		if _, ok := visited[name]; ok {
			return nil
		}

		inProgress[name] = struct{}{}
		stack = append(stack, name)
		for _, dependent := range g.dependentsLocked(name) {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(inProgress, name)
		visited[name] = struct{}{}
		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// GetCascadeDeleteOrder returns the transitive dependents of name plus name
// itself, ordered so leaf dependents come first and name comes last.
func (g *DependencyGraph) GetCascadeDeleteOrder(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.objects[name]; !ok {
		return nil, &SchemaNotFoundError{Object: name}
	}

	visited := map[string]struct{}{}
	var out []string

	var visit func(obj string)
	visit = func(obj string) {
		if _, done := visited[obj]; done {
			return
		}
		visited[obj] = struct{}{}
		for _, dependent := range g.dependentsLocked(obj) {
			visit(dependent)
		}
		out = append(out, obj)
	}
	visit(name)

	return out, nil
}

// CascadeDelete resolves the delete order for name and invokes fn once per
// object in that order, stopping at the first error. The graph performs no
// I/O of its own.
func (g *DependencyGraph) CascadeDelete(ctx context.Context, name string, fn func(ctx context.Context, object string) error) error {
	order, err := g.GetCascadeDeleteOrder(name)
	if err != nil {
		return err
	}
	for _, object := range order {
		if err := fn(ctx, object); err != nil {
			return err
		}
	}
	return nil
}
