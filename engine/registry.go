package engine

import (
	"sort"
	"sync"

	"ucode/ucode_go_query_engine_service/models"
)

// SchemaSource is the read-only metadata contract the query pipeline
// consumes. The registry below implements it; so can any external metadata
// service.
type SchemaSource interface {
	GetSchema(objectName string) (models.ObjectSchema, error)
}

// SchemaRegistry is an in-process schema store. Index metadata and dependency
// edges are registered at schema-load time and mutated only through the
// explicit schema-change operations here; every mutation notifies subscribers
// so plan caches can be invalidated.
type SchemaRegistry struct {
	mu       sync.RWMutex
	schemas  map[string]models.ObjectSchema
	graph    *DependencyGraph
	onChange []func()
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[string]models.ObjectSchema),
		graph:   NewDependencyGraph(),
	}
}

// OnChange registers a callback invoked after every schema mutation.
func (r *SchemaRegistry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

func (r *SchemaRegistry) notifyLocked() {
	for _, fn := range r.onChange {
		fn()
	}
}

// GetSchema implements SchemaSource.
func (r *SchemaRegistry) GetSchema(objectName string) (models.ObjectSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, ok := r.schemas[objectName]
	if !ok {
		return models.ObjectSchema{}, &SchemaNotFoundError{Object: objectName}
	}
	return schema, nil
}

// Objects lists registered object names, sorted.
func (r *SchemaRegistry) Objects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Graph exposes the dependency graph maintained from reference fields.
func (r *SchemaRegistry) Graph() *DependencyGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph
}

// RegisterObject adds or replaces an object schema and records dependency
// edges for its reference fields.
func (r *SchemaRegistry) RegisterObject(schema models.ObjectSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.Fields == nil {
		schema.Fields = map[string]models.FieldDescriptor{}
	}
	r.schemas[schema.Name] = schema

	r.graph.AddObject(schema.Name)
	fieldNames := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, fieldName := range fieldNames {
		r.addReferenceLocked(schema.Name, fieldName, schema.Fields[fieldName])
	}

	r.notifyLocked()
}

func (r *SchemaRegistry) addReferenceLocked(object, fieldName string, fd models.FieldDescriptor) {
	if fd.ReferenceTo == "" {
		return
	}
	relType := fd.RelationType
	if relType == "" {
		relType = models.RelationLookup
	}
	r.graph.AddDependency(fd.ReferenceTo, object, relType, fieldName)
}

// DropObject removes an object schema and its graph node.
func (r *SchemaRegistry) DropObject(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[name]; !ok {
		return &SchemaNotFoundError{Object: name}
	}
	delete(r.schemas, name)
	r.graph.RemoveObject(name)
	r.notifyLocked()
	return nil
}

// AddField attaches a field to an existing object.
func (r *SchemaRegistry) AddField(object, fieldName string, fd models.FieldDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.schemas[object]
	if !ok {
		return &SchemaNotFoundError{Object: object}
	}
	schema.Fields[fieldName] = fd
	r.schemas[object] = schema
	r.addReferenceLocked(object, fieldName, fd)
	r.notifyLocked()
	return nil
}

// RenameField renames a field, carrying its descriptor and rewriting index
// metadata that referenced the old name.
func (r *SchemaRegistry) RenameField(object, oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.schemas[object]
	if !ok {
		return &SchemaNotFoundError{Object: object}
	}
	fd, ok := schema.Fields[oldName]
	if !ok {
		return &SchemaNotFoundError{Object: object + "." + oldName}
	}
	delete(schema.Fields, oldName)
	schema.Fields[newName] = fd

	for i, idx := range schema.Indexes {
		for j, f := range idx.Fields {
			if f == oldName {
				schema.Indexes[i].Fields[j] = newName
			}
		}
	}
	r.schemas[object] = schema
	r.notifyLocked()
	return nil
}

// DropField removes a field and any index that referenced it.
func (r *SchemaRegistry) DropField(object, fieldName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.schemas[object]
	if !ok {
		return &SchemaNotFoundError{Object: object}
	}
	delete(schema.Fields, fieldName)

	kept := schema.Indexes[:0]
	for _, idx := range schema.Indexes {
		references := false
		for _, f := range idx.Fields {
			if f == fieldName {
				references = true
				break
			}
		}
		if !references {
			kept = append(kept, idx)
		}
	}
	schema.Indexes = kept
	r.schemas[object] = schema
	r.notifyLocked()
	return nil
}

// AddIndex registers index metadata for an object.
func (r *SchemaRegistry) AddIndex(object string, idx models.IndexMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.schemas[object]
	if !ok {
		return &SchemaNotFoundError{Object: object}
	}
	schema.Indexes = append(schema.Indexes, idx)
	r.schemas[object] = schema
	r.notifyLocked()
	return nil
}
