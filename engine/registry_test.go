package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

func TestRegistryGetSchema(t *testing.T) {
	registry := newUsersRegistry()

	schema, err := registry.GetSchema("users")
	require.NoError(t, err)
	assert.Equal(t, "users", schema.Name)

	_, err = registry.GetSchema("missing")
	var notFound *engine.SchemaNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistryTracksReferenceEdges(t *testing.T) {
	registry := newUsersRegistry()
	registry.RegisterObject(models.ObjectSchema{
		Name: "tasks",
		Fields: map[string]models.FieldDescriptor{
			"user_id": {Type: "uuid", ReferenceTo: "users", RelationType: models.RelationMasterDetail},
		},
	})

	assert.Equal(t, []string{"tasks"}, registry.Graph().GetDependents("users"))

	order, err := registry.Graph().GetCascadeDeleteOrder("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, order)
}

func TestRegistryOnChangeFires(t *testing.T) {
	registry := engine.NewSchemaRegistry()

	changes := 0
	registry.OnChange(func() { changes++ })

	registry.RegisterObject(models.ObjectSchema{Name: "users"})
	assert.Equal(t, 1, changes)

	require.NoError(t, registry.AddField("users", "name", models.FieldDescriptor{Type: "text"}))
	assert.Equal(t, 2, changes)

	require.NoError(t, registry.AddIndex("users", models.IndexMetadata{Name: "idx_name", Fields: []string{"name"}}))
	assert.Equal(t, 3, changes)

	require.NoError(t, registry.DropObject("users"))
	assert.Equal(t, 4, changes)
}

func TestRegistryRenameFieldRewritesIndexes(t *testing.T) {
	registry := newUsersRegistry()

	require.NoError(t, registry.RenameField("users", "status", "state"))

	schema, err := registry.GetSchema("users")
	require.NoError(t, err)
	_, hasOld := schema.Fields["status"]
	assert.False(t, hasOld)
	assert.Contains(t, schema.Fields, "state")
	assert.Equal(t, []string{"state"}, schema.Indexes[0].Fields)
}

func TestRegistryDropFieldDropsCoveringIndex(t *testing.T) {
	registry := newUsersRegistry()

	require.NoError(t, registry.DropField("users", "status"))

	schema, err := registry.GetSchema("users")
	require.NoError(t, err)
	assert.Empty(t, schema.Indexes)
}

func TestRegistryMutationsAgainstUnknownObject(t *testing.T) {
	registry := engine.NewSchemaRegistry()

	var notFound *engine.SchemaNotFoundError
	assert.ErrorAs(t, registry.AddField("missing", "f", models.FieldDescriptor{}), &notFound)
	assert.ErrorAs(t, registry.RenameField("missing", "a", "b"), &notFound)
	assert.ErrorAs(t, registry.DropField("missing", "f"), &notFound)
	assert.ErrorAs(t, registry.AddIndex("missing", models.IndexMetadata{}), &notFound)
	assert.ErrorAs(t, registry.DropObject("missing"), &notFound)
}

func TestRegistryObjectsSorted(t *testing.T) {
	registry := engine.NewSchemaRegistry()
	registry.RegisterObject(models.ObjectSchema{Name: "zebra"})
	registry.RegisterObject(models.ObjectSchema{Name: "alpha"})

	assert.Equal(t, []string{"alpha", "zebra"}, registry.Objects())
}
