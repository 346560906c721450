package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
)

// newReferenceChain builds users <- tasks <- comments: tasks reference users,
// comments reference tasks.
func newReferenceChain() *engine.DependencyGraph {
	g := engine.NewDependencyGraph()
	g.AddDependency("users", "tasks", models.RelationForeignKey, "user_id")
	g.AddDependency("tasks", "comments", models.RelationForeignKey, "task_id")
	return g
}

func TestGetDependents(t *testing.T) {
	g := newReferenceChain()

	assert.Equal(t, []string{"tasks"}, g.GetDependents("users"))
	assert.Equal(t, []string{"comments"}, g.GetDependents("tasks"))
	assert.Empty(t, g.GetDependents("comments"))
}

func TestGetDependentsDeduplicates(t *testing.T) {
	g := engine.NewDependencyGraph()
	g.AddDependency("users", "tasks", models.RelationForeignKey, "owner_id")
	g.AddDependency("users", "tasks", models.RelationForeignKey, "assignee_id")

	assert.Equal(t, []string{"tasks"}, g.GetDependents("users"))
	assert.Len(t, g.Edges(), 2)
}

func TestCascadeDeleteOrder(t *testing.T) {
	g := newReferenceChain()

	order, err := g.GetCascadeDeleteOrder("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "tasks", "users"}, order)
}

func TestCascadeDeleteOrderUnknownObject(t *testing.T) {
	g := newReferenceChain()

	_, err := g.GetCascadeDeleteOrder("missing")
	var notFound *engine.SchemaNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Object)
}

func TestCascadeDeleteInvokesCallbackInOrder(t *testing.T) {
	g := newReferenceChain()

	var deleted []string
	err := g.CascadeDelete(context.Background(), "users", func(_ context.Context, object string) error {
		deleted = append(deleted, object)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "tasks", "users"}, deleted)
}

func TestCascadeDeleteStopsOnError(t *testing.T) {
	g := newReferenceChain()

	var deleted []string
	err := g.CascadeDelete(context.Background(), "users", func(_ context.Context, object string) error {
		if object == "tasks" {
			return assert.AnError
		}
		deleted = append(deleted, object)
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"comments"}, deleted)
}

func TestCycleDetection(t *testing.T) {
	g := engine.NewDependencyGraph()
	g.AddDependency("a", "b", models.RelationLookup, "a_id")
	g.AddDependency("b", "c", models.RelationLookup, "b_id")
	g.AddDependency("c", "a", models.RelationLookup, "c_id")

	assert.True(t, g.HasCircularDependency())

	err := g.Validate()
	var circular *engine.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	assert.GreaterOrEqual(t, len(circular.Path), 4)
	assert.Equal(t, circular.Path[0], circular.Path[len(circular.Path)-1])
}

func TestAcyclicGraphValidates(t *testing.T) {
	g := newReferenceChain()

	assert.False(t, g.HasCircularDependency())
	assert.NoError(t, g.Validate())
}

func TestTopologicalSortSubset(t *testing.T) {
	g := newReferenceChain()

	order := g.TopologicalSort([]string{"users", "tasks", "comments"})
	assert.Equal(t, []string{"comments", "tasks", "users"}, order)

	// Objects outside the subset are not traversed.
	partial := g.TopologicalSort([]string{"users", "comments"})
	assert.Equal(t, []string{"users", "comments"}, partial)
}

func TestRemoveObjectDropsEdges(t *testing.T) {
	g := newReferenceChain()

	g.RemoveObject("tasks")
	assert.Empty(t, g.GetDependents("users"))

	_, err := g.GetCascadeDeleteOrder("tasks")
	assert.Error(t, err)
}

func TestBuildDependencyGraphFromSchemas(t *testing.T) {
	schemas := map[string]models.ObjectSchema{
		"users": {Name: "users", Fields: map[string]models.FieldDescriptor{
			"guid": {Type: "uuid"},
		}},
		"tasks": {Name: "tasks", Fields: map[string]models.FieldDescriptor{
			"user_id": {Type: "uuid", ReferenceTo: "users"},
		}},
	}

	g := engine.BuildDependencyGraph(schemas)
	assert.Equal(t, []string{"tasks"}, g.GetDependents("users"))

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, models.RelationLookup, edges[0].Type)
	assert.Equal(t, "user_id", edges[0].FieldName)
}
