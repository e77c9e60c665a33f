package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)

	g.AddNode("a") // idempotent
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Len(t, g.nodes, 2)
	assert.NotContains(t, g.nodes, "c")
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		require.NoError(t, g.AddEdge("a", "b")) // b depends on a

		assert.Equal(t, []string{"a"}, sortedKeys(g.nodes["b"].deps))

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential edge")

		_, err := g.Dependents("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // transitive edge
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cycle in a disjoint component is reported with its path", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "x", "y", "z"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y"))

		err := g.DetectCycles()
		var cycleErr *CycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"y", "z", "y"}, cycleErr.Path)
		assert.ErrorContains(t, err, "cycle detected: y -> z -> y")
	})
}

func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	// app requires ui and core; ui requires core; core requires numpy.
	g := New()
	for _, id := range []string{"app", "ui", "core", "numpy", "unused"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("ui", "app"))
	require.NoError(t, g.AddEdge("core", "app"))
	require.NoError(t, g.AddEdge("core", "ui"))
	require.NoError(t, g.AddEdge("numpy", "core"))
	return g
}

func TestReachable(t *testing.T) {
	t.Parallel()
	g := buildDiamond(t)

	all, err := g.Reachable("app", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "core", "numpy", "ui"}, all)

	pruned, err := g.Reachable("app", func(_, dep string) bool { return dep != "numpy" })
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "core", "ui"}, pruned)

	_, err = g.Reachable("dne", nil)
	assert.ErrorContains(t, err, "node not found")
}

func TestTopoOrder(t *testing.T) {
	t.Parallel()
	g := buildDiamond(t)

	order, err := g.TopoOrder([]string{"app", "ui", "core", "numpy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"numpy", "core", "ui", "app"}, order)

	// Edges to nodes outside the subset are ignored.
	order, err = g.TopoOrder([]string{"app", "ui"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ui", "app"}, order)
}
