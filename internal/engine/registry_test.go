package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Alpha", func() Node {
		return &fakeNode{schema: Schema{TypeID: "Alpha", Name: "AlphaNode"}}
	})
	reg.Register("beta", func() Node {
		return &fakeNode{schema: Schema{TypeID: "beta", Name: "BetaNode"}}
	})

	t.Run("ListKeepsRegistrationOrder", func(t *testing.T) {
		assert.Equal(t, []string{"Alpha", "beta"}, reg.List())
	})

	t.Run("ReRegisterDoesNotDuplicate", func(t *testing.T) {
		reg.Register("beta", func() Node {
			return &fakeNode{schema: Schema{TypeID: "beta", Name: "BetaNode"}}
		})
		assert.Equal(t, []string{"Alpha", "beta"}, reg.List())
	})

	t.Run("CreateExactMatch", func(t *testing.T) {
		node := reg.Create("Alpha")
		require.NotNil(t, node)
		assert.Equal(t, "AlphaNode", node.Schema().Name)
	})

	t.Run("CreateCaseInsensitiveFallback", func(t *testing.T) {
		node := reg.Create("ALPHA")
		require.NotNil(t, node)
		assert.Equal(t, "AlphaNode", node.Schema().Name)
	})

	t.Run("CreateUnknownReturnsNil", func(t *testing.T) {
		assert.Nil(t, reg.Create("gamma"))
	})

	t.Run("SchemaLookup", func(t *testing.T) {
		schema, ok := reg.Schema("beta")
		require.True(t, ok)
		assert.Equal(t, "BetaNode", schema.Name)

		_, ok = reg.Schema("gamma")
		assert.False(t, ok)
	})
}

func TestRegistrySchemasTolerant(t *testing.T) {
	reg := NewRegistry()
	reg.Register("good", func() Node {
		return &fakeNode{schema: Schema{TypeID: "good", Name: "GoodNode"}}
	})
	reg.Register("broken", func() Node {
		panic("factory exploded")
	})

	schemas, errs := reg.Schemas()

	require.Contains(t, schemas, "good")
	assert.Equal(t, "GoodNode", schemas["good"].Name)

	require.Contains(t, errs, "broken")
	assert.Contains(t, errs["broken"], "factory exploded")
	assert.NotContains(t, schemas, "broken")
}
