package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticStore(t *testing.T) {
	store := Static(map[string]string{
		"SET":   "value",
		"BLANK": "   ",
	})

	v, ok := store.Get("SET")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = store.Get("BLANK")
	assert.False(t, ok, "blank values count as absent")

	_, ok = store.Get("MISSING")
	assert.False(t, ok)
}

func TestFromEnvironmentSnapshots(t *testing.T) {
	t.Setenv("FLOWGRAPH_TEST_SECRET", "before")
	store := FromEnvironment()

	v, ok := store.Get("FLOWGRAPH_TEST_SECRET")
	assert.True(t, ok)
	assert.Equal(t, "before", v)

	// Later environment changes are not observed.
	t.Setenv("FLOWGRAPH_TEST_SECRET", "after")
	v, _ = store.Get("FLOWGRAPH_TEST_SECRET")
	assert.Equal(t, "before", v)
}
