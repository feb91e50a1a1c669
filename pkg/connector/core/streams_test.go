package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDescriptorPath(t *testing.T) {
	d := StreamDescriptor{
		Name:         "adaccounts",
		PathTemplate: "organizations/{id}/adaccounts",
	}

	assert.Equal(t, "organizations/org-1/adaccounts", d.Path(Slice{"id": "org-1"}))

	// Nil slice leaves the template untouched
	assert.Equal(t, "organizations/{id}/adaccounts", d.Path(nil))
}

func TestStreamDescriptorPathMultipleKeys(t *testing.T) {
	d := StreamDescriptor{
		Name:         "adaccount_stats",
		PathTemplate: "adaccounts/{id}/stats",
	}

	// Slice keys without a matching placeholder are ignored
	path := d.Path(Slice{"id": "acct-1", "timezone": "UTC"})
	assert.Equal(t, "adaccounts/acct-1/stats", path)
}

func TestStreamDescriptorPredicates(t *testing.T) {
	root := StreamDescriptor{Name: "organizations"}
	assert.False(t, root.HasParent())
	assert.False(t, root.IsIncremental())

	child := StreamDescriptor{
		Name:        "adaccounts",
		Parent:      "organizations",
		CursorField: "updated_at",
	}
	assert.True(t, child.HasParent())
	assert.True(t, child.IsIncremental())
}

func TestStateCursor(t *testing.T) {
	state := State{}

	assert.Equal(t, "", state.Cursor("adaccounts", "updated_at"))

	state.SetCursor("adaccounts", "updated_at", "2021-11-08T00:00:00Z")
	assert.Equal(t, "2021-11-08T00:00:00Z", state.Cursor("adaccounts", "updated_at"))

	// Other streams stay independent
	assert.Equal(t, "", state.Cursor("campaigns", "updated_at"))
}

func TestStateCursorNilReceiver(t *testing.T) {
	var state State
	assert.Equal(t, "", state.Cursor("adaccounts", "updated_at"))
	assert.Nil(t, state.Get("adaccounts"))
}

func TestStateClone(t *testing.T) {
	state := State{}
	state.SetCursor("adaccounts", "updated_at", "2021-11-08T00:00:00Z")

	clone := state.Clone()
	clone.SetCursor("adaccounts", "updated_at", "2022-01-01T00:00:00Z")

	assert.Equal(t, "2021-11-08T00:00:00Z", state.Cursor("adaccounts", "updated_at"))
	assert.Equal(t, "2022-01-01T00:00:00Z", clone.Cursor("adaccounts", "updated_at"))
}

func TestSliceCache(t *testing.T) {
	cache := NewSliceCache()

	_, ok := cache.Get("organizations")
	require.False(t, ok)

	slices := []Slice{{"id": "org-1"}, {"id": "org-2"}}
	cache.Set("organizations", slices)

	got, ok := cache.Get("organizations")
	require.True(t, ok)
	assert.Equal(t, slices, got)

	cache.Reset()
	_, ok = cache.Get("organizations")
	assert.False(t, ok)
}

func TestSliceCacheStoresEmptyResolution(t *testing.T) {
	cache := NewSliceCache()
	cache.Set("organizations", []Slice{})

	got, ok := cache.Get("organizations")
	require.True(t, ok)
	assert.Empty(t, got)
}
