package base

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
)

func newTestConnector(t *testing.T) *BaseConnector {
	t.Helper()

	bc := NewBaseConnector("test-source", core.ConnectorTypeSource, "1.0.0")
	cfg := config.NewBaseConfig("test-source", "source")
	cfg.Reliability.RetryAttempts = 2
	cfg.Reliability.RetryDelay = 0

	ctx := context.Background()
	require.NoError(t, bc.Initialize(ctx, cfg))
	t.Cleanup(func() { _ = bc.Close(ctx) })
	return bc
}

func TestStreamCursorRoundTrip(t *testing.T) {
	bc := newTestConnector(t)

	assert.Equal(t, "", bc.StreamCursor("adaccounts", "updated_at"))

	bc.SetStreamCursor("adaccounts", "updated_at", "2021-11-08T00:00:00Z")
	assert.Equal(t, "2021-11-08T00:00:00Z", bc.StreamCursor("adaccounts", "updated_at"))

	state := bc.GetState()
	assert.Equal(t, "2021-11-08T00:00:00Z", state.Cursor("adaccounts", "updated_at"))
}

func TestGetStateReturnsCopy(t *testing.T) {
	bc := newTestConnector(t)
	bc.SetStreamCursor("adaccounts", "updated_at", "2021-11-08T00:00:00Z")

	state := bc.GetState()
	state.SetCursor("adaccounts", "updated_at", "2099-01-01T00:00:00Z")

	assert.Equal(t, "2021-11-08T00:00:00Z", bc.StreamCursor("adaccounts", "updated_at"))
}

func TestSetStateReplacesExistingCursors(t *testing.T) {
	bc := newTestConnector(t)
	bc.SetStreamCursor("adaccounts", "updated_at", "2021-11-08T00:00:00Z")

	require.NoError(t, bc.SetState(core.State{
		"campaigns": {"updated_at": "2022-01-01T00:00:00Z"},
	}))

	assert.Equal(t, "", bc.StreamCursor("adaccounts", "updated_at"))
	assert.Equal(t, "2022-01-01T00:00:00Z", bc.StreamCursor("campaigns", "updated_at"))
}

func TestExecuteWithRetryRetriesRetryableErrors(t *testing.T) {
	bc := newTestConnector(t)

	attempts := 0
	err := bc.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New(errors.ErrorTypeConnection, "connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecuteWithRetryStopsOnFatalErrors(t *testing.T) {
	bc := newTestConnector(t)

	attempts := 0
	err := bc.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		return errors.New(errors.ErrorTypeAuthentication, "invalid credentials")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestSliceCacheSharedAcrossStreams(t *testing.T) {
	bc := newTestConnector(t)

	bc.SliceCache().Set("organizations", []core.Slice{{"id": "org-1"}})
	slices, ok := bc.SliceCache().Get("organizations")
	require.True(t, ok)
	assert.Len(t, slices, 1)

	bc.SliceCache().Reset()
	_, ok = bc.SliceCache().Get("organizations")
	assert.False(t, ok)
}

func TestHealthAfterClose(t *testing.T) {
	bc := NewBaseConnector("test-source", core.ConnectorTypeSource, "1.0.0")
	ctx := context.Background()
	require.NoError(t, bc.Initialize(ctx, config.NewBaseConfig("test-source", "source")))
	require.NoError(t, bc.Close(ctx))

	err := bc.Health(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}
