package freshchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/pool"
)

func newTestSource(t *testing.T, serverURL string) *FreshchatSource {
	t.Helper()

	cfg := config.NewBaseConfig("freshchat", "source")
	cfg.Security.Credentials = map[string]string{
		"api_key":  "t3st-4p1-k3y",
		"region":   "Europe",
		"base_url": serverURL + "/v2/",
	}

	src, err := NewFreshchatSource("freshchat", cfg)
	require.NoError(t, err)
	require.NoError(t, src.Initialize(context.Background(), cfg))

	source := src.(*FreshchatSource)
	t.Cleanup(func() { _ = source.Close(context.Background()) })
	return source
}

func drain(t *testing.T, stream *core.RecordStream) ([]*pool.Record, []error) {
	t.Helper()

	var records []*pool.Record
	var errs []error
	for stream.Records != nil || stream.Errors != nil {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				stream.Records = nil
				continue
			}
			records = append(records, record)
		case err, ok := <-stream.Errors:
			if !ok {
				stream.Errors = nil
				continue
			}
			errs = append(errs, err)
		}
	}
	return records, errs
}

func TestRegionSelectsHost(t *testing.T) {
	for region, subdomain := range map[string]string{
		"United States": "api",
		"Europe":        "api.eu",
		"India":         "api.in",
		"Australia":     "api.au",
	} {
		cfg := config.NewBaseConfig("freshchat", "source")
		cfg.Security.Credentials = map[string]string{
			"api_key": "key",
			"region":  region,
		}

		src, err := NewFreshchatSource("freshchat", cfg)
		require.NoError(t, err)
		require.NoError(t, src.Initialize(context.Background(), cfg))

		source := src.(*FreshchatSource)
		assert.Equal(t, "https://"+subdomain+".freshchat.com/v2/", source.baseURL)
		require.NoError(t, source.Close(context.Background()))
	}
}

func TestInitializeRejectsUnknownRegion(t *testing.T) {
	cfg := config.NewBaseConfig("freshchat", "source")
	cfg.Security.Credentials = map[string]string{
		"api_key": "key",
		"region":  "Antarctica",
	}

	src, err := NewFreshchatSource("freshchat", cfg)
	require.NoError(t, err)

	err = src.Initialize(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "unknown region")
}

func TestInitializeRequiresAPIKey(t *testing.T) {
	cfg := config.NewBaseConfig("freshchat", "source")
	cfg.Security.Credentials = map[string]string{"region": "Europe"}

	src, err := NewFreshchatSource("freshchat", cfg)
	require.NoError(t, err)

	err = src.Initialize(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")
}

func TestCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t3st-4p1-k3y", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"channels": [], "pagination": {"current_page": 1, "total_pages": 1}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)
	assert.NoError(t, source.Check(context.Background()))
}

func TestCheckUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	err := source.Check(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestReadStreamPagination(t *testing.T) {
	var pagesServed []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/agents", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		assert.Equal(t, "100", r.URL.Query().Get("items_per_page"))

		_, _ = w.Write([]byte(`{
			"agents": [{"id": "agent-` + page + `", "email": "agent` + page + `@example.com"}],
			"pagination": {"current_page": ` + page + `, "total_pages": 3}
		}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	d := streamDef{name: "agents"}.descriptor()
	stream, err := source.ReadStream(context.Background(), d)
	require.NoError(t, err)
	records, errs := drain(t, stream)

	require.Empty(t, errs)
	assert.Equal(t, []string{"1", "2", "3"}, pagesServed)
	require.Len(t, records, 3)
	assert.Equal(t, "agent-1", records[0].ID)
	assert.Equal(t, "agents", records[0].GetStreamID())
}

func TestReadStreamWithoutPaginationBlock(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/groups", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"groups": [{"id": "group-1", "name": "Support"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	stream, err := source.ReadStream(context.Background(), streamDef{name: "groups"}.descriptor())
	require.NoError(t, err)
	records, errs := drain(t, stream)

	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "group-1", records[0].ID)
}

func TestReadStreamRecordsKeyMatchesStreamName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/csat_score_report", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"csat_score_report": [{"id": "row-1", "score": 4.5}],
			"pagination": {"current_page": 1, "total_pages": 1}
		}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	stream, err := source.ReadStream(context.Background(), streamDef{name: "csat_score_report"}.descriptor())
	require.NoError(t, err)
	records, errs := drain(t, stream)

	require.Empty(t, errs)
	require.Len(t, records, 1)
	score, ok := records[0].GetData("score")
	require.True(t, ok)
	assert.NotNil(t, score)
}

func TestStreams(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	streams := source.Streams()
	require.Len(t, streams, 15)

	names := make(map[string]bool, len(streams))
	for _, d := range streams {
		names[d.Name] = true
		assert.Equal(t, d.Name, d.PathTemplate)
		assert.Equal(t, d.Name, d.ResponseRoot)
		assert.False(t, d.HasParent())
		assert.False(t, d.IsIncremental())
	}

	for _, expected := range []string{
		"agents", "channels", "groups",
		"chat_transcript_report", "agent_activity_report",
	} {
		assert.True(t, names[expected], expected)
	}

	// Endpoints needing per-entity fan-out stay excluded.
	for _, excluded := range []string{"conversations", "outbound_messages", "users"} {
		assert.False(t, names[excluded], excluded)
	}
}

func TestReadIncrementalUnsupported(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	assert.False(t, source.SupportsIncremental())

	_, err := source.ReadIncremental(context.Background(), streamDef{name: "agents"}.descriptor())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}
