package snapchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGranularity(t *testing.T) {
	for _, valid := range []string{"TOTAL", "DAY", "HOUR", "LIFETIME"} {
		g, err := ParseGranularity(valid)
		require.NoError(t, err)
		assert.Equal(t, Granularity(valid), g)
	}

	_, err := ParseGranularity("WEEK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported granularity")
}

func TestGranularityResponseRoot(t *testing.T) {
	assert.Equal(t, "total_stats", GranularityTotal.ResponseRoot())
	assert.Equal(t, "lifetime_stats", GranularityLifetime.ResponseRoot())
	assert.Equal(t, "timeseries_stats", GranularityDay.ResponseRoot())
	assert.Equal(t, "timeseries_stats", GranularityHour.ResponseRoot())
}

func TestStatsWindowRounding(t *testing.T) {
	server := newAPIServer(t, nil, nil)
	source := newTestSource(t, server.URL)
	source.startDate = "2021-11-01T10:45:30Z"
	source.now = func() time.Time {
		return time.Date(2021, 11, 8, 16, 20, 45, 0, time.UTC)
	}

	source.granularity = GranularityDay
	start, end, err := source.statsWindow("UTC")
	require.NoError(t, err)
	assert.Equal(t, "2021-11-01T00:00:00Z", start)
	assert.Equal(t, "2021-11-08T00:00:00Z", end)

	// TOTAL and HOUR both round to the top of the hour.
	for _, g := range []Granularity{GranularityTotal, GranularityHour} {
		source.granularity = g
		start, end, err = source.statsWindow("UTC")
		require.NoError(t, err)
		assert.Equal(t, "2021-11-01T10:00:00Z", start)
		assert.Equal(t, "2021-11-08T16:00:00Z", end)
	}

	source.granularity = GranularityLifetime
	start, end, err = source.statsWindow("UTC")
	require.NoError(t, err)
	assert.Empty(t, start)
	assert.Empty(t, end)
}

func TestStatsWindowUsesAccountTimezone(t *testing.T) {
	server := newAPIServer(t, nil, nil)
	source := newTestSource(t, server.URL)
	source.granularity = GranularityDay
	source.startDate = "2021-11-01T00:00:00Z"
	source.now = func() time.Time {
		return time.Date(2021, 11, 8, 3, 0, 0, 0, time.UTC)
	}

	start, end, err := source.statsWindow("America/Los_Angeles")
	require.NoError(t, err)
	// Midnight in the account's zone, offset included.
	assert.Equal(t, "2021-10-31T00:00:00-07:00", start)
	assert.Equal(t, "2021-11-07T00:00:00-08:00", end)

	_, _, err = source.statsWindow("Not/AZone")
	require.Error(t, err)
}

const breakdownStatsTemplate = `{
	"request_status": "SUCCESS",
	"timeseries_stats": [
		{"sub_request_status": "SUCCESS", "timeseries_stat": {
			"id": "` + adAccount1 + `",
			"type": "AD_ACCOUNT",
			"start_time": "2021-11-01T00:00:00.000Z",
			"end_time": "2021-11-02T00:00:00.000Z",
			"breakdown_stats": {"LEVEL": [{"id": "entity-LEVEL", "type": "TYPE", "granularity": "DAY"}]}
		}}
	]
}`

func writeBreakdownStats(w http.ResponseWriter, level string) {
	_, _ = w.Write([]byte(strings.ReplaceAll(breakdownStatsTemplate, "LEVEL", level)))
}

func TestReadSliceStatsMergesBreakdownLevels(t *testing.T) {
	var levels []string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	})
	mux.HandleFunc("/v1/adaccounts/"+adAccount1+"/stats", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		level := query.Get("breakdown")
		levels = append(levels, level)

		assert.Equal(t, "DAY", query.Get("granularity"))
		assert.Equal(t, "impressions,swipes,spend,video_views", query.Get("fields"))
		assert.NotEmpty(t, query.Get("start_time"))
		assert.NotEmpty(t, query.Get("end_time"))

		writeBreakdownStats(w, level)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	slice := map[string]string{"id": adAccount1, "timezone": "UTC"}
	items, err := source.readSliceStats(context.Background(), statsDescriptor(GranularityDay), slice)
	require.NoError(t, err)

	// One breakdown request per reporting level.
	assert.Equal(t, []string{"campaign", "adsquad", "ad"}, levels)

	// All three levels merge into a single record keyed by account and window.
	require.Len(t, items, 1)
	breakdown, ok := items[0]["breakdown_stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, breakdown, 3)
	for _, level := range []string{"campaign", "adsquad", "ad"} {
		assert.Contains(t, breakdown, level)
	}
}

func TestReadSliceStatsLifetimeOmitsWindow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	})
	mux.HandleFunc("/v1/adaccounts/"+adAccount1+"/stats", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "LIFETIME", query.Get("granularity"))
		assert.False(t, query.Has("start_time"))
		assert.False(t, query.Has("end_time"))
		_, _ = w.Write([]byte(`{"request_status": "SUCCESS", "lifetime_stats": []}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)
	source.granularity = GranularityLifetime

	slice := map[string]string{"id": adAccount1, "timezone": "UTC"}
	items, err := source.readSliceStats(context.Background(), statsDescriptor(GranularityLifetime), slice)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReadSliceStatsDistinctWindowsStayDistinct(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	})
	mux.HandleFunc("/v1/adaccounts/"+adAccount1+"/stats", func(w http.ResponseWriter, r *http.Request) {
		level := r.URL.Query().Get("breakdown")
		if level != "campaign" {
			// Other levels return only the first window.
			writeBreakdownStats(w, level)
			return
		}
		_, _ = w.Write([]byte(`{
			"request_status": "SUCCESS",
			"timeseries_stats": [
				{"timeseries_stat": {
					"id": "` + adAccount1 + `", "type": "AD_ACCOUNT",
					"start_time": "2021-11-01T00:00:00.000Z", "end_time": "2021-11-02T00:00:00.000Z",
					"breakdown_stats": {"campaign": []}
				}},
				{"timeseries_stat": {
					"id": "` + adAccount1 + `", "type": "AD_ACCOUNT",
					"start_time": "2021-11-02T00:00:00.000Z", "end_time": "2021-11-03T00:00:00.000Z",
					"breakdown_stats": {"campaign": []}
				}}
			]
		}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	source := newTestSource(t, server.URL)

	slice := map[string]string{"id": adAccount1, "timezone": "UTC"}
	items, err := source.readSliceStats(context.Background(), statsDescriptor(GranularityDay), slice)
	require.NoError(t, err)

	// Two reporting windows produce two records, in first-seen order.
	require.Len(t, items, 2)
	assert.Equal(t, "2021-11-01T00:00:00.000Z", items[0]["start_time"])
	assert.Equal(t, "2021-11-02T00:00:00.000Z", items[1]["start_time"])

	first, ok := items[0]["breakdown_stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, first, 3)
	second, ok := items[1]["breakdown_stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, second, 1)
}
