package snapchat

import (
	"context"
	"time"

	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	stringpool "github.com/tributary-data/tributary/pkg/strings"
)

// Granularity selects the stats aggregation window.
// Docs: https://marketingapi.snapchat.com/docs/#measurement
type Granularity string

const (
	GranularityTotal    Granularity = "TOTAL"
	GranularityDay      Granularity = "DAY"
	GranularityHour     Granularity = "HOUR"
	GranularityLifetime Granularity = "LIFETIME"
)

// ParseGranularity validates a configured granularity value.
func ParseGranularity(value string) (Granularity, error) {
	switch Granularity(value) {
	case GranularityTotal, GranularityDay, GranularityHour, GranularityLifetime:
		return Granularity(value), nil
	default:
		return "", errors.New(errors.ErrorTypeConfig,
			stringpool.Sprintf("unsupported granularity '%s', must be one of 'TOTAL', 'DAY', 'HOUR' or 'LIFETIME'", value))
	}
}

// ResponseRoot returns the response key the API nests stats under for this
// granularity.
func (g Granularity) ResponseRoot() string {
	switch g {
	case GranularityLifetime:
		return "lifetime_stats"
	case GranularityDay, GranularityHour:
		return "timeseries_stats"
	default:
		return "total_stats"
	}
}

// breakdownLevel is one reporting level of account statistics and the metric
// fields requested for it.
type breakdownLevel struct {
	name   string
	fields []string
}

// breakdownLevels lists the levels merged into the adaccount_stats stream.
// The ad level alone would be enough to sum metrics up, but the API also
// serves aggregates computed on the higher levels and those are reported
// verbatim.
var breakdownLevels = []breakdownLevel{
	{name: "campaign", fields: []string{"impressions", "swipes", "spend", "video_views"}},
	{name: "adsquad", fields: []string{"impressions", "swipes", "spend", "video_views"}},
	{name: "ad", fields: []string{"impressions", "swipes", "spend", "video_views"}},
}

// readSliceStats reads the account statistics for one ad account slice. Each
// breakdown level is paginated independently; responses for the same account
// and window are merged by unioning their breakdown_stats sub-objects, so the
// stream carries campaign, adsquad and ad statistics in a single record.
// Output preserves first-seen order.
func (s *SnapchatSource) readSliceStats(ctx context.Context, d core.StreamDescriptor, slice core.Slice) ([]map[string]interface{}, error) {
	startTime, endTime, err := s.statsWindow(slice["timezone"])
	if err != nil {
		return nil, err
	}

	merged := make(map[string]map[string]interface{})
	var order []string

	for _, level := range breakdownLevels {
		params := map[string]string{
			"granularity": string(s.granularity),
			"breakdown":   level.name,
			"fields":      stringpool.JoinPooled(level.fields, ","),
		}
		if s.granularity != GranularityLifetime {
			params["start_time"] = startTime
			params["end_time"] = endTime
		}

		var token core.PageToken
		for {
			items, next, err := s.fetchPage(ctx, d, d.Path(slice), token, params)
			if err != nil {
				return nil, err
			}

			for _, item := range items {
				key := stringpool.Concat(
					asString(item["id"]),
					asString(item["type"]),
					asString(item["start_time"]),
					asString(item["end_time"]))

				existing, ok := merged[key]
				if !ok {
					merged[key] = item
					order = append(order, key)
					continue
				}

				breakdown, _ := existing["breakdown_stats"].(map[string]interface{})
				if breakdown == nil {
					breakdown = make(map[string]interface{})
					existing["breakdown_stats"] = breakdown
				}
				if incoming, ok := item["breakdown_stats"].(map[string]interface{}); ok {
					for levelName, stats := range incoming {
						breakdown[levelName] = stats
					}
				}
			}

			if next == nil {
				break
			}
			token = next
		}
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out, nil
}

// statsWindow computes the start_time and end_time parameters for a stats
// request in the account's timezone. LIFETIME expects no window at all; DAY
// windows start and end at midnight, TOTAL and HOUR at the top of the hour.
func (s *SnapchatSource) statsWindow(timezone string) (string, string, error) {
	location := time.UTC
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return "", "", errors.Wrap(err, errors.ErrorTypeConfig,
				stringpool.Sprintf("invalid account timezone '%s'", timezone))
		}
		location = loc
	}

	if s.granularity == GranularityLifetime {
		return "", "", nil
	}

	start, err := parseTimestamp(s.startDate)
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrorTypeConfig,
			stringpool.Sprintf("invalid start date '%s'", s.startDate))
	}

	return roundTime(start.In(location), s.granularity).Format(time.RFC3339),
		roundTime(s.now().In(location), s.granularity).Format(time.RFC3339),
		nil
}

// roundTime floors a timestamp to the boundary the API expects for the
// granularity.
func roundTime(t time.Time, g Granularity) time.Time {
	if g == GranularityDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// parseTimestamp accepts the timestamp shapes seen in configuration and API
// payloads: RFC3339 with or without sub-second precision, and bare dates.
func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
