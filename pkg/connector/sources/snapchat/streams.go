package snapchat

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	jsonpool "github.com/tributary-data/tributary/pkg/json"
	"github.com/tributary-data/tributary/pkg/metrics"
	stringpool "github.com/tributary-data/tributary/pkg/strings"
)

// Stream names as they appear in state and record metadata.
const (
	StreamOrganizations  = "organizations"
	StreamAdaccounts     = "adaccounts"
	StreamAds            = "ads"
	StreamAdsquads       = "adsquads"
	StreamCampaigns      = "campaigns"
	StreamCreatives      = "creatives"
	StreamMedia          = "media"
	StreamSegments       = "segments"
	StreamAdaccountStats = "adaccount_stats"
)

// organizationsDescriptor is the root of the parent chain. Every other stream
// is partitioned directly or indirectly by the organizations listing.
var organizationsDescriptor = core.StreamDescriptor{
	Name:         StreamOrganizations,
	PathTemplate: "me/organizations",
	PrimaryKey:   "id",
	ResponseRoot: "organizations",
	ResponseItem: "organization",
}

var adaccountsDescriptor = core.StreamDescriptor{
	Name:         StreamAdaccounts,
	PathTemplate: "organizations/{id}/adaccounts",
	PrimaryKey:   "id",
	CursorField:  "updated_at",
	Parent:       StreamOrganizations,
	SliceKeys:    []string{"id"},
	ResponseRoot: "adaccounts",
	ResponseItem: "adaccount",
}

// adAccountChildDescriptor builds a descriptor for the streams nested under
// an ad account. The API wraps each element in a singular key derived from
// the collection name, except Media where both keys are "media".
func adAccountChildDescriptor(name string) core.StreamDescriptor {
	item := name[:len(name)-1]
	if name == StreamMedia {
		item = name
	}
	return core.StreamDescriptor{
		Name:         name,
		PathTemplate: "adaccounts/{id}/" + name,
		PrimaryKey:   "id",
		CursorField:  "updated_at",
		Parent:       StreamAdaccounts,
		SliceKeys:    []string{"id"},
		ResponseRoot: name,
		ResponseItem: item,
	}
}

// statsDescriptor depends on the configured granularity: the API nests stats
// under total_stats, lifetime_stats or timeseries_stats. The account timezone
// joins the slice because start and end timestamps carry its offset.
func statsDescriptor(granularity Granularity) core.StreamDescriptor {
	root := granularity.ResponseRoot()
	return core.StreamDescriptor{
		Name:         StreamAdaccountStats,
		PathTemplate: "adaccounts/{id}/stats",
		PrimaryKey:   "id",
		CursorField:  "end_time",
		Parent:       StreamAdaccounts,
		SliceKeys:    []string{"id", "timezone"},
		ResponseRoot: root,
		ResponseItem: root[:len(root)-1],
	}
}

// resolveSlices expands the parent chain of a stream into the list of slices
// to read. Streams without a parent read exactly once with a nil slice.
// Resolutions are cached for the run so sibling streams sharing a parent do
// not re-read it; an empty resolution is not cached and yields no slices.
func (s *SnapchatSource) resolveSlices(ctx context.Context, d core.StreamDescriptor) ([]core.Slice, error) {
	if !d.HasParent() {
		return []core.Slice{nil}, nil
	}

	cacheKey := stringpool.Concat(d.Parent, ":", stringpool.JoinPooled(d.SliceKeys, ","))
	if cached, ok := s.SliceCache().Get(cacheKey); ok {
		metrics.SlicesResolved.WithLabelValues(s.Name(), d.Name, "hit").Add(float64(len(cached)))
		return cached, nil
	}

	parent, ok := s.descriptor(d.Parent)
	if !ok {
		return nil, errors.New(errors.ErrorTypeInternal,
			stringpool.Sprintf("unknown parent stream %s for %s", d.Parent, d.Name))
	}

	parentSlices, err := s.resolveSlices(ctx, parent)
	if err != nil {
		return nil, err
	}

	var slices []core.Slice
	for _, parentSlice := range parentSlices {
		items, err := s.readSlicePages(ctx, parent, parentSlice)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			slice := make(core.Slice, len(d.SliceKeys))
			for _, key := range d.SliceKeys {
				slice[key] = asString(item[key])
			}
			slices = append(slices, slice)
		}
	}

	if len(slices) == 0 {
		s.GetLogger().Error("no slice keys found in parent stream, stream cannot be extracted",
			zap.String("stream", d.Name),
			zap.String("parent", d.Parent),
			zap.Strings("slice_keys", d.SliceKeys))
		return nil, nil
	}

	s.SliceCache().Set(cacheKey, slices)
	metrics.SlicesResolved.WithLabelValues(s.Name(), d.Name, "miss").Add(float64(len(slices)))
	return slices, nil
}

// readSlicePages reads every page of one slice of a stream and returns the
// unwrapped items.
func (s *SnapchatSource) readSlicePages(ctx context.Context, d core.StreamDescriptor, slice core.Slice) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	var token core.PageToken

	for {
		page, next, err := s.fetchPage(ctx, d, d.Path(slice), token, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if next == nil {
			break
		}
		token = next
	}

	return items, nil
}

// fetchPage issues one paginated request and unwraps the response. The page
// token and any extra params become query parameters; the next token is
// parsed from the cursor of paging.next_link, and a response without paging
// ends the stream.
func (s *SnapchatSource) fetchPage(ctx context.Context, d core.StreamDescriptor, path string, token core.PageToken, extra map[string]string) ([]map[string]interface{}, core.PageToken, error) {
	ub := stringpool.NewURLBuilder(stringpool.Concat(s.baseURL, path))
	defer ub.Close()
	for key, value := range token {
		ub.AddParam(key, value)
	}
	for key, value := range extra {
		ub.AddParam(key, value)
	}
	requestURL := ub.String()

	timer := metrics.NewTimer("fetch_page")
	defer func() {
		metrics.RequestDuration.WithLabelValues(s.Name(), d.Name).Observe(timer.Stop().Seconds())
	}()

	var resp *http.Response
	if err := s.ExecuteWithRetry(ctx, func() error {
		if err := s.RateLimit(ctx); err != nil {
			return err
		}

		accessToken, err := s.tokens.GetToken(ctx)
		if err != nil {
			return err
		}

		r, err := s.httpClient.Get(ctx, requestURL, map[string]string{
			"Authorization": stringpool.Concat("Bearer ", accessToken.AccessToken),
		})
		if err != nil {
			metrics.APIRequests.WithLabelValues(s.Name(), path, "error").Inc()
			return errors.Wrap(err, errors.ErrorTypeConnection,
				stringpool.Sprintf("request failed for %s stream", d.Name))
		}
		if r.StatusCode != http.StatusOK {
			metrics.APIRequests.WithLabelValues(s.Name(), path, httpStatusClass(r.StatusCode)).Inc()
			return statusError(r, d.Name)
		}

		metrics.APIRequests.WithLabelValues(s.Name(), path, "2xx").Inc()
		resp = r
		return nil
	}); err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	decoder := jsonpool.GetDecoder(resp.Body)
	defer jsonpool.PutDecoder(decoder)

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeData,
			stringpool.Sprintf("failed to decode response for %s stream", d.Name))
	}

	items, err := unwrapItems(payload, d)
	if err != nil {
		return nil, nil, err
	}

	metrics.PagesFetched.WithLabelValues(s.Name(), d.Name).Inc()
	return items, nextPageToken(payload), nil
}

// unwrapItems extracts the item objects from a response body. The result list
// nests under the root key, each element wrapped in the item key; an element
// missing the wrapper is a malformed response and aborts the stream.
func unwrapItems(payload map[string]interface{}, d core.StreamDescriptor) ([]map[string]interface{}, error) {
	entries, _ := payload[d.ResponseRoot].([]interface{})
	if len(entries) == 0 {
		return nil, nil
	}

	items := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		wrapper, ok := entry.(map[string]interface{})
		if !ok {
			return nil, errors.New(errors.ErrorTypeData,
				stringpool.Sprintf("unexpected element under '%s' in the response for %s stream", d.ResponseRoot, d.Name))
		}
		item, ok := wrapper[d.ResponseItem].(map[string]interface{})
		if !ok {
			return nil, errors.New(errors.ErrorTypeData,
				stringpool.Sprintf("JSON field named '%s' is absent in the response for %s stream", d.ResponseItem, d.Name))
		}
		items = append(items, item)
	}

	return items, nil
}

// nextPageToken derives the follow-up page token from the paging block. The
// API hands back a fully-formed next_link URL; only its cursor parameter is
// carried forward.
func nextPageToken(payload map[string]interface{}) core.PageToken {
	paging, ok := payload["paging"].(map[string]interface{})
	if !ok {
		return nil
	}
	nextLink, _ := paging["next_link"].(string)
	if nextLink == "" {
		return nil
	}
	parsed, err := url.Parse(nextLink)
	if err != nil {
		return nil
	}
	cursor := parsed.Query().Get("cursor")
	if cursor == "" {
		return nil
	}
	return core.PageToken{"cursor": cursor}
}

// statusError maps a non-200 response to a typed error carrying a body
// excerpt.
func statusError(resp *http.Response, stream string) error {
	defer func() { _ = resp.Body.Close() }()

	body := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(body, stringpool.Small)
	_, _ = io.Copy(body, io.LimitReader(resp.Body, 4096))

	message := stringpool.Sprintf("%s stream request returned status %d: %s", stream, resp.StatusCode, body.String())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrorTypeAuthentication, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, message)
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrorTypeConnection, message)
	default:
		return errors.New(errors.ErrorTypeData, message)
	}
}

func httpStatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// asString renders a decoded JSON value for use in slices and record IDs.
func asString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return stringpool.Sprintf("%v", value)
	}
}
