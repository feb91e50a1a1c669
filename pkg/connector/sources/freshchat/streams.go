package freshchat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	jsonpool "github.com/tributary-data/tributary/pkg/json"
	"github.com/tributary-data/tributary/pkg/metrics"
	stringpool "github.com/tributary-data/tributary/pkg/strings"
)

// streamDef declares one Freshchat listing. The request path and the response
// key holding the records both default to the stream name; sortBy adds
// sort_by/sort_order parameters for streams the API serves ordered.
type streamDef struct {
	name   string
	sortBy string
}

func (def streamDef) descriptor() core.StreamDescriptor {
	return core.StreamDescriptor{
		Name:         def.name,
		PathTemplate: def.name,
		PrimaryKey:   "id",
		ResponseRoot: def.name,
	}
}

// streamTable lists every stream this connector serves: the entity listings
// plus the reporting endpoints. Conversations, outbound messages and users
// are deliberately absent, those endpoints require per-entity fan-out the
// listings cannot drive.
var streamTable = []streamDef{
	{name: "agents"},
	{name: "channels"},
	{name: "groups"},
	{name: "chat_transcript_report"},
	{name: "conversation_created_report"},
	{name: "conversation_resolved_report"},
	{name: "conversation_resolution_label_report"},
	{name: "csat_score_report"},
	{name: "first_response_time_report"},
	{name: "response_time_report"},
	{name: "resolution_time_report"},
	{name: "conversation_agent_assigned_report"},
	{name: "conversation_group_assigned_report"},
	{name: "agent_activity_report"},
	{name: "agent_intelliassign_activity_report"},
}

func sortFor(name string) string {
	for _, def := range streamTable {
		if def.name == name {
			return def.sortBy
		}
	}
	return ""
}

// fetchPage reads one page of a stream and returns its records plus the next
// page number, 0 when the listing is exhausted. The API reports progress as
// current_page/total_pages in a pagination block; a response without one is a
// single-page listing.
func (s *FreshchatSource) fetchPage(ctx context.Context, d core.StreamDescriptor, page int) ([]map[string]interface{}, int, error) {
	ub := stringpool.NewURLBuilder(stringpool.Concat(s.baseURL, d.PathTemplate))
	defer ub.Close()
	ub.AddParamInt("page", page)
	ub.AddParamInt("items_per_page", s.pageSize)
	if sortBy := sortFor(d.Name); sortBy != "" {
		ub.AddParam("sort_by", sortBy)
		ub.AddParam("sort_order", "asc")
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

		r, err := s.httpClient.Get(ctx, requestURL, s.authHeaders())
		if err != nil {
			metrics.APIRequests.WithLabelValues(s.Name(), d.Name, "error").Inc()
			return errors.Wrap(err, errors.ErrorTypeConnection,
				stringpool.Sprintf("request failed for %s stream", d.Name))
		}
		if r.StatusCode != http.StatusOK {
			metrics.APIRequests.WithLabelValues(s.Name(), d.Name, "error").Inc()
			return statusError(r, d.Name)
		}

		metrics.APIRequests.WithLabelValues(s.Name(), d.Name, "2xx").Inc()
		resp = r
		return nil
	}); err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	decoder := jsonpool.GetDecoder(resp.Body)
	defer jsonpool.PutDecoder(decoder)

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrorTypeData,
			stringpool.Sprintf("failed to decode response for %s stream", d.Name))
	}

	entries, _ := payload[d.ResponseRoot].([]interface{})
	items := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		item, ok := entry.(map[string]interface{})
		if !ok {
			return nil, 0, errors.New(errors.ErrorTypeData,
				stringpool.Sprintf("unexpected element under '%s' in the response for %s stream", d.ResponseRoot, d.Name))
		}
		items = append(items, item)
	}

	metrics.PagesFetched.WithLabelValues(s.Name(), d.Name).Inc()
	return items, nextPage(payload), nil
}

func nextPage(payload map[string]interface{}) int {
	pagination, ok := payload["pagination"].(map[string]interface{})
	if !ok {
		return 0
	}
	current := asInt(pagination["current_page"])
	total := asInt(pagination["total_pages"])
	if current > 0 && current < total {
		return current + 1
	}
	return 0
}

func asInt(v interface{}) int {
	switch value := v.(type) {
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case float64:
		return int(value)
	default:
		return 0
	}
}

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
