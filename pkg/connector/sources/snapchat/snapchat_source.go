// Package snapchat implements the Snapchat Marketing API source connector.
//
// The API organizes resources as a hierarchy: organizations own ad accounts,
// and ad accounts own campaigns, ad squads, ads, creatives, media, segments
// and statistics. Child streams are read one parent at a time, with the
// parent listings resolved once per run and shared between siblings.
package snapchat

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/clients"
	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/base"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/metrics"
	"github.com/tributary-data/tributary/pkg/pool"
	stringpool "github.com/tributary-data/tributary/pkg/strings"
)

const (
	defaultBaseURL   = "https://adsapi.snapchat.com/v1/"
	defaultTokenURL  = "https://accounts.snapchat.com/login/oauth2/access_token"
	defaultStartDate = "1970-01-01"
)

// SnapchatSource is the Snapchat Marketing API source connector.
type SnapchatSource struct {
	*base.BaseConnector

	httpClient *clients.HTTPClient
	tokens     *clients.TokenManager

	baseURL     string
	startDate   string
	granularity Granularity
	pageSize    int

	// now is swapped in tests to pin the stats window
	now func() time.Time
}

// NewSnapchatSource creates a new Snapchat Marketing source connector.
func NewSnapchatSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return &SnapchatSource{
		BaseConnector: base.NewBaseConnector("snapchat_marketing", core.ConnectorTypeSource, "1.0.0"),
		baseURL:       defaultBaseURL,
		granularity:   GranularityTotal,
		pageSize:      100,
		now:           time.Now,
	}, nil
}

// Initialize initializes the connector from the credential set: client_id,
// client_secret and refresh_token are required, start_date and granularity
// are optional. base_url and token_url overrides are honored for testing.
func (s *SnapchatSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}

	if err := s.extractConfig(cfg); err != nil {
		return err
	}

	s.httpClient = clients.NewHTTPClient(clients.DefaultHTTPConfig(), s.GetLogger())
	s.tokens = clients.NewTokenManager(&clients.OAuth2Config{
		ClientID:     cfg.Security.Credential("client_id"),
		ClientSecret: cfg.Security.Credential("client_secret"),
		RefreshToken: cfg.Security.Credential("refresh_token"),
		TokenURL:     s.tokenURL(cfg),
	}, s.httpClient, s.GetLogger())

	s.UpdateHealth(true, map[string]interface{}{
		"granularity": string(s.granularity),
		"start_date":  s.startDate,
	})

	s.GetLogger().Info("snapchat marketing source initialized",
		zap.String("start_date", s.startDate),
		zap.String("granularity", string(s.granularity)),
		zap.Int("page_size", s.pageSize))

	return nil
}

func (s *SnapchatSource) extractConfig(cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	credentials := cfg.Security.Credentials
	if credentials == nil {
		return errors.New(errors.ErrorTypeConfig, "credentials are required")
	}

	for _, required := range []string{"client_id", "client_secret", "refresh_token"} {
		if credentials[required] == "" {
			return errors.New(errors.ErrorTypeConfig, stringpool.Sprintf("%s is required", required))
		}
	}

	startDate := credentials["start_date"]
	if startDate == "" {
		startDate = defaultStartDate
	}
	parsed, err := parseTimestamp(startDate)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig,
			stringpool.Sprintf("invalid start_date '%s'", startDate))
	}
	s.startDate = parsed.Format(time.RFC3339)

	if granularity := credentials["granularity"]; granularity != "" {
		g, err := ParseGranularity(granularity)
		if err != nil {
			return err
		}
		s.granularity = g
	}

	if baseURL := credentials["base_url"]; baseURL != "" {
		s.baseURL = baseURL
	}

	if cfg.Performance.PageSize > 0 {
		s.pageSize = cfg.Performance.PageSize
	}

	return nil
}

func (s *SnapchatSource) tokenURL(cfg *config.BaseConfig) string {
	if override := cfg.Security.Credential("token_url"); override != "" {
		return override
	}
	return defaultTokenURL
}

// Check verifies credentials by requesting the authenticated caller profile.
func (s *SnapchatSource) Check(ctx context.Context) error {
	token, err := s.tokens.GetToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Get(ctx, stringpool.Concat(s.baseURL, "me"), map[string]string{
		"Authorization": stringpool.Concat("Bearer ", token.AccessToken),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "connection check failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "me")
	}
	return nil
}

// Streams lists the streams this connector serves.
func (s *SnapchatSource) Streams() []core.StreamDescriptor {
	return []core.StreamDescriptor{
		adaccountsDescriptor,
		adAccountChildDescriptor(StreamAds),
		adAccountChildDescriptor(StreamAdsquads),
		adAccountChildDescriptor(StreamCampaigns),
		adAccountChildDescriptor(StreamCreatives),
		adAccountChildDescriptor(StreamMedia),
		organizationsDescriptor,
		adAccountChildDescriptor(StreamSegments),
		statsDescriptor(s.granularity),
	}
}

// descriptor looks up a stream descriptor by name.
func (s *SnapchatSource) descriptor(name string) (core.StreamDescriptor, bool) {
	for _, d := range s.Streams() {
		if d.Name == name {
			return d, true
		}
	}
	return core.StreamDescriptor{}, false
}

// Read reads all streams sequentially into a single record stream. Parent
// slice resolutions are cleared first so the run sees a fresh hierarchy.
func (s *SnapchatSource) Read(ctx context.Context) (*core.RecordStream, error) {
	s.SliceCache().Reset()

	records := make(chan *pool.Record, s.pageSize)
	errs := make(chan error, 10)

	go func() {
		defer close(records)
		defer close(errs)

		for _, d := range s.Streams() {
			if err := s.readStream(ctx, d, records, errs); err != nil {
				errs <- err
				return
			}
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}, nil
}

// ReadStream reads a single stream.
func (s *SnapchatSource) ReadStream(ctx context.Context, d core.StreamDescriptor) (*core.RecordStream, error) {
	records := make(chan *pool.Record, s.pageSize)
	errs := make(chan error, 10)

	go func() {
		defer close(records)
		defer close(errs)

		if err := s.readStream(ctx, d, records, errs); err != nil {
			errs <- err
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}, nil
}

// readStream reads every slice of one stream. Incremental streams filter
// against the pre-run state and persist the merged cursor only after the
// final slice, because cursor values are not ordered across slices.
func (s *SnapchatSource) readStream(ctx context.Context, d core.StreamDescriptor, records chan<- *pool.Record, errs chan<- error) error {
	metrics.ActiveStreams.WithLabelValues(s.Name()).Inc()
	defer metrics.ActiveStreams.WithLabelValues(s.Name()).Dec()

	slices, err := s.resolveSlices(ctx, d)
	if err != nil {
		return err
	}
	if len(slices) == 0 {
		return nil
	}

	var tracker *cursorTracker
	if d.IsIncremental() {
		tracker = newCursorTracker(d.CursorField, s.StreamCursor(d.Name, d.CursorField), s.startDate)
	}

	for _, slice := range slices {
		var items []map[string]interface{}
		if d.Name == StreamAdaccountStats {
			items, err = s.readSliceStats(ctx, d, slice)
		} else {
			items, err = s.readSlicePages(ctx, d, slice)
		}
		if err != nil {
			return err
		}

		for _, item := range items {
			if tracker != nil && !tracker.Keep(item) {
				continue
			}

			select {
			case records <- s.convertRecord(d, item, slice):
				metrics.RecordsRead.WithLabelValues(s.Name(), d.Name, "success").Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if tracker != nil {
		s.SetStreamCursor(d.Name, d.CursorField, tracker.State())
		metrics.StateUpdates.WithLabelValues(s.Name(), d.Name).Inc()
	}

	return nil
}

// convertRecord wraps an unwrapped API item in a pooled record.
func (s *SnapchatSource) convertRecord(d core.StreamDescriptor, item map[string]interface{}, slice core.Slice) *pool.Record {
	record := pool.NewRecordFromPool(s.Name())

	for key, value := range item {
		record.SetData(key, value)
	}

	if id := asString(item[d.PrimaryKey]); id != "" {
		record.ID = id
	} else {
		record.ID = pool.GenerateID(d.Name)
	}
	record.SetStreamID(d.Name)
	for key, value := range slice {
		record.SetMetadata(stringpool.Concat("slice_", key), value)
	}

	return record
}

// SupportsIncremental reports incremental sync support.
func (s *SnapchatSource) SupportsIncremental() bool {
	return true
}

// Health verifies the connector can reach the API.
func (s *SnapchatSource) Health(ctx context.Context) error {
	return s.Check(ctx)
}

// Close releases the HTTP client and base connector resources.
func (s *SnapchatSource) Close(ctx context.Context) error {
	s.GetLogger().Info("closing snapchat marketing source")
	if s.httpClient != nil {
		_ = s.httpClient.Close()
	}
	return s.BaseConnector.Close(ctx)
}
