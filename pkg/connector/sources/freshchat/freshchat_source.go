// Package freshchat implements the Freshchat source connector.
//
// Freshchat hosts tenants in regional data centers, so the API host is
// derived from the configured region. All streams are flat listings read
// with page-number pagination and a static API key.
package freshchat

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

// apiRegions maps the configured region to the regional API subdomain.
var apiRegions = map[string]string{
	"United States": "api",
	"Europe":        "api.eu",
	"India":         "api.in",
	"Australia":     "api.au",
}

const itemsPerPage = 100

// FreshchatSource is the Freshchat API source connector.
type FreshchatSource struct {
	*base.BaseConnector

	httpClient *clients.HTTPClient

	apiKey   string
	baseURL  string
	pageSize int
}

// NewFreshchatSource creates a new Freshchat source connector.
func NewFreshchatSource(name string, cfg *config.BaseConfig) (core.Source, error) {
	return &FreshchatSource{
		BaseConnector: base.NewBaseConnector("freshchat", core.ConnectorTypeSource, "1.0.0"),
		pageSize:      itemsPerPage,
	}, nil
}

// Initialize initializes the connector. api_key and region are required; a
// base_url credential overrides the region-derived host for testing.
func (s *FreshchatSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize base connector")
	}

	if err := s.extractConfig(cfg); err != nil {
		return err
	}

	s.httpClient = clients.NewHTTPClient(clients.DefaultHTTPConfig(), s.GetLogger())

	s.UpdateHealth(true, map[string]interface{}{
		"base_url": s.baseURL,
	})

	s.GetLogger().Info("freshchat source initialized",
		zap.String("base_url", s.baseURL),
		zap.Int("items_per_page", s.pageSize))

	return nil
}

func (s *FreshchatSource) extractConfig(cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	credentials := cfg.Security.Credentials
	if credentials == nil {
		return errors.New(errors.ErrorTypeConfig, "credentials are required")
	}

	s.apiKey = credentials["api_key"]
	if s.apiKey == "" {
		return errors.New(errors.ErrorTypeConfig, "api_key is required")
	}

	if baseURL := credentials["base_url"]; baseURL != "" {
		s.baseURL = baseURL
		return nil
	}

	region := credentials["region"]
	subdomain, ok := apiRegions[region]
	if !ok {
		return errors.New(errors.ErrorTypeConfig,
			stringpool.Sprintf("unknown region '%s', must be one of 'United States', 'Europe', 'India' or 'Australia'", region))
	}
	s.baseURL = stringpool.Sprintf("https://%s.freshchat.com/v2/", subdomain)
	return nil
}

// Check verifies credentials by listing channels.
func (s *FreshchatSource) Check(ctx context.Context) error {
	resp, err := s.httpClient.Get(ctx, stringpool.Concat(s.baseURL, "channels"), s.authHeaders())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "connection check failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errors.New(errors.ErrorTypeAuthentication,
				stringpool.Sprintf("connection check returned status %d", resp.StatusCode))
		}
		return errors.New(errors.ErrorTypeConnection,
			stringpool.Sprintf("connection check returned status %d", resp.StatusCode))
	}
	return nil
}

func (s *FreshchatSource) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": stringpool.Concat("Bearer ", s.apiKey),
	}
}

// Streams lists the streams this connector serves.
func (s *FreshchatSource) Streams() []core.StreamDescriptor {
	out := make([]core.StreamDescriptor, 0, len(streamTable))
	for _, def := range streamTable {
		out = append(out, def.descriptor())
	}
	return out
}

// Read reads all streams sequentially into a single record stream.
func (s *FreshchatSource) Read(ctx context.Context) (*core.RecordStream, error) {
	records := make(chan *pool.Record, s.pageSize)
	errs := make(chan error, 10)

	go func() {
		defer close(records)
		defer close(errs)

		for _, d := range s.Streams() {
			if err := s.readStream(ctx, d, records); err != nil {
				errs <- err
				return
			}
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}, nil
}

// ReadStream reads a single stream.
func (s *FreshchatSource) ReadStream(ctx context.Context, d core.StreamDescriptor) (*core.RecordStream, error) {
	records := make(chan *pool.Record, s.pageSize)
	errs := make(chan error, 10)

	go func() {
		defer close(records)
		defer close(errs)

		if err := s.readStream(ctx, d, records); err != nil {
			errs <- err
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}, nil
}

func (s *FreshchatSource) readStream(ctx context.Context, d core.StreamDescriptor, records chan<- *pool.Record) error {
	metrics.ActiveStreams.WithLabelValues(s.Name()).Inc()
	defer metrics.ActiveStreams.WithLabelValues(s.Name()).Dec()

	page := 1
	for {
		items, nextPage, err := s.fetchPage(ctx, d, page)
		if err != nil {
			return err
		}

		for _, item := range items {
			select {
			case records <- s.convertRecord(d, item):
				metrics.RecordsRead.WithLabelValues(s.Name(), d.Name, "success").Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if nextPage == 0 {
			return nil
		}
		page = nextPage
	}
}

func (s *FreshchatSource) convertRecord(d core.StreamDescriptor, item map[string]interface{}) *pool.Record {
	record := pool.NewRecordFromPool(s.Name())

	for key, value := range item {
		record.SetData(key, value)
	}

	if id, ok := item[d.PrimaryKey].(string); ok && id != "" {
		record.ID = id
	} else {
		record.ID = pool.GenerateID(d.Name)
	}
	record.SetStreamID(d.Name)
	record.SetTimestamp(time.Now())

	return record
}

// SupportsIncremental reports incremental sync support. The Freshchat API
// exposes no usable cursor fields on its listings.
func (s *FreshchatSource) SupportsIncremental() bool {
	return false
}

// ReadIncremental always fails: every Freshchat stream is full refresh.
func (s *FreshchatSource) ReadIncremental(ctx context.Context, d core.StreamDescriptor) (*core.RecordStream, error) {
	return nil, errors.New(errors.ErrorTypeCapability,
		stringpool.Sprintf("freshchat does not support incremental sync for %s stream", d.Name))
}

// Health verifies the connector can reach the API.
func (s *FreshchatSource) Health(ctx context.Context) error {
	return s.Check(ctx)
}

// Close releases the HTTP client and base connector resources.
func (s *FreshchatSource) Close(ctx context.Context) error {
	s.GetLogger().Info("closing freshchat source")
	if s.httpClient != nil {
		_ = s.httpClient.Close()
	}
	return s.BaseConnector.Close(ctx)
}
