package core

import (
	"context"
	"time"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/pool"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
)

// StreamState holds cursor values for a single stream, keyed by cursor field.
type StreamState map[string]string

// State represents connector state, keyed by stream name.
type State map[string]StreamState

// Get returns the stream state for a stream, or nil when absent.
func (s State) Get(stream string) StreamState {
	if s == nil {
		return nil
	}
	return s[stream]
}

// Cursor returns the persisted cursor value for a stream and field, or ""
// when no state exists.
func (s State) Cursor(stream, field string) string {
	ss := s.Get(stream)
	if ss == nil {
		return ""
	}
	return ss[field]
}

// SetCursor records a cursor value for a stream, creating the stream entry
// as needed.
func (s State) SetCursor(stream, field, value string) {
	ss := s[stream]
	if ss == nil {
		ss = make(StreamState, 1)
		s[stream] = ss
	}
	ss[field] = value
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for stream, ss := range s {
		cp := make(StreamState, len(ss))
		for k, v := range ss {
			cp[k] = v
		}
		out[stream] = cp
	}
	return out
}

// RecordStream represents a stream of records
type RecordStream struct {
	Records <-chan *pool.Record
	Errors  <-chan error
}

// Source is the interface that all source connectors must implement
type Source interface {
	// Core functionality
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Check(ctx context.Context) error
	Streams() []StreamDescriptor
	Read(ctx context.Context) (*RecordStream, error)
	ReadStream(ctx context.Context, stream StreamDescriptor) (*RecordStream, error)
	Close(ctx context.Context) error

	// State management
	GetState() State
	SetState(state State) error

	// Capabilities
	SupportsIncremental() bool

	// Health and metrics
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// Connector is the base interface for all connectors
type Connector interface {
	// Metadata
	Name() string
	Type() ConnectorType
	Version() string

	// Lifecycle
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Close(ctx context.Context) error

	// Health and monitoring
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// HealthStatus represents the health status of a connector
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
	Error     error                  `json:"error,omitempty"`
}
