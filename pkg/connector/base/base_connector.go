// Package base provides the foundational BaseConnector that all Tributary
// connectors inherit from. It implements common functionality including
// circuit breakers, rate limiting, health monitoring, metrics collection,
// and error handling.
//
// # Usage
//
// All connectors should embed BaseConnector to inherit its functionality:
//
//	type MyConnector struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
//	func NewMyConnector() *MyConnector {
//	    return &MyConnector{
//	        BaseConnector: base.NewBaseConnector("my-connector", core.ConnectorTypeSource, "1.0.0"),
//	    }
//	}
//
// # Lifecycle
//
// 1. Create with NewBaseConnector
// 2. Initialize with Initialize() - sets up all production features
// 3. Use throughout connector operations
// 4. Close with Close() - cleans up all resources
package base

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/clients"
	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/logger"
	"github.com/tributary-data/tributary/pkg/metrics"
)

// BaseConnector provides common functionality for all connectors including
// circuit breakers, rate limiting, health monitoring and metrics collection.
type BaseConnector struct {
	// Core fields
	name          string
	connectorType core.ConnectorType
	version       string
	config        *config.BaseConfig
	logger        *zap.Logger

	// State management
	state      core.State
	stateMutex sync.RWMutex

	// Slices resolved from parent streams, scoped to one sync run
	sliceCache *core.SliceCache

	// Resource management
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	closeMutex sync.Mutex

	// Production features
	circuitBreaker   *clients.CircuitBreaker
	rateLimiter      clients.RateLimiter
	healthChecker    *HealthChecker
	metricsCollector *metrics.Collector
	errorHandler     *ErrorHandler
	retryPolicy      *RetryPolicy
}

// NewBaseConnector creates a new base connector with the specified name,
// type, and version. This should be called by connector implementations
// during construction.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		state:         make(core.State),
		sliceCache:    core.NewSliceCache(),
		logger:        logger.Get().With(zap.String("connector", name)),
	}
}

// Initialize sets up all production features of the base connector including
// circuit breakers, rate limiting, health monitoring, and metrics collection.
// This must be called before using the connector.
func (bc *BaseConnector) Initialize(ctx context.Context, config *config.BaseConfig) error {
	bc.config = config
	bc.ctx, bc.cancel = context.WithCancel(ctx)

	bc.circuitBreaker = clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
		FailureThreshold: 5,                // Open after 5 consecutive failures
		SuccessThreshold: 3,                // Close after 3 consecutive successes
		Timeout:          30 * time.Second, // Half-open timeout
	}, bc.logger)

	if config.Reliability.RateLimitPerSec > 0 {
		bc.rateLimiter = clients.NewRateLimiter(
			float64(config.Reliability.RateLimitPerSec),
			config.Reliability.RateLimitPerSec*2, // Allow bursts up to 2x the limit
		)
	}

	bc.healthChecker = NewHealthChecker(bc.name, 30*time.Second)
	bc.healthChecker.Start(bc.ctx)

	bc.metricsCollector = metrics.NewCollector(bc.name)

	bc.errorHandler = NewErrorHandler(
		bc.logger,
		config.Reliability.RetryAttempts,
		config.Reliability.RetryDelay,
	)

	bc.retryPolicy = NewRetryPolicy(
		config.Reliability.RetryAttempts,
		config.Reliability.RetryDelay,
	)

	bc.logger.Info("connector initialized",
		zap.String("type", string(bc.connectorType)),
		zap.String("version", bc.version))

	return nil
}

// Name returns the connector name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the connector type
func (bc *BaseConnector) Type() core.ConnectorType {
	return bc.connectorType
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.version
}

// GetState returns a copy of the current state
func (bc *BaseConnector) GetState() core.State {
	bc.stateMutex.RLock()
	defer bc.stateMutex.RUnlock()

	return bc.state.Clone()
}

// SetState updates the connector state
func (bc *BaseConnector) SetState(state core.State) error {
	bc.stateMutex.Lock()
	defer bc.stateMutex.Unlock()

	bc.state = state
	bc.logger.Debug("state updated", zap.Any("state", state))
	return nil
}

// SetStreamCursor persists a cursor value for one stream.
func (bc *BaseConnector) SetStreamCursor(stream, field, value string) {
	bc.stateMutex.Lock()
	defer bc.stateMutex.Unlock()

	if bc.state == nil {
		bc.state = make(core.State)
	}
	bc.state.SetCursor(stream, field, value)
	bc.logger.Debug("stream cursor updated",
		zap.String("stream", stream),
		zap.String("cursor_field", field),
		zap.String("cursor", value))
}

// StreamCursor returns the persisted cursor value for a stream, or "".
func (bc *BaseConnector) StreamCursor(stream, field string) string {
	bc.stateMutex.RLock()
	defer bc.stateMutex.RUnlock()
	return bc.state.Cursor(stream, field)
}

// SliceCache returns the run-scoped parent slice cache.
func (bc *BaseConnector) SliceCache() *core.SliceCache {
	return bc.sliceCache
}

// Health performs a health check
func (bc *BaseConnector) Health(ctx context.Context) error {
	if bc.closed {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}

	status := bc.healthChecker.GetStatus()
	if status.Status != "healthy" {
		return errors.Wrap(status.Error, errors.ErrorTypeHealth, "health check failed")
	}

	return nil
}

// Metrics returns current metrics
func (bc *BaseConnector) Metrics() map[string]interface{} {
	metrics := bc.metricsCollector.GetAll()

	metrics["name"] = bc.name
	metrics["type"] = bc.connectorType
	metrics["version"] = bc.version
	metrics["uptime"] = time.Since(bc.metricsCollector.StartTime()).Seconds()

	if bc.circuitBreaker != nil {
		cbState := bc.circuitBreaker.GetState()
		metrics["circuit_breaker_state"] = cbState.State
	}

	if bc.rateLimiter != nil {
		rlStats := bc.rateLimiter.GetStats()
		metrics["rate_limit"] = rlStats.Rate
		metrics["rate_limit_burst"] = rlStats.Burst
		metrics["rate_limiter_allowed"] = rlStats.AllowedRequests
		metrics["rate_limiter_blocked"] = rlStats.BlockedRequests
	}

	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		metrics["health_status"] = status.Status
		metrics["health_check_count"] = bc.healthChecker.CheckCount()
		metrics["health_failure_count"] = bc.healthChecker.FailureCount()
	}

	return metrics
}

// Close shuts down the connector
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}

	bc.logger.Info("closing connector")

	if bc.cancel != nil {
		bc.cancel()
	}

	if bc.healthChecker != nil {
		bc.healthChecker.Stop()
	}

	bc.closed = true
	bc.logger.Info("connector closed")

	return nil
}

// ExecuteWithRetry executes a function with automatic retry logic including
// exponential backoff. Retries are attempted for retryable errors based on
// the configured retry policy.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	return bc.retryPolicy.ExecuteWithCondition(ctx, fn, bc.ShouldRetry)
}

// ExecuteWithCircuitBreaker executes a function with circuit breaker
// protection. If the circuit is open due to excessive failures, the function
// won't be executed and an error is returned immediately.
func (bc *BaseConnector) ExecuteWithCircuitBreaker(fn func() error) error {
	return bc.circuitBreaker.Execute(fn)
}

// RateLimit enforces the configured rate limit, blocking if necessary.
// Returns immediately if no rate limiter is configured.
func (bc *BaseConnector) RateLimit(ctx context.Context) error {
	if bc.rateLimiter == nil {
		return nil
	}
	return bc.rateLimiter.Wait(ctx)
}

// HandleError handles an error with the configured error handler
func (bc *BaseConnector) HandleError(ctx context.Context, err error) error {
	return bc.errorHandler.HandleError(ctx, err)
}

// ShouldRetry checks if an error should be retried
func (bc *BaseConnector) ShouldRetry(err error) bool {
	return bc.errorHandler.ShouldRetry(err)
}

// GetLogger returns the connector logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// GetConfig returns the connector configuration
func (bc *BaseConnector) GetConfig() *config.BaseConfig {
	return bc.config
}

// GetContext returns the connector context
func (bc *BaseConnector) GetContext() context.Context {
	return bc.ctx
}

// IsHealthy returns true if the connector is healthy
func (bc *BaseConnector) IsHealthy() bool {
	if bc.closed {
		return false
	}

	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		return status.Status == "healthy"
	}

	return true
}

// UpdateHealth updates the health status
func (bc *BaseConnector) UpdateHealth(healthy bool, details map[string]interface{}) {
	if bc.healthChecker != nil {
		bc.healthChecker.UpdateStatus(healthy, details)
	}
}

// SetHealthCheckFunc installs the connector's upstream health probe.
func (bc *BaseConnector) SetHealthCheckFunc(fn func(ctx context.Context) error) {
	if bc.healthChecker != nil {
		bc.healthChecker.SetCheckFunc(fn)
	}
}

// GetMetricsCollector returns the metrics collector
func (bc *BaseConnector) GetMetricsCollector() *metrics.Collector {
	return bc.metricsCollector
}

// Validate validates the connector configuration
func (bc *BaseConnector) Validate() error {
	if bc.config == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	if bc.config.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "connector name is required")
	}

	if bc.config.Performance.BatchSize <= 0 {
		bc.config.Performance.BatchSize = 1000
	}

	if bc.config.Performance.MaxConcurrency <= 0 {
		bc.config.Performance.MaxConcurrency = 10
	}

	if bc.config.Performance.BufferSize <= 0 {
		bc.config.Performance.BufferSize = 10000
	}

	return nil
}
