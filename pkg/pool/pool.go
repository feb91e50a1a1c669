// Package pool provides object pooling for the record types that flow
// through connector reads. Records are recycled to keep allocation pressure
// low when a stream yields many small JSON objects.
package pool

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Pool represents a generic object pool with type safety. It wraps sync.Pool
// with an automatic reset step and usage statistics.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The reset function, if non-nil, is called before an object is returned to
// the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns allocation count, objects in use and pool hits.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// RecordMetadata carries provenance for a record emitted by a source stream.
type RecordMetadata struct {
	// Source identifies the connector that produced the record
	Source string `json:"source,omitempty"`
	// StreamID identifies the stream within the connector
	StreamID string `json:"stream_id,omitempty"`
	// Timestamp when the record was extracted
	Timestamp time.Time `json:"timestamp"`
	// Custom metadata fields for extensibility
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record is the unified record type emitted by all source streams. Records
// should be obtained from the pool via GetRecord and released by the consumer.
type Record struct {
	// ID is a unique identifier for the record
	ID string `json:"id"`
	// Data contains the actual record payload
	Data map[string]interface{} `json:"data"`
	// Metadata contains source and timing information
	Metadata RecordMetadata `json:"metadata"`
}

var (
	// RecordPool provides pooling for Record objects.
	RecordPool = New(
		func() *Record {
			return &Record{
				Data: make(map[string]interface{}, 16),
			}
		},
		func(r *Record) {
			r.ID = ""
			for k := range r.Data {
				delete(r.Data, k)
			}
			if r.Metadata.Custom != nil {
				for k := range r.Metadata.Custom {
					delete(r.Metadata.Custom, k)
				}
			}
			r.Metadata = RecordMetadata{}
		},
	)

	// MapPool provides pooling for map[string]interface{} objects.
	MapPool = New(
		func() map[string]interface{} {
			return make(map[string]interface{}, 16)
		},
		func(m map[string]interface{}) {
			for k := range m {
				delete(m, k)
			}
		},
	)
)

// idCounter provides atomic unique ID generation
var idCounter uint64

// GetRecord retrieves a Record from the global pool with a fresh timestamp.
func GetRecord() *Record {
	r := RecordPool.Get()
	r.Metadata.Timestamp = time.Now()
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = GetMap()
	}
	return r
}

// NewRecordFromPool retrieves a pooled record pre-tagged with a source name.
func NewRecordFromPool(source string) *Record {
	r := GetRecord()
	r.Metadata.Source = source
	return r
}

// PutRecord returns a Record to the global pool for reuse.
func PutRecord(record *Record) {
	if record != nil {
		if record.Metadata.Custom != nil {
			PutMap(record.Metadata.Custom)
			record.Metadata.Custom = nil
		}
		RecordPool.Put(record)
	}
}

// GetMap retrieves a map from the global pool.
func GetMap() map[string]interface{} {
	return MapPool.Get()
}

// PutMap returns a map to the global pool. Safe to call with nil.
func PutMap(m map[string]interface{}) {
	if m != nil {
		MapPool.Put(m)
	}
}

// GenerateID generates a unique ID with the specified prefix.
func GenerateID(prefix string) string {
	id := atomic.AddUint64(&idCounter, 1)
	return prefix + "-" + strconv.FormatUint(id, 10)
}

// SetData sets a data field on the record.
func (r *Record) SetData(key string, value interface{}) {
	if r.Data == nil {
		r.Data = GetMap()
	}
	r.Data[key] = value
}

// GetData retrieves a data field from the record.
func (r *Record) GetData(key string) (interface{}, bool) {
	if r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[key]
	return v, ok
}

// SetMetadata sets a custom metadata field.
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = GetMap()
	}
	r.Metadata.Custom[key] = value
}

// GetMetadata retrieves a custom metadata field.
func (r *Record) GetMetadata(key string) (interface{}, bool) {
	if r.Metadata.Custom == nil {
		return nil, false
	}
	v, ok := r.Metadata.Custom[key]
	return v, ok
}

// SetTimestamp sets the extraction timestamp.
func (r *Record) SetTimestamp(t time.Time) {
	r.Metadata.Timestamp = t
}

// SetStreamID tags the record with its stream name.
func (r *Record) SetStreamID(streamID string) {
	r.Metadata.StreamID = streamID
}

// GetStreamID returns the stream name the record belongs to.
func (r *Record) GetStreamID() string {
	return r.Metadata.StreamID
}

// Release returns the record to the pool.
func (r *Record) Release() {
	PutRecord(r)
}
