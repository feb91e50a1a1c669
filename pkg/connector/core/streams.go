package core

import (
	"strings"
	"sync"
)

// Slice carries the parent-derived request parameters for one partition of a
// child stream. A nil Slice is the sentinel partition for streams without a
// parent: the stream is read exactly once with no slice parameters.
type Slice map[string]string

// PageToken carries the query parameters that select one page of results.
// A nil PageToken requests the first page; pagination ends when the reader
// produces a nil next token.
type PageToken map[string]string

// StreamDescriptor declares one API stream: where its records live, how they
// are keyed and paginated, and which parent stream partitions its reads.
type StreamDescriptor struct {
	// Name is the stream identifier used in state and record metadata
	Name string
	// PathTemplate is the request path relative to the API base URL, with
	// {key} placeholders filled from the slice
	PathTemplate string
	// PrimaryKey names the record field holding the unique identifier
	PrimaryKey string
	// CursorField names the record field used for incremental sync, "" for
	// full-refresh streams
	CursorField string
	// Parent names the stream whose records partition this one, "" for root
	// streams
	Parent string
	// SliceKeys lists the parent record fields lifted into each slice
	SliceKeys []string
	// ResponseRoot is the response key under which the result list nests
	ResponseRoot string
	// ResponseItem is the wrapper key around each list element, "" when
	// elements are bare objects
	ResponseItem string
}

// HasParent reports whether the stream is partitioned by a parent stream.
func (d StreamDescriptor) HasParent() bool {
	return d.Parent != ""
}

// IsIncremental reports whether the stream carries a sync cursor.
func (d StreamDescriptor) IsIncremental() bool {
	return d.CursorField != ""
}

// Path expands the path template with values from the slice.
func (d StreamDescriptor) Path(slice Slice) string {
	path := d.PathTemplate
	for key, value := range slice {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	return path
}

// SliceCache holds resolved parent slices for the duration of one sync run.
// Child streams sharing a parent reuse the first resolution instead of
// re-reading the parent stream.
type SliceCache struct {
	mu     sync.RWMutex
	slices map[string][]Slice
}

// NewSliceCache creates an empty slice cache.
func NewSliceCache() *SliceCache {
	return &SliceCache{
		slices: make(map[string][]Slice),
	}
}

// Get returns the cached slices for a parent stream, if resolved.
func (c *SliceCache) Get(parent string) ([]Slice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slices, ok := c.slices[parent]
	return slices, ok
}

// Set stores resolved slices for a parent stream.
func (c *SliceCache) Set(parent string, slices []Slice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slices[parent] = slices
}

// Reset clears all cached slices. Called at the start of each sync run so a
// run never observes a previous run's parent listing.
func (c *SliceCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slices = make(map[string][]Slice)
}
