// Package strings provides pooled string building utilities used on the
// request-construction hot path of the API connectors.
package strings

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unsafe"
)

// Builder is a minimal string builder backed by a reusable byte slice.
type Builder struct {
	buf []byte
}

// NewBuilder creates a builder with the given initial capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte to the builder.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string without copying. The result is only valid
// until the builder is reset or returned to a pool; use Clone to keep it.
func (b *Builder) String() string {
	if len(b.buf) == 0 {
		return ""
	}
	return unsafe.String(&b.buf[0], len(b.buf))
}

// Len returns the current length.
func (b *Builder) Len() int { return len(b.buf) }

// Reset clears the builder for reuse.
func (b *Builder) Reset() { b.buf = b.buf[:0] }

// BuilderSize selects a pool bucket.
type BuilderSize int

const (
	// Small builders cover URLs, error bodies and log fragments.
	Small BuilderSize = iota
	// Medium builders cover request bodies.
	Medium
	// Large builders cover merged response assembly.
	Large
)

var builderPools = [...]*sync.Pool{
	{New: func() interface{} { return NewBuilder(256) }},
	{New: func() interface{} { return NewBuilder(4096) }},
	{New: func() interface{} { return NewBuilder(65536) }},
}

// GetBuilder retrieves a pooled builder of the requested size class.
func GetBuilder(size BuilderSize) *Builder {
	b := builderPools[size].Get().(*Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *Builder, size BuilderSize) {
	if b != nil {
		builderPools[size].Put(b)
	}
}

// Clone returns a copy of s detached from any pooled backing array.
func Clone(s string) string {
	return strings.Clone(s)
}

// TrimSpace trims leading and trailing whitespace.
func TrimSpace(s string) string {
	return strings.TrimSpace(s)
}

// Split splits s by delimiter.
func Split(s, delimiter string) []string {
	return strings.Split(s, delimiter)
}

// Concat concatenates strings using a pooled builder.
func Concat(parts ...string) string {
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	for _, p := range parts {
		b.WriteString(p)
	}
	return Clone(b.String())
}

// Sprintf formats using fmt with a pooled builder as scratch space.
func Sprintf(format string, args ...interface{}) string {
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	fmt.Fprintf(b, format, args...)
	return Clone(b.String())
}

// JoinPooled joins strings with a delimiter using a pooled builder.
func JoinPooled(parts []string, delimiter string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	b := GetBuilder(Small)
	defer PutBuilder(b, Small)
	for i, p := range parts {
		if i > 0 {
			b.WriteString(delimiter)
		}
		b.WriteString(p)
	}
	return Clone(b.String())
}

// URLBuilder incrementally builds a URL with query parameters.
type URLBuilder struct {
	builder  *Builder
	hasQuery bool
}

// NewURLBuilder creates a URL builder starting from the given base URL.
func NewURLBuilder(base string) *URLBuilder {
	ub := &URLBuilder{builder: GetBuilder(Small)}
	ub.builder.WriteString(base)
	ub.hasQuery = strings.Contains(base, "?")
	return ub
}

// AddParam appends a query-escaped key/value pair.
func (ub *URLBuilder) AddParam(key, value string) *URLBuilder {
	if ub.hasQuery {
		ub.builder.WriteByte('&')
	} else {
		ub.builder.WriteByte('?')
		ub.hasQuery = true
	}
	ub.builder.WriteString(url.QueryEscape(key))
	ub.builder.WriteByte('=')
	ub.builder.WriteString(url.QueryEscape(value))
	return ub
}

// AddParamInt appends an integer query parameter.
func (ub *URLBuilder) AddParamInt(key string, value int) *URLBuilder {
	return ub.AddParam(key, fmt.Sprintf("%d", value))
}

// String returns the built URL.
func (ub *URLBuilder) String() string {
	return Clone(ub.builder.String())
}

// Close returns the underlying builder to its pool.
func (ub *URLBuilder) Close() {
	PutBuilder(ub.builder, Small)
	ub.builder = nil
}
