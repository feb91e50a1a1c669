package strings

import (
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	builder := NewBuilder(32)

	builder.WriteString("hello")
	builder.WriteByte(' ')
	builder.WriteString("world")

	result := builder.String()
	if result != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", result)
	}

	if builder.Len() != 11 {
		t.Errorf("expected length 11, got %d", builder.Len())
	}
}

func TestBuilderReset(t *testing.T) {
	builder := NewBuilder(32)
	builder.WriteString("test")

	if builder.Len() != 4 {
		t.Errorf("expected length 4, got %d", builder.Len())
	}

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
}

func TestBuilderPool(t *testing.T) {
	builder1 := GetBuilder(Small)
	if builder1 == nil {
		t.Fatal("expected non-nil builder from pool")
	}

	builder1.WriteString("test")
	if builder1.String() != "test" {
		t.Errorf("expected 'test', got '%s'", builder1.String())
	}

	PutBuilder(builder1, Small)

	// Get again - should be reset
	builder2 := GetBuilder(Small)
	if builder2.Len() != 0 {
		t.Errorf("expected reset builder, got length %d", builder2.Len())
	}
	PutBuilder(builder2, Small)
}

func TestConcat(t *testing.T) {
	tests := []struct {
		parts    []string
		expected string
	}{
		{[]string{"a", "b", "c"}, "abc"},
		{[]string{"hello", " ", "world"}, "hello world"},
		{[]string{}, ""},
		{[]string{"", "x", ""}, "x"},
	}

	for _, test := range tests {
		result := Concat(test.parts...)
		if result != test.expected {
			t.Errorf("Concat(%v) = %q, expected %q", test.parts, result, test.expected)
		}
	}
}

func TestSprintf(t *testing.T) {
	result := Sprintf("%s-%d", "page", 7)
	if result != "page-7" {
		t.Errorf("expected 'page-7', got '%s'", result)
	}
}

func TestJoinPooled(t *testing.T) {
	tests := []struct {
		parts     []string
		delimiter string
		expected  string
	}{
		{[]string{"a", "b", "c"}, ",", "a,b,c"},
		{[]string{"hello"}, ",", "hello"},
		{[]string{}, ",", ""},
		{[]string{"a", "", "b"}, ",", "a,,b"},
	}

	for _, test := range tests {
		result := JoinPooled(test.parts, test.delimiter)
		if result != test.expected {
			t.Errorf("JoinPooled(%v, %q) = %q, expected %q", test.parts, test.delimiter, result, test.expected)
		}
	}
}

func TestTrimSpace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello world  ", "hello world"},
		{"hello world", "hello world"},
		{"  ", ""},
		{"\t\nhello\r\n", "hello"},
	}

	for _, test := range tests {
		result := TrimSpace(test.input)
		if result != test.expected {
			t.Errorf("TrimSpace(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		s, delimiter string
		expected     []string
	}{
		{"a,b,c", ",", []string{"a", "b", "c"}},
		{"hello", ",", []string{"hello"}},
		{"a,,b", ",", []string{"a", "", "b"}},
	}

	for _, test := range tests {
		result := Split(test.s, test.delimiter)
		if len(result) != len(test.expected) {
			t.Errorf("Split(%q, %q) length = %d, expected %d", test.s, test.delimiter, len(result), len(test.expected))
			continue
		}
		for i, part := range result {
			if part != test.expected[i] {
				t.Errorf("Split(%q, %q)[%d] = %q, expected %q", test.s, test.delimiter, i, part, test.expected[i])
			}
		}
	}
}

func TestURLBuilder(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name: "basic URL with params",
			build: func() string {
				ub := NewURLBuilder("https://api.example.com")
				defer ub.Close()
				return ub.AddParam("key", "value").AddParam("foo", "bar").String()
			},
			expected: "https://api.example.com?key=value&foo=bar",
		},
		{
			name: "base URL with existing query",
			build: func() string {
				ub := NewURLBuilder("https://api.example.com/items?cursor=abc")
				defer ub.Close()
				return ub.AddParam("limit", "10").String()
			},
			expected: "https://api.example.com/items?cursor=abc&limit=10",
		},
		{
			name: "URL with encoding",
			build: func() string {
				ub := NewURLBuilder("https://api.example.com")
				defer ub.Close()
				return ub.AddParam("query", "hello world").AddParam("special", "a+b=c").String()
			},
			expected: "https://api.example.com?query=hello+world&special=a%2Bb%3Dc",
		},
		{
			name: "URL with integer param",
			build: func() string {
				ub := NewURLBuilder("https://api.example.com")
				defer ub.Close()
				return ub.AddParamInt("page", 5).AddParamInt("items_per_page", 100).String()
			},
			expected: "https://api.example.com?page=5&items_per_page=100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.build()
			if result != tt.expected {
				t.Errorf("URLBuilder test failed\nExpected: %s\nGot:      %s", tt.expected, result)
			}
		})
	}
}

func BenchmarkURLBuilder(b *testing.B) {
	b.Run("URLBuilder", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			ub := NewURLBuilder("https://api.example.com/v1/adaccounts")
			ub.AddParam("cursor", "abcdef123456").
				AddParam("fields", "id,name,timezone").
				AddParamInt("limit", 100)
			_ = ub.String()
			ub.Close()
		}
	})
}

func BenchmarkConcat(b *testing.B) {
	parts := []string{"organizations", ":", "id", ",", "timezone"}

	b.Run("Pooled", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = Concat(parts...)
		}
	})

	b.Run("Standard", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = strings.Join(parts, "")
		}
	})
}
