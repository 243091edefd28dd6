package formatting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"object", map[string]any{"name": "db1", "port": 5432}, "{\n  \"name\": \"db1\",\n  \"port\": 5432\n}"},
		{"slice", []string{"a", "b"}, "[\n  \"a\",\n  \"b\"\n]"},
		{"string", "hello", "\"hello\""},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PrettyJSON(tt.input))
		})
	}
}

func TestPrettyJSONUnmarshalableFallsBack(t *testing.T) {
	// Channels cannot be marshaled; the fallback prints the value instead
	// of returning an empty string.
	assert.NotEmpty(t, PrettyJSON(make(chan int)))
}
