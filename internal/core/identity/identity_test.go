package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		want  string
		found bool
	}{
		{"plain string", "alex-garnier", "alex-garnier", true},
		{"padded string", "  lea-roux \n", "lea-roux", true},
		{"blank string", "   ", "", false},
		{"nil", nil, "", false},
		{"json number", json.Number("1042"), "1042", true},
		{"float without fraction", float64(7), "7", true},
		{"int", 12, "12", true},
		{"object with id", map[string]any{"id": " p1 "}, "p1", true},
		{"object falls back to value", map[string]any{"value": "p2"}, "p2", true},
		{"object camel case", map[string]any{"personId": "p3"}, "p3", true},
		{"object snake case", map[string]any{"person_id": "p4"}, "p4", true},
		{"null id skipped for next probe", map[string]any{"id": nil, "value": "p5"}, "p5", true},
		{"id wins over value", map[string]any{"id": "a", "value": "b"}, "a", true},
		{"nested object", map[string]any{"id": map[string]any{"value": "deep"}}, "deep", true},
		{"object without probe keys", map[string]any{"name": "x"}, "", false},
		{"blank id does not fall through", map[string]any{"id": "  ", "value": "v"}, "", false},
		{"list", []any{"a"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]any{"a", "", nil, map[string]any{"id": "b"}, map[string]any{}})
	assert.Equal(t, []string{"a", "b"}, got)

	assert.Nil(t, NormalizeAll("not-a-list"))
	assert.Empty(t, NormalizeAll([]any{}))
}
