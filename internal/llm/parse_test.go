package llm

import "testing"

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
		{
			name:     "json markdown fence",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "plain markdown fence",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n  {\"key\": \"value\"}  \n  ",
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSONResponse(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseKeywordMap(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "clean dictionary",
			input: `{"forest": "a dark wood"}`,
			want:  map[string]string{"forest": "a dark wood"},
		},
		{
			name:  "fenced dictionary",
			input: "```json\n{\"brook\": \"a stream\"}\n```",
			want:  map[string]string{"brook": "a stream"},
		},
		{
			name:  "dictionary buried in prose",
			input: "Here is the updated dictionary:\n{\"map\": \"a hidden map\"}\nLet me know if you need more.",
			want:  map[string]string{"map": "a hidden map"},
		},
		{
			name:  "empty dictionary",
			input: `{}`,
			want:  map[string]string{},
		},
		{
			name:    "not JSON at all",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "wrong value types",
			input:   `{"count": 3}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeywordMap(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKeywordMap: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("key %q: got %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
