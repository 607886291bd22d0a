package logging

import (
	"net/url"
	"testing"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "no query",
			raw:      "/api/conversations",
			expected: "/api/conversations",
		},
		{
			name:     "desk id kept",
			raw:      "/api/baskets/in?desk_id=1000000001",
			expected: "/api/baskets/in?desk_id=1000000001",
		},
		{
			name:     "token redacted",
			raw:      "/api/events?desk_id=1000000001&token=s3cr3t",
			expected: "/api/events?desk_id=1000000001&token=[REDACTED]",
		},
		{
			name:     "order kept and escaped names matched",
			raw:      "/api/events?limit=5&api%5Fkey=abc&cursor=xyz&flag",
			expected: "/api/events?limit=5&api%5Fkey=[REDACTED]&cursor=xyz&flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := RedactURL(u); got != tt.expected {
				t.Errorf("RedactURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsSensitiveField(t *testing.T) {
	tests := []struct {
		field     string
		sensitive bool
	}{
		{"password", true},
		{"Authorization", true},
		{"session_id", true},
		{"X-Api-Key", true},
		{"desk_id", false},
		{"cursor", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := IsSensitiveField(tt.field); got != tt.sensitive {
				t.Errorf("IsSensitiveField(%q) = %v, want %v", tt.field, got, tt.sensitive)
			}
		})
	}
}
