package util

import (
	"strings"
	"testing"
)

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "replaces newlines with spaces",
			input:    "hello\nworld",
			expected: "hello world",
		},
		{
			name:     "markup stored as typed",
			input:    "<b>bold</b> & more",
			expected: "<b>bold</b> & more",
		},
		{
			name:     "plain text unchanged",
			input:    "just a regular post",
			expected: "just a regular post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeInput(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	if v == "" {
		t.Error("GetVersion() returned empty string")
	}
	if strings.ContainsAny(v, " \n\t") {
		t.Errorf("Version should be trimmed, got '%s'", v)
	}
}

func TestGetNameAndVersion(t *testing.T) {
	nv := GetNameAndVersion()
	if !strings.Contains(nv, Name) {
		t.Errorf("Expected '%s' to contain '%s'", nv, Name)
	}
	if !strings.Contains(nv, GetVersion()) {
		t.Errorf("Expected '%s' to contain version '%s'", nv, GetVersion())
	}
}

func TestDateTimeFormat(t *testing.T) {
	if DateTimeFormat() != "2006-01-02 15:04:05" {
		t.Errorf("Unexpected date format '%s'", DateTimeFormat())
	}
}
