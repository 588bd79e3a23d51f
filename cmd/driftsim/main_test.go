package main

import "testing"

func TestShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"3f2a9c1e-7b44-4d0e-9a61-0c5e2f7d8b13", "3f2a9c1e"},
		{"3f2a9c1e", "3f2a9c1e"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.id); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
