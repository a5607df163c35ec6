package answer

import "testing"

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"hi", true},
		{"Hi", true},
		{"  hello  ", true},
		{"hey there", true},
		{"namaste", true},
		{"good morning", true},
		{"oh hello friend", true},
		{"what is the project deadline?", false},
		{"explain closures in javascript", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		if got := isGreeting(tt.query); got != tt.want {
			t.Errorf("isGreeting(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
