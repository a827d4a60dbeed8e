package services

import "testing"

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		raw      string
		expected string
	}{
		{"strips echoed prefix", "Hi", "Hi there!", "there!"},
		{"no prefix match is only trimmed", "Hi", "  Hello!  ", "Hello!"},
		{"case-insensitive", "hello bot", "HELLO BOT how are you?", "how are you?"},
		{"whitespace around message", "  Hi  ", "\nHi there!", "there!"},
		{"echo only", "Hi", "Hi", ""},
		{"output shorter than message", "Hello there", "Hello", "Hello"},
		{"empty message", "", " answer ", "answer"},
		{"multibyte prefix", "Ça va", "ça va bien", "bien"},
		{"folds of different widths", "\u212Aid", "kid stuff", "stuff"},
		{"wide fold in output", "kid", "\u212AID stuff", "stuff"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanReply(tc.message, tc.raw); got != tc.expected {
				t.Errorf("CleanReply(%q, %q) = %q, expected %q", tc.message, tc.raw, got, tc.expected)
			}
		})
	}
}
