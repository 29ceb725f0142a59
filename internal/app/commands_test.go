package app

import (
	"testing"

	"eventbot/internal/transport"
)

func TestCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "/start", want: "/start"},
		{name: "with args", in: "/events today please", want: "/events"},
		{name: "group suffix", in: "/count@eventbot", want: "/count"},
		{name: "uppercase", in: "/HELP", want: "/help"},
		{name: "leading whitespace", in: "  /stop", want: "/stop"},
		{name: "not a command", in: "hello there", want: ""},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := command(tt.in); got != tt.want {
				t.Fatalf("command(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		msg  transport.Message
		want string
	}{
		{name: "first name", msg: transport.Message{FirstName: "Alice", FromUsername: "al"}, want: "Alice"},
		{name: "username fallback", msg: transport.Message{FromUsername: "al"}, want: "al"},
		{name: "id fallback", msg: transport.Message{FromID: 7}, want: "user 7"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(tt.msg); got != tt.want {
				t.Fatalf("displayName = %q, want %q", got, tt.want)
			}
		})
	}
}
