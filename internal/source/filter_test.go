package source

import (
	"testing"

	"eventbot/internal/event"
)

func TestFilterTopical(t *testing.T) {
	t.Parallel()
	f := NewFilter(nil)

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{name: "keyword hit", title: "Intro to Machine Learning", want: true},
		{name: "case insensitive", title: "PYTHON for beginners", want: true},
		{name: "go needs word boundary", title: "Let's Go build APIs", want: true},
		{name: "no keyword", title: "Evening Yoga Session", want: false},
		{name: "empty", title: "", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Topical(tt.title); got != tt.want {
				t.Fatalf("Topical(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestFilterCustomKeywords(t *testing.T) {
	t.Parallel()
	f := NewFilter([]string{"Quantum", "  "})
	if !f.Topical("Quantum computing night") {
		t.Fatal("custom keyword should match")
	}
	if f.Topical("Intro to Python") {
		t.Fatal("default vocabulary should be replaced, not merged")
	}
}

func TestMostlyLatin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "plain ascii", in: "Go meetup", want: true},
		{name: "accented latin", in: "Café du code", want: true},
		{name: "cjk", in: "技術イベント", want: false},
		{name: "mixed mostly cjk", in: "Go 言語の勉強会です", want: false},
		{name: "empty", in: "", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := MostlyLatin(tt.in); got != tt.want {
				t.Fatalf("MostlyLatin(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeWhen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "rfc3339", in: "2025-06-01T18:30:00Z", want: "2025-06-01 18:30"},
		{name: "local datetime", in: "2025-06-01T18:30:00", want: "2025-06-01 18:30"},
		{name: "date only", in: "2025-06-01", want: "2025-06-01 00:00"},
		{name: "unparseable", in: "next Tuesday-ish", want: event.SeeLink},
		{name: "empty", in: "  ", want: event.SeeLink},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeWhen(tt.in); got != tt.want {
				t.Fatalf("NormalizeWhen(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
