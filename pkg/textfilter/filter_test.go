package textfilter

import (
	"testing"
)

func TestFilter_Apply(t *testing.T) {
	filter := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple replacement",
			input:    "What the hell is that noise?",
			expected: "What the blazes is that noise?",
		},
		{
			name:     "several words",
			input:    "This damn crap again!",
			expected: "This curse rubbish again!",
		},
		{
			name:     "uppercase",
			input:    "DAMN these goblins!",
			expected: "CURSE these goblins!",
		},
		{
			name:     "title case",
			input:    "Bastard! He stole my purse.",
			expected: "Cur! He stole my purse.",
		},
		{
			name:     "mixed case",
			input:    "HeLl no",
			expected: "BlAzes no",
		},
		{
			name:     "longest word wins",
			input:    "The innkeeper is an asshole.",
			expected: "The innkeeper is an knave.",
		},
		{
			name:     "plurals",
			input:    "Those bastards and bitches ran off.",
			expected: "Those curs and shrews ran off.",
		},
		{
			name:     "plural of a replacement ending in s",
			input:    "Bloody hells.",
			expected: "Bloody blazes.",
		},
		{
			name:     "censored words stay singular",
			input:    "the sluts",
			expected: "the [censored]",
		},
		{
			name:     "partial words are left alone",
			input:    "The assassin studied classical texts in the shell of a hello.",
			expected: "The assassin studied classical texts in the shell of a hello.",
		},
		{
			name:     "suffix that is not a plural",
			input:    "We must assess the Dickens novel.",
			expected: "We must assess the Dickens novel.",
		},
		{
			name:     "punctuation",
			input:    "Hell?! That's damn cold.",
			expected: "Blazes?! That's curse cold.",
		},
		{
			name:     "clean text",
			input:    "The tavern falls silent.",
			expected: "The tavern falls silent.",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Apply(tt.input); got != tt.expected {
				t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFilter_Contains(t *testing.T) {
	filter := New()

	tests := []struct {
		input    string
		expected bool
	}{
		{"What the hell?", true},
		{"BULLSHIT", true},
		{"The assassin waits.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := filter.Contains(tt.input); got != tt.expected {
			t.Errorf("Contains(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		input    string
		expected Rating
		filtered bool
	}{
		{"G", RatingG, true},
		{"pg", RatingPG, true},
		{"PG-13", RatingPG13, true},
		{" pg13 ", RatingPG13, true},
		{"R", RatingR, false},
		{"", RatingR, false},
		{"NC-17", RatingR, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseRating(tt.input)
			if got != tt.expected {
				t.Errorf("ParseRating(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if got.Filtered() != tt.filtered {
				t.Errorf("ParseRating(%q).Filtered() = %v, want %v", tt.input, got.Filtered(), tt.filtered)
			}
		})
	}
}
