package cmd

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func TestParseRemap(t *testing.T) {
	tests := []struct {
		in      string
		want    models.RemapRule
		wantErr bool
	}{
		{in: "kitten=cat", want: models.RemapRule{From: []string{"kitten"}, To: "cat"}},
		{in: " a , b ,= c ", want: models.RemapRule{From: []string{"a", "b"}, To: "c"}},
		{in: "a,b", wantErr: true},
		{in: "a=", wantErr: true},
		{in: " ,=c", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRemap(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRemap(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseRemap(%q): expected %+v, got %+v", tt.in, tt.want, got)
		}
	}
}

func TestBoxSummary(t *testing.T) {
	tests := []struct {
		name     string
		boxes    []models.Box
		expected string
	}{
		{name: "empty", boxes: nil, expected: "-"},
		{name: "null", boxes: []models.Box{models.NullBox()}, expected: "null"},
		{name: "counts in first-seen order", boxes: []models.Box{
			{X2: 5, Y2: 5, Label: "dog"},
			{X2: 5, Y2: 5, Label: "cat"},
			{X2: 5, Y2: 5, Label: "dog"},
		}, expected: "dog:2 cat:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boxSummary(tt.boxes); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTerminalReadCommand(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(strings.NewReader("box 1 2 3 4\n \n\nquit"), &out)

	verb, args, ok := term.ReadCommand("> ")
	if !ok || verb != "box" || !reflect.DeepEqual(args, []string{"1", "2", "3", "4"}) {
		t.Fatalf("Expected box with four args, got %q %v %v", verb, args, ok)
	}
	if verb, _, _ = term.ReadCommand("> "); verb != " " {
		t.Errorf("Expected lone space to be the skip key, got %q", verb)
	}
	if verb, _, ok = term.ReadCommand("> "); !ok || verb != "" {
		t.Errorf("Expected empty line, got %q %v", verb, ok)
	}
	if verb, _, ok = term.ReadCommand("> "); !ok || verb != "quit" {
		t.Errorf("Expected quit without trailing newline, got %q %v", verb, ok)
	}
	if _, _, ok = term.ReadCommand("> "); ok {
		t.Errorf("Expected end of input")
	}
	if !strings.HasPrefix(out.String(), "> ") {
		t.Errorf("Expected prompt to be written, got %q", out.String())
	}
}

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		term := newTerminal(strings.NewReader(tt.input), &bytes.Buffer{})
		if got := term.Confirm(context.Background(), "Delete?"); got != tt.expected {
			t.Errorf("Confirm(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	term := newTerminal(strings.NewReader("y\n"), &bytes.Buffer{})
	if term.Confirm(ctx, "Delete?") {
		t.Errorf("Expected canceled context to decline")
	}
}
