package ai

import (
	"reflect"
	"testing"
)

func TestNormalizeHistoryDropsLeadingNonUser(t *testing.T) {
	got := NormalizeHistory([]HistoryItem{
		{Role: "assistant", Content: "welcome"},
		{Role: "assistant", Content: "again"},
		{Role: "user", Content: "hi", Query: "hi there"},
		{Role: "assistant", Content: "...", Datatext: "hello"},
		{Role: "user", Content: "bye"},
	})

	want := []Message{
		{Role: RoleUser, Content: "hi there"},
		{Role: RoleModel, Content: "hello"},
		{Role: RoleUser, Content: "bye"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalizeHistoryOnlyAssistant(t *testing.T) {
	got := NormalizeHistory([]HistoryItem{{Role: "assistant", Content: "x"}})
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %+v", got)
	}
}

func TestContextPrompt(t *testing.T) {
	if got := ContextPrompt(nil, "draw a cat"); got != "draw a cat" {
		t.Fatalf("unexpected prompt without history: %q", got)
	}

	got := ContextPrompt([]HistoryItem{
		{Role: "user", Content: "I like cats"},
		{Role: "assistant", Content: "Cats are great"},
	}, "draw one")
	want := "Based on our conversation: I like cats Cats are great\n\nNow, draw one"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOpenAIRole(t *testing.T) {
	cases := map[string]string{
		RoleUser:   "user",
		RoleModel:  "assistant",
		RoleSystem: "system",
		"":         "user",
	}
	for in, want := range cases {
		if got := openAIRole(in); got != want {
			t.Errorf("openAIRole(%q)=%q, want %q", in, got, want)
		}
	}
}
