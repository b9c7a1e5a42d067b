package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseUserInput_Valid(t *testing.T) {
	data := []byte(`{"query":"I feel anxious today","history":[{"role":"user","content":"hi"},{"role":"model","content":"hello"}]}`)

	in, err := ParseUserInput(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Query != "I feel anxious today" {
		t.Errorf("unexpected query %q", in.Query)
	}
	if len(in.History) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(in.History))
	}
	if in.History[0].Role != RoleUser || in.History[1].Role != RoleModel {
		t.Errorf("history order not preserved: %+v", in.History)
	}
}

func TestParseUserInput_HistoryDefaultsEmpty(t *testing.T) {
	in, err := ParseUserInput([]byte(`{"query":"I want to end my life"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.History == nil || len(in.History) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", in.History)
	}
}

func TestParseUserInput_EmptyQueryAllowed(t *testing.T) {
	in, err := ParseUserInput([]byte(`{"query":""}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Query != "" {
		t.Errorf("expected empty query, got %q", in.Query)
	}
}

func TestParseUserInput_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind ErrorKind
	}{
		{"not json", `not valid json`, ErrMalformedInput},
		{"truncated", `{"query":`, ErrMalformedInput},
		{"array payload", `["query"]`, ErrValidation},
		{"missing query", `{"history":[]}`, ErrValidation},
		{"query wrong type", `{"query":5}`, ErrValidation},
		{"bad role", `{"query":"q","history":[{"role":"assistant","content":"x"}]}`, ErrValidation},
		{"missing role", `{"query":"q","history":[{"content":"x"}]}`, ErrValidation},
		{"missing content", `{"query":"q","history":[{"role":"user"}]}`, ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseUserInput([]byte(tc.data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := KindOf(err); got != tc.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tc.kind, got, err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("relay: %w", NewChatError(ErrGeneration, errors.New("boom")))
	if KindOf(wrapped) != ErrGeneration {
		t.Errorf("expected generation kind through wrapping")
	}
	if KindOf(errors.New("plain")) != ErrUnexpected {
		t.Errorf("expected untagged errors to be unexpected")
	}
}

func TestClientResponseWireShape(t *testing.T) {
	b, err := json.Marshal(ErrorResponse("Invalid JSON format received."))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"type":"error","data":"Invalid JSON format received."}` {
		t.Fatalf("unexpected wire shape: %s", b)
	}
}
