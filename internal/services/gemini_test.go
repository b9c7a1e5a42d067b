package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"careconnect-backend/internal/config"
	"careconnect-backend/internal/models"
)

// stubStream replays canned responses, then fails with err if set.
type stubStream struct {
	responses []*genai.GenerateContentResponse
	err       error
	next      int
}

func (s *stubStream) Next() (*genai.GenerateContentResponse, error) {
	if s.next < len(s.responses) {
		resp := s.responses[s.next]
		s.next++
		return resp, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, iterator.Done
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func newStubService(stream *stubStream, requests *[]chatRequest) *GeminiService {
	return &GeminiService{
		logger: zap.NewNop(),
		openStream: func(ctx context.Context, req chatRequest) responseStream {
			if requests != nil {
				*requests = append(*requests, req)
			}
			return stream
		},
	}
}

func collect(t *testing.T, s *GeminiService, query string, history []models.ChatMessage) ([]string, []error) {
	t.Helper()
	var fragments []string
	var errs []error
	for text, err := range s.Generate(context.Background(), query, history) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fragments = append(fragments, text)
	}
	return fragments, errs
}

func TestNewGeminiService_MissingAPIKey(t *testing.T) {
	_, err := NewGeminiService(context.Background(), &config.Config{GeminiAPIKey: "  "}, zap.NewNop())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestBuildChatRequest_PreservesHistoryAndAppendsQuery(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "I can't sleep"},
		{Role: models.RoleModel, Content: "That sounds exhausting."},
		{Role: models.RoleUser, Content: "It's been a week"},
	}

	req := buildChatRequest("What can I do?", history)

	if len(req.History) != len(history) {
		t.Fatalf("expected %d prior turns, got %d", len(history), len(req.History))
	}
	for i, c := range req.History {
		if c.Role != history[i].Role {
			t.Errorf("turn %d: expected role %q, got %q", i, history[i].Role, c.Role)
		}
		if got := string(c.Parts[0].(genai.Text)); got != history[i].Content {
			t.Errorf("turn %d: expected %q, got %q", i, history[i].Content, got)
		}
	}
	if string(req.Query) != "What can I do?" {
		t.Errorf("expected query as the final user turn, got %q", req.Query)
	}
}

func TestBuildChatRequest_CarriesPersona(t *testing.T) {
	req := buildChatRequest("I want to end my life", nil)

	if req.System == nil || len(req.System.Parts) != 1 {
		t.Fatal("expected the persona as system instruction")
	}
	persona := string(req.System.Parts[0].(genai.Text))
	if persona != PersonaPrompt {
		t.Fatal("persona text was altered")
	}
	for _, must := range []string{
		"NEVER provide medical diagnoses",
		"seek immediate help from human professionals or emergency services",
		"crisis hotline",
	} {
		if !strings.Contains(persona, must) {
			t.Errorf("persona is missing %q", must)
		}
	}
	if len(req.History) != 0 {
		t.Errorf("expected no prior turns, got %d", len(req.History))
	}
}

func TestBuildChatRequest_Idempotent(t *testing.T) {
	history := []models.ChatMessage{{Role: models.RoleUser, Content: "hello"}}
	a := buildChatRequest("again", history)
	b := buildChatRequest("again", history)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input produced different requests")
	}
}

func TestGenerate_YieldsNonEmptyChunksInOrder(t *testing.T) {
	stream := &stubStream{responses: []*genai.GenerateContentResponse{
		textResponse("It sounds "),
		textResponse(""),
		{Candidates: []*genai.Candidate{{}}},
		textResponse("hard."),
	}}
	var requests []chatRequest
	s := newStubService(stream, &requests)

	fragments, errs := collect(t, s, "I feel anxious today", nil)

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !reflect.DeepEqual(fragments, []string{"It sounds ", "hard."}) {
		t.Fatalf("unexpected fragments: %q", fragments)
	}
	if len(requests) != 1 {
		t.Fatalf("expected exactly one streaming call, got %d", len(requests))
	}
}

func TestGenerate_EmptyStream(t *testing.T) {
	s := newStubService(&stubStream{}, nil)

	fragments, errs := collect(t, s, "hello", nil)
	if len(fragments) != 0 || len(errs) != 0 {
		t.Fatalf("expected nothing, got fragments=%q errs=%v", fragments, errs)
	}
}

func TestGenerate_MidStreamFailure(t *testing.T) {
	stream := &stubStream{
		responses: []*genai.GenerateContentResponse{textResponse("one"), textResponse("two")},
		err:       errors.New("upstream reset"),
	}
	s := newStubService(stream, nil)

	fragments, errs := collect(t, s, "hello", nil)

	if !reflect.DeepEqual(fragments, []string{"one", "two"}) {
		t.Fatalf("unexpected fragments: %q", fragments)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(errs))
	}
	if models.KindOf(errs[0]) != models.ErrGeneration {
		t.Errorf("expected generation kind, got %s", models.KindOf(errs[0]))
	}
	msg := errs[0].Error()
	if !strings.HasPrefix(msg, "Sorry, I encountered an issue trying to respond: ") || !strings.Contains(msg, "upstream reset") {
		t.Errorf("unexpected apology text: %q", msg)
	}
}

func TestGenerate_FailureBeforeFirstChunk(t *testing.T) {
	s := newStubService(&stubStream{err: errors.New("permission denied")}, nil)

	fragments, errs := collect(t, s, "hello", nil)
	if len(fragments) != 0 || len(errs) != 1 {
		t.Fatalf("expected one error only, got fragments=%q errs=%v", fragments, errs)
	}
}

func TestGenerate_StopsWhenConsumerBreaks(t *testing.T) {
	stream := &stubStream{responses: []*genai.GenerateContentResponse{
		textResponse("a"), textResponse("b"), textResponse("c"),
	}}
	s := newStubService(stream, nil)

	for range s.Generate(context.Background(), "q", nil) {
		break
	}
	if stream.next != 1 {
		t.Fatalf("expected the stream to stop after one chunk, read %d", stream.next)
	}
}

func TestGenerate_NotRestartable(t *testing.T) {
	var requests []chatRequest
	s := newStubService(&stubStream{responses: []*genai.GenerateContentResponse{textResponse("x")}}, &requests)

	seq := s.Generate(context.Background(), "q", nil)
	for range seq {
	}
	for range seq {
		t.Fatal("second iteration yielded a fragment")
	}
	if len(requests) != 1 {
		t.Fatalf("expected one streaming call, got %d", len(requests))
	}
}
